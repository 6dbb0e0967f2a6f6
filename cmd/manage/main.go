// Command manage runs one-off administrative tasks against the Foodgram database.
package main

import (
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatalf("manage: %v", err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "manage"
	app.Usage = "Foodgram administration"
	app.Commands = []*cli.Command{
		{
			Name:   "migrate",
			Usage:  "create or update the database schema",
			Action: Migrate,
		},
		{
			Name:   "check-db",
			Usage:  "wait until the database accepts connections",
			Action: CheckDB,
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "retries",
					Usage: "attempts before giving up",
					Value: 10,
				},
				&cli.DurationFlag{
					Name:  "interval",
					Usage: "pause between attempts",
					Value: 2 * time.Second,
				},
			},
		},
		{
			Name:    "load-ingredients",
			Aliases: []string{"li"},
			Usage:   "bulk load ingredients from a JSON file",
			Action:  LoadIngredients,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "path",
					Aliases: []string{"p"},
					Value:   "data/ingredients.json",
				},
			},
		},
		{
			Name:    "load-tags",
			Aliases: []string{"lt"},
			Usage:   "bulk load tags from a JSON file",
			Action:  LoadTags,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "path",
					Aliases: []string{"p"},
					Value:   "data/tags.json",
				},
			},
		},
		{
			Name:   "create-admin",
			Usage:  "create a staff user",
			Action: CreateAdmin,
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "email", Required: true},
				&cli.StringFlag{Name: "username", Required: true},
				&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"ADMIN_PASSWORD"}},
				&cli.StringFlag{Name: "first-name", Value: "Admin"},
				&cli.StringFlag{Name: "last-name", Value: "Foodgram"},
			},
		},
	}
	return app
}
