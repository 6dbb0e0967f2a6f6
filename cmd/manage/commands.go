package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

// setup loads configuration and the logger shared by every command
func setup() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if _, err := logger.Init(logger.ConfigOptions(cfg)); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

func openDB() (*config.Config, *gorm.DB, error) {
	cfg, err := setup()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func Migrate(c *cli.Context) error {
	cfg, db, err := openDB()
	if err != nil {
		return err
	}
	return database.RunMigrations(db, cfg.MigrationsDir)
}

// CheckDB pings postgres over a bare lib/pq connection until it answers
func CheckDB(c *cli.Context) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	if cfg.DBDriver != "postgres" {
		_, err := database.Open(cfg)
		return err
	}

	retries := c.Int("retries")
	interval := c.Duration("interval")
	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(c.Context, 5*time.Second)
		err = database.PingPostgres(ctx, cfg.PostgresDSN())
		cancel()
		if err == nil {
			logger.L().Info("database is ready", zap.Int("attempt", attempt))
			return nil
		}
		if attempt >= retries {
			return fmt.Errorf("database not ready after %d attempts: %w", attempt, err)
		}
		logger.L().Warn("database not ready", zap.Int("attempt", attempt), zap.Error(err))

		select {
		case <-c.Context.Done():
			return c.Context.Err()
		case <-time.After(interval):
		}
	}
}

func readJSON(path string, into interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func LoadIngredients(c *cli.Context) error {
	_, db, err := openDB()
	if err != nil {
		return err
	}

	var items []types.IngredientRequest
	if err := readJSON(c.String("path"), &items); err != nil {
		return err
	}

	created, err := service.NewIngredientService(db).LoadIngredients(c.Context, items)
	if err != nil {
		return err
	}
	logger.L().Info("ingredients loaded", zap.Int("read", len(items)), zap.Int64("created", created))
	return nil
}

func LoadTags(c *cli.Context) error {
	_, db, err := openDB()
	if err != nil {
		return err
	}

	var items []types.TagRequest
	if err := readJSON(c.String("path"), &items); err != nil {
		return err
	}

	created, err := service.NewTagService(db).LoadTags(c.Context, items)
	if err != nil {
		return err
	}
	logger.L().Info("tags loaded", zap.Int("read", len(items)), zap.Int64("created", created))
	return nil
}

func CreateAdmin(c *cli.Context) error {
	_, db, err := openDB()
	if err != nil {
		return err
	}

	user, err := service.NewUserService(db).CreateAdmin(c.Context, &types.RegisterRequest{
		Email:     c.String("email"),
		Username:  c.String("username"),
		FirstName: c.String("first-name"),
		LastName:  c.String("last-name"),
		Password:  c.String("password"),
	})
	if err != nil {
		return err
	}
	logger.L().Info("admin created", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	return nil
}
