// Package authz decides what a caller may do: a casbin role policy for
// object-level capabilities plus the recipe ownership predicate.
package authz

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/pageza/foodgram/backend/internal/models"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Roles
const (
	RoleAnonymous = "anonymous"
	RoleUser      = "user"
	RoleAdmin     = "admin"
)

// Actions
const (
	ActionRead  = "read"
	ActionWrite = "write"
)

// Objects
const (
	ObjectRecipes       = "recipes"
	ObjectTags          = "tags"
	ObjectIngredients   = "ingredients"
	ObjectUsers         = "users"
	ObjectFavorites     = "favorites"
	ObjectShoppingCart  = "shopping_cart"
	ObjectSubscriptions = "subscriptions"
)

// Enforcer wraps a casbin enforcer loaded with the embedded policy
type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer builds an enforcer from the embedded model and policy
func NewEnforcer() (*Enforcer, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	if err := loadPolicy(enforcer, embeddedPolicy); err != nil {
		return nil, err
	}

	return &Enforcer{enforcer: enforcer}, nil
}

func loadPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch {
		case parts[0] == "p" && len(parts) == 4:
			if _, err := enforcer.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", parts[1:], err)
			}
		case parts[0] == "g" && len(parts) == 3:
			if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", parts[1:], err)
			}
		default:
			return fmt.Errorf("malformed policy line %q", line)
		}
	}
	return nil
}

// Allowed reports whether role may perform action on object
func (e *Enforcer) Allowed(role, object, action string) (bool, error) {
	ok, err := e.enforcer.Enforce(role, object, action)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}
	return ok, nil
}

// RoleFor maps a caller to a policy role
func RoleFor(authenticated, staff bool) string {
	switch {
	case !authenticated:
		return RoleAnonymous
	case staff:
		return RoleAdmin
	default:
		return RoleUser
	}
}

// ActionFor maps an HTTP method to read or write
func ActionFor(method string) string {
	switch method {
	case "GET", "HEAD", "OPTIONS":
		return ActionRead
	default:
		return ActionWrite
	}
}

// MayModifyRecipe is the author-or-read-only rule: only the author may
// change or delete a recipe
func MayModifyRecipe(actorID uint, recipe *models.Recipe) bool {
	return actorID != 0 && recipe != nil && recipe.AuthorID == actorID
}
