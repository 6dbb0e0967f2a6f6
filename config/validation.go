package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found in a Config
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "\n")
}

// ValidateConfig checks if the configuration meets the requirements for the given environment
func ValidateConfig(cfg *Config, env Environment) error {
	var errs ValidationErrors

	if cfg.ServerPort == "" {
		errs = append(errs, ValidationError{"server_port", "is required"})
	}

	switch cfg.DBDriver {
	case "postgres":
		if cfg.DBHost == "" || cfg.DBName == "" || cfg.DBUser == "" {
			errs = append(errs, ValidationError{"db_host", "postgres requires db_host, db_name and db_user"})
		}
	case "sqlite":
		if env == Production {
			errs = append(errs, ValidationError{"db_driver", "sqlite is not allowed in production"})
		}
		if cfg.SQLitePath == "" {
			errs = append(errs, ValidationError{"sqlite_path", "is required for sqlite"})
		}
	default:
		errs = append(errs, ValidationError{"db_driver", fmt.Sprintf("unsupported driver %q", cfg.DBDriver)})
	}

	if cfg.JWTSecret == "" {
		errs = append(errs, ValidationError{"jwt_secret", "is required"})
	} else if env == Production && cfg.JWTSecret == DefaultJWTSecret {
		errs = append(errs, ValidationError{"jwt_secret", "jwt_secret secret is required in production"})
	}
	if cfg.TokenTTL <= 0 {
		errs = append(errs, ValidationError{"token_ttl", "must be positive"})
	}

	switch cfg.StorageBackend {
	case "local":
		if cfg.MediaRoot == "" {
			errs = append(errs, ValidationError{"media_root", "is required for local storage"})
		}
	case "s3":
		if cfg.S3Bucket == "" {
			errs = append(errs, ValidationError{"s3_bucket", "is required for s3 storage"})
		}
	default:
		errs = append(errs, ValidationError{"storage_backend", fmt.Sprintf("unsupported backend %q", cfg.StorageBackend)})
	}

	if cfg.PageSize <= 0 {
		errs = append(errs, ValidationError{"page_size", "must be positive"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
