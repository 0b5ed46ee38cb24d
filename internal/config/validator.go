package config

import (
	"fmt"
	"os"
	"strings"
)

// ValidationError represents a configuration validation error. It is fatal:
// the tap refuses to run with an invalid configuration.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Validate checks the configuration for fatal errors.
func (c *Config) Validate() error {
	var errs ValidationErrors

	errs = append(errs, c.validateAuth()...)
	errs = append(errs, c.validateCache()...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// validateAuth checks the identity fields and the private key source.
func (c *Config) validateAuth() ValidationErrors {
	var errs ValidationErrors

	required := []struct {
		path  string
		value string
	}{
		{"auth.clientID", c.Auth.ClientID},
		{"auth.teamID", c.Auth.TeamID},
		{"auth.keyID", c.Auth.KeyID},
		{"auth.orgID", c.Auth.OrgID},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, ValidationError{Path: r.path, Message: "is required"})
		}
	}

	if c.Auth.Expiration <= 0 {
		errs = append(errs, ValidationError{Path: "auth.expiration", Message: "must be positive"})
	}

	sources := 0
	if c.Auth.PrivateKey.Value != "" {
		sources++
	}
	if c.Auth.PrivateKey.File != "" {
		sources++
	}
	if c.Auth.PrivateKey.Vault != nil {
		sources++
		if c.Auth.PrivateKey.Vault.Address == "" {
			errs = append(errs, ValidationError{Path: "auth.privateKey.vault.address", Message: "is required"})
		}
		if c.Auth.PrivateKey.Vault.Mount == "" {
			errs = append(errs, ValidationError{Path: "auth.privateKey.vault.mount", Message: "is required"})
		}
		if c.Auth.PrivateKey.Vault.Path == "" {
			errs = append(errs, ValidationError{Path: "auth.privateKey.vault.path", Message: "is required"})
		}
	}
	switch sources {
	case 0:
		errs = append(errs, ValidationError{
			Path:    "auth.privateKey",
			Message: "exactly one of value, file, or vault must be set",
		})
	case 1:
	default:
		errs = append(errs, ValidationError{
			Path:    "auth.privateKey",
			Message: "value, file, and vault are mutually exclusive",
		})
	}

	return errs
}

// validateCache checks the cache store configuration. The file store
// directory must already exist: a silently unwritable cache would hide the
// misconfiguration behind recomputation on every run.
func (c *Config) validateCache() ValidationErrors {
	var errs ValidationErrors

	if !c.Cache.Enabled {
		return nil
	}

	switch c.Cache.Type {
	case CacheTypeFile:
		if c.Cache.File == nil || c.Cache.File.Directory == "" {
			errs = append(errs, ValidationError{Path: "cache.file.directory", Message: "is required"})
			break
		}
		info, err := os.Stat(c.Cache.File.Directory)
		if err != nil || !info.IsDir() {
			errs = append(errs, ValidationError{
				Path:    "cache.file.directory",
				Message: fmt.Sprintf("directory %q does not exist", c.Cache.File.Directory),
			})
		}
	case CacheTypeRedis:
		if c.Cache.Redis == nil || c.Cache.Redis.URL == "" {
			errs = append(errs, ValidationError{Path: "cache.redis.url", Message: "is required"})
		}
	default:
		errs = append(errs, ValidationError{
			Path:    "cache.type",
			Message: fmt.Sprintf("unknown cache type %q", c.Cache.Type),
		})
	}

	return errs
}
