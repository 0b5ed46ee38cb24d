// Package secrets resolves the signing private key from its configured
// source: an inline config value, a PEM file on disk, or a Vault KV v2
// secret. Exactly one source is configured; config validation enforces
// that before a resolver ever runs.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/vyrodovalexey/searchads-tap/internal/config"
	"github.com/vyrodovalexey/searchads-tap/internal/observability"
)

// Common resolver errors.
var (
	// ErrNoSource indicates that no private key source is configured.
	ErrNoSource = errors.New("no private key source configured")

	// ErrSecretNotFound indicates that the Vault secret or field is missing.
	ErrSecretNotFound = errors.New("private key secret not found")
)

// ResolveError wraps a failure to obtain the private key, annotated with
// the source it came from.
type ResolveError struct {
	Source string
	Cause  error
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolving private key from %s: %v", e.Source, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ResolveError) Unwrap() error {
	return e.Cause
}

// ResolvePrivateKey returns the PEM-encoded private key from whichever
// source the configuration names. The key material is returned as-is;
// parsing and algorithm checks belong to the signer.
func ResolvePrivateKey(ctx context.Context, cfg *config.PrivateKeyConfig, logger observability.Logger) (string, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if cfg == nil {
		return "", ErrNoSource
	}

	switch {
	case cfg.Value != "":
		logger.Debug("using inline private key")
		return cfg.Value, nil

	case cfg.File != "":
		logger.Debug("reading private key file",
			observability.String("path", cfg.File))
		data, err := os.ReadFile(cfg.File)
		if err != nil {
			return "", &ResolveError{Source: "file", Cause: err}
		}
		return string(data), nil

	case cfg.Vault != nil:
		return resolveFromVault(ctx, cfg.Vault, logger)

	default:
		return "", ErrNoSource
	}
}

// resolveFromVault reads the key from a Vault KV v2 secret.
func resolveFromVault(ctx context.Context, cfg *config.VaultKeyConfig, logger observability.Logger) (string, error) {
	vaultCfg := vaultapi.DefaultConfig()
	vaultCfg.Address = cfg.Address

	client, err := vaultapi.NewClient(vaultCfg)
	if err != nil {
		return "", &ResolveError{Source: "vault", Cause: err}
	}
	client.SetToken(cfg.Token)

	mount := cfg.Mount
	if mount == "" {
		mount = "secret"
	}
	field := cfg.Field
	if field == "" {
		field = "privateKey"
	}

	logger.Debug("reading private key from vault",
		observability.String("mount", mount),
		observability.String("path", cfg.Path),
		observability.String("field", field))

	secret, err := client.KVv2(mount).Get(ctx, cfg.Path)
	if err != nil {
		if errors.Is(err, vaultapi.ErrSecretNotFound) {
			return "", &ResolveError{Source: "vault", Cause: ErrSecretNotFound}
		}
		return "", &ResolveError{Source: "vault", Cause: err}
	}

	value, ok := secret.Data[field].(string)
	if !ok || strings.TrimSpace(value) == "" {
		return "", &ResolveError{
			Source: "vault",
			Cause:  fmt.Errorf("%w: field %q", ErrSecretNotFound, field),
		}
	}

	return value, nil
}
