// Package config defines and loads the tap configuration.
package config

import "time"

// Cache backend types.
const (
	CacheTypeFile  = "file"
	CacheTypeRedis = "redis"
)

// Defaults applied when the corresponding field is absent.
const (
	DefaultAudience   = "https://appleid.apple.com"
	DefaultAlgorithm  = "ES256"
	DefaultTokenURL   = "https://appleid.apple.com/auth/oauth2/token"
	DefaultAPIBaseURL = "https://api.searchads.apple.com/api/v4"

	// DefaultExpiration is the client secret validity window.
	DefaultExpiration = Duration(20 * time.Minute)

	DefaultCacheFileName = "auth-cache"
)

// Config is the root tap configuration.
type Config struct {
	Auth    AuthConfig    `yaml:"auth" json:"auth"`
	Cache   CacheConfig   `yaml:"cache" json:"cache"`
	API     APIConfig     `yaml:"api" json:"api"`
	Extract ExtractConfig `yaml:"extract" json:"extract"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// AuthConfig holds the signing identity and token endpoint settings.
type AuthConfig struct {
	// ClientID identifies the API client (JWT subject).
	ClientID string `yaml:"clientID" json:"clientID"`

	// TeamID identifies the developer team (JWT issuer).
	TeamID string `yaml:"teamID" json:"teamID"`

	// KeyID identifies the signing key (JWT kid header).
	KeyID string `yaml:"keyID" json:"keyID"`

	// OrgID is the organization context sent with every data API call.
	OrgID string `yaml:"orgID" json:"orgID"`

	// Audience is the JWT audience claim.
	Audience string `yaml:"audience,omitempty" json:"audience,omitempty"`

	// Algorithm is the JWT signing algorithm.
	Algorithm string `yaml:"algorithm,omitempty" json:"algorithm,omitempty"`

	// Expiration is the client secret validity window.
	Expiration Duration `yaml:"expiration,omitempty" json:"expiration,omitempty"`

	// TokenURL is the token exchange endpoint.
	TokenURL string `yaml:"tokenURL,omitempty" json:"tokenURL,omitempty"`

	// PrivateKey configures the private key source.
	PrivateKey PrivateKeyConfig `yaml:"privateKey" json:"privateKey"`
}

// PrivateKeyConfig selects exactly one private key source.
type PrivateKeyConfig struct {
	// Value is the PEM-encoded key material, inline.
	Value string `yaml:"value,omitempty" json:"value,omitempty"`

	// File is a path to a PEM file.
	File string `yaml:"file,omitempty" json:"file,omitempty"`

	// Vault reads the key from a Vault KV v2 secret.
	Vault *VaultKeyConfig `yaml:"vault,omitempty" json:"vault,omitempty"`
}

// VaultKeyConfig locates a PEM private key in Vault KV v2.
type VaultKeyConfig struct {
	Address string `yaml:"address" json:"address"`
	Token   string `yaml:"token,omitempty" json:"token,omitempty"`
	Mount   string `yaml:"mount" json:"mount"`
	Path    string `yaml:"path" json:"path"`

	// Field is the secret data key holding the PEM. Defaults to "privateKey".
	Field string `yaml:"field,omitempty" json:"field,omitempty"`
}

// CacheConfig configures the durable auth cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Type    string `yaml:"type,omitempty" json:"type,omitempty"`

	File  *FileCacheConfig  `yaml:"file,omitempty" json:"file,omitempty"`
	Redis *RedisCacheConfig `yaml:"redis,omitempty" json:"redis,omitempty"`
}

// FileCacheConfig configures the file-backed cache store.
type FileCacheConfig struct {
	// Directory must exist before the tap runs; its absence is a fatal
	// configuration error.
	Directory string `yaml:"directory" json:"directory"`

	// Name prefixes the entry files inside the directory.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
}

// RedisCacheConfig configures the Redis-backed cache store.
type RedisCacheConfig struct {
	URL            string   `yaml:"url" json:"url"`
	KeyPrefix      string   `yaml:"keyPrefix,omitempty" json:"keyPrefix,omitempty"`
	ConnectTimeout Duration `yaml:"connectTimeout,omitempty" json:"connectTimeout,omitempty"`
	ReadTimeout    Duration `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`
	WriteTimeout   Duration `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty"`
}

// APIConfig configures the data API client.
type APIConfig struct {
	BaseURL string   `yaml:"baseURL,omitempty" json:"baseURL,omitempty"`
	Timeout Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// RateLimit is the sustained request rate in requests per second.
	// Zero disables client-side rate limiting.
	RateLimit float64 `yaml:"rateLimit,omitempty" json:"rateLimit,omitempty"`
	RateBurst int     `yaml:"rateBurst,omitempty" json:"rateBurst,omitempty"`

	Breaker BreakerConfig `yaml:"breaker,omitempty" json:"breaker,omitempty"`
}

// BreakerConfig configures the circuit breaker around data API calls.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that trips
	// the breaker. Zero disables the breaker.
	FailureThreshold uint32   `yaml:"failureThreshold,omitempty" json:"failureThreshold,omitempty"`
	Timeout          Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	MaxRequests      uint32   `yaml:"maxRequests,omitempty" json:"maxRequests,omitempty"`
}

// ExtractConfig bounds the report extraction window.
type ExtractConfig struct {
	// StartTime and EndTime are report window bounds, YYYY-MM-DD.
	StartTime string `yaml:"startTime,omitempty" json:"startTime,omitempty"`
	EndTime   string `yaml:"endTime,omitempty" json:"endTime,omitempty"`

	// Selector is forwarded opaquely in report query bodies.
	Selector map[string]interface{} `yaml:"selector,omitempty" json:"selector,omitempty"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty" json:"level,omitempty"`
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
}

// DefaultConfig returns a configuration with all defaults applied and no
// identity or key material set.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills zero-valued optional fields.
func (c *Config) applyDefaults() {
	if c.Auth.Audience == "" {
		c.Auth.Audience = DefaultAudience
	}
	if c.Auth.Algorithm == "" {
		c.Auth.Algorithm = DefaultAlgorithm
	}
	if c.Auth.Expiration == 0 {
		c.Auth.Expiration = DefaultExpiration
	}
	if c.Auth.TokenURL == "" {
		c.Auth.TokenURL = DefaultTokenURL
	}
	if c.Auth.PrivateKey.Vault != nil && c.Auth.PrivateKey.Vault.Field == "" {
		c.Auth.PrivateKey.Vault.Field = "privateKey"
	}
	if c.Cache.Enabled && c.Cache.Type == "" {
		c.Cache.Type = CacheTypeFile
	}
	if c.Cache.File != nil && c.Cache.File.Name == "" {
		c.Cache.File.Name = DefaultCacheFileName
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultAPIBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = Duration(30 * time.Second)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}
