package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/promptdb/internal/registry"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Proof decoders.
const (
	ProofDecoderRaw  = "raw"
	ProofDecoderCBOR = "cbor"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Registry RegistryConfig    `yaml:"registry"`
	Proof    ProofConfig       `yaml:"proof"`
	Ledger   LedgerConfig      `yaml:"ledger"`
	Spool    SpoolConfig       `yaml:"spool"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Registry.Validate(); err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	if err := c.Proof.Validate(); err != nil {
		return fmt.Errorf("proof: %w", err)
	}
	if err := c.Ledger.Validate(); err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	if err := c.Spool.Validate(); err != nil {
		return fmt.Errorf("spool: %w", err)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// RegistryConfig bounds the in-memory table registry.
type RegistryConfig struct {
	MaxTables    int `yaml:"max_tables"`
	MaxNameBytes int `yaml:"max_name_bytes"`
}

// Validate validates the registry configuration.
func (c *RegistryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxTables, validation.Required, validation.Min(1), validation.Max(1<<16)),
		validation.Field(&c.MaxNameBytes, validation.Required, validation.Min(1), validation.Max(4096)),
	)
}

// Options converts the configuration to registry options.
func (c *RegistryConfig) Options() []registry.Option {
	return []registry.Option{
		registry.WithMaxTables(c.MaxTables),
		registry.WithMaxNameBytes(c.MaxNameBytes),
	}
}

// ProofConfig selects the proof blob decoder.
type ProofConfig struct {
	Decoder string `yaml:"decoder"`
}

// Validate validates the proof configuration.
func (c *ProofConfig) Validate() error {
	if c.Decoder == "" {
		c.Decoder = ProofDecoderRaw
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Decoder, validation.In(ProofDecoderRaw, ProofDecoderCBOR)),
	)
}

// LedgerConfig holds the SQLite evidence ledger configuration.
type LedgerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Validate validates the ledger configuration.
func (c *LedgerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.Enabled, validation.Required)),
	)
}

// SpoolConfig holds the drop directory watched for insert request files.
type SpoolConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Validate validates the spool configuration.
func (c *SpoolConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.Enabled, validation.Required)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Registry: RegistryConfig{
			MaxTables:    registry.DefaultMaxTables,
			MaxNameBytes: registry.DefaultMaxNameBytes,
		},
		Proof: ProofConfig{
			Decoder: ProofDecoderRaw,
		},
		Ledger: LedgerConfig{
			Enabled: true,
			Path:    "./promptdb.db",
		},
		Spool: SpoolConfig{
			Enabled: false,
			Path:    "./spool",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
