package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the tuning file looked up in the working directory.
const DefaultConfigFile = "queryvault.yaml"

// Config holds all configuration for the pipeline. Credentials and endpoint
// references come from the environment; tuning knobs come from an optional
// YAML file. It is validated once at startup and passed by reference to every
// component.
type Config struct {
	// Environment-sourced fields. Required fields fail startup with the env
	// key named in the error.
	PineconeAPIKey string `yaml:"-" env:"PINECONE_API_KEY" validate:"required"`
	PineconeHost   string `yaml:"-" env:"PINECONE_HOST" validate:"required"`
	Namespace      string `yaml:"-" env:"PINECONE_NAMESPACE"`
	GoogleAPIKey   string `yaml:"-" env:"GOOGLE_API_KEY"`
	VoyageAPIKey   string `yaml:"-" env:"VOYAGEAI_API_KEY"`

	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Display   DisplayConfig   `yaml:"display"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`
	Ledger    LedgerConfig    `yaml:"ledger"`
}

// EmbeddingConfig selects and sizes the embedding provider. Dimension must
// match the hosted index dimension; changing the model invalidates any index
// built with a different dimension.
type EmbeddingConfig struct {
	Provider string `yaml:"provider" validate:"oneof=local voyage"`
	Model    string `yaml:"model" validate:"required"`
	BaseURL  string `yaml:"base_url"` // local provider only
	Dim      int    `yaml:"dimension" validate:"min=1"`
}

// IndexConfig holds upsert tuning for the hosted index.
type IndexConfig struct {
	BatchSize int `yaml:"batch_size" validate:"min=1"`
}

// RetrieveConfig holds query defaults.
type RetrieveConfig struct {
	TopK int `yaml:"top_k" validate:"min=1"`
}

// DisplayConfig declares the metadata key precedence used to shape result
// text. Producers have used different key conventions across iterations of
// the ingestion path, so the precedence is configuration, not code.
type DisplayConfig struct {
	Keys []string `yaml:"keys" validate:"min=1"`
}

// TimeoutConfig holds network timeouts in seconds. Model initialization can
// take tens of seconds to minutes, so it gets its own budget.
type TimeoutConfig struct {
	RequestSeconds int `yaml:"request_seconds" validate:"min=1"`
	InitSeconds    int `yaml:"init_seconds" validate:"min=1"`
}

// LedgerConfig locates the local ledger of ingested (id, content) pairs.
type LedgerConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider: "local",
			Model:    "all-MiniLM-L6-v2",
			BaseURL:  "http://localhost:8080/v1",
			Dim:      384,
		},
		Index: IndexConfig{
			BatchSize: 200,
		},
		Retrieve: RetrieveConfig{
			TopK: 5,
		},
		Display: DisplayConfig{
			Keys: []string{"content", "text", "chunk"},
		},
		Timeouts: TimeoutConfig{
			RequestSeconds: 30,
			InitSeconds:    120,
		},
		Ledger: LedgerConfig{
			Path: ".queryvault/ledger.db",
		},
	}
}

// Load builds the configuration from the optional YAML file at path (or
// ./queryvault.yaml when path is empty) plus the environment, then validates
// it. A missing required environment variable is fatal before any network
// call is attempted.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if explicit || !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.PineconeAPIKey = os.Getenv("PINECONE_API_KEY")
	cfg.PineconeHost = os.Getenv("PINECONE_HOST")
	cfg.Namespace = os.Getenv("PINECONE_NAMESPACE")
	cfg.GoogleAPIKey = os.Getenv("GOOGLE_API_KEY")
	cfg.VoyageAPIKey = os.Getenv("VOYAGEAI_API_KEY")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration, naming the offending env key or YAML
// field in the returned error.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("env"); name != "" {
			return name
		}
		if name := strings.Split(fld.Tag.Get("yaml"), ",")[0]; name != "" && name != "-" {
			return name
		}
		return fld.Name
	})

	err := v.Struct(c)
	if err == nil {
		return nil
	}

	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	fe := errs[0]
	if fe.Tag() == "required" {
		return &MissingKeyError{Key: fe.Field()}
	}
	return fmt.Errorf("invalid configuration value for %s (%s=%s)", fe.Field(), fe.Tag(), fe.Param())
}

// RequestTimeout returns the per-call timeout for query/upsert/fetch operations.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Timeouts.RequestSeconds) * time.Second
}

// InitTimeout returns the timeout for one-time embedding model initialization.
func (c *Config) InitTimeout() time.Duration {
	return time.Duration(c.Timeouts.InitSeconds) * time.Second
}

// MissingKeyError reports a required configuration key that was not set.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("missing required configuration: %s is not set", e.Key)
}
