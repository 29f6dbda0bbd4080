package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the docsig service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Signature SignatureConfig `yaml:"signature"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds redis/valkey connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// IngestConfig bounds batch ingestion.
type IngestConfig struct {
	Concurrency  int `yaml:"concurrency"`
	MaxBatchSize int `yaml:"max_batch_size"`
}

// SignatureConfig configures document signing.
// There is deliberately no overwrite switch: duplicates are tagged, never replaced.
type SignatureConfig struct {
	Enabled          *bool  `yaml:"enabled"` // default true
	SignatureField   string `yaml:"signature_field"`
	UniqueIDField    string `yaml:"unique_id_field"`
	ContentHashField string `yaml:"content_hash_field"`
	TextField        string `yaml:"text_field"`

	TextSignatureFields    FieldList `yaml:"text_signature_fields"`
	TextSignatureAlgorithm string    `yaml:"text_signature_algorithm"`

	// OtherSignatureFields empty means every document field.
	OtherSignatureFields    FieldList `yaml:"other_signature_fields"`
	OtherSignatureAlgorithm string    `yaml:"other_signature_algorithm"`

	TextProfile TextProfileConfig `yaml:"text_profile"`
}

// TextProfileConfig tunes the fuzzy text fingerprint.
type TextProfileConfig struct {
	QuantRate   float64 `yaml:"quant_rate"`
	MinTokenLen int     `yaml:"min_token_len"`
}

// IsEnabled reports whether signing is on. Unset means on.
func (s SignatureConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// FieldList is a list of field names. YAML accepts a sequence or a comma separated string.
type FieldList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *FieldList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*f = splitFields(strings.Split(node.Value, ","))
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return fmt.Errorf("field list: %w", err)
		}
		*f = splitFields(items)
		return nil
	default:
		return fmt.Errorf("field list: line %d: expected string or sequence", node.Line)
	}
}

func splitFields(items []string) FieldList {
	var out FieldList
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML after ${VAR} substitution, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Ingest.Concurrency <= 0 {
		c.Ingest.Concurrency = 8
	}
	if c.Ingest.MaxBatchSize <= 0 {
		c.Ingest.MaxBatchSize = 100
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "docsig:"
	}
	c.Signature.applyDefaults()
}

func (s *SignatureConfig) applyDefaults() {
	if s.SignatureField == "" {
		s.SignatureField = "__signature"
	}
	if s.UniqueIDField == "" {
		s.UniqueIDField = "id_unique"
	}
	if s.ContentHashField == "" {
		s.ContentHashField = "content_hash"
	}
	if s.TextField == "" {
		s.TextField = "text"
	}
	if len(s.TextSignatureFields) == 0 {
		s.TextSignatureFields = FieldList{"title", "text"}
	}
	if s.TextSignatureAlgorithm == "" {
		s.TextSignatureAlgorithm = "text_profile"
	}
	if s.OtherSignatureAlgorithm == "" {
		s.OtherSignatureAlgorithm = "xxhash64"
	}
	if s.TextProfile.QuantRate == 0 {
		s.TextProfile.QuantRate = 0.01
	}
	if s.TextProfile.MinTokenLen == 0 {
		s.TextProfile.MinTokenLen = 2
	}
}

// Validate checks the configuration for correctness.
// Field names and algorithm identifiers are checked when the signature registry is built.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if tp := c.Signature.TextProfile; tp.QuantRate < 0 || tp.QuantRate > 1 {
		return fmt.Errorf("signature.text_profile.quant_rate must be between 0 and 1, got %v", tp.QuantRate)
	}
	if c.Signature.TextProfile.MinTokenLen < 0 {
		return fmt.Errorf(
			"signature.text_profile.min_token_len must not be negative, got %d",
			c.Signature.TextProfile.MinTokenLen,
		)
	}
	if c.Ingest.Concurrency > c.Ingest.MaxBatchSize {
		return fmt.Errorf(
			"ingest.concurrency (%d) must not exceed ingest.max_batch_size (%d)",
			c.Ingest.Concurrency, c.Ingest.MaxBatchSize,
		)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
