package config

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/grovetools/slotsync/errors"
	"github.com/grovetools/slotsync/pkg/paths"
	"github.com/grovetools/slotsync/schema"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// Format is the on-disk encoding of a configuration file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// configNames are searched in order in every directory.
var configNames = []string{
	"slotsync.yml",
	"slotsync.yaml",
	".slotsync.yml",
	".slotsync.yaml",
	"slotsync.toml",
}

// FormatForPath picks the decoder from the file extension.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Load reads and parses a slotsync configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	cfg, err := LoadFromBytes(data, FormatForPath(path))
	if err != nil {
		if syncErr, ok := errors.As(err); ok {
			return nil, syncErr.WithDetail("path", path)
		}
		return nil, err
	}
	return cfg, nil
}

// LoadDefault finds and loads the configuration starting from the working directory.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to get current directory")
	}

	return LoadFrom(cwd)
}

// LoadFrom finds and loads the configuration starting from the given directory
func LoadFrom(startDir string) (*Config, error) {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return LoadFromWithLogger(startDir, logger)
}

// LoadFromWithLogger finds and loads the configuration with logging
func LoadFromWithLogger(startDir string, logger *logrus.Logger) (*Config, error) {
	path, err := FindConfigFile(startDir)
	if err != nil {
		return nil, err
	}

	logger.WithField("path", path).Debug("Loading configuration")

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	logger.Debug("Configuration loaded and validated successfully")

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		if data, err := yaml.Marshal(cfg); err == nil {
			logger.Debugf("Effective configuration:\n%s", string(data))
		}
	}

	return cfg, nil
}

// Resolve loads the explicit path when given, otherwise searches from the
// working directory. A missing file (search only) yields the defaults and an
// empty path.
func Resolve(explicitPath string) (*Config, string, error) {
	if explicitPath != "" {
		cfg, err := Load(explicitPath)
		return cfg, explicitPath, err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to get current directory")
	}

	path, err := FindConfigFile(cwd)
	if err != nil {
		if errors.Is(err, errors.ErrCodeConfigNotFound) {
			return Default(), "", nil
		}
		return nil, "", err
	}

	cfg, err := Load(path)
	return cfg, path, err
}

// Default returns a configuration with only defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// LoadFromBytes parses, validates and defaults configuration data.
func LoadFromBytes(data []byte, format Format) (*Config, error) {
	expanded := []byte(expandEnvVars(string(data)))

	raw, err := decodeRaw(expanded, format)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse configuration").
			WithDetail("format", string(format))
	}

	validator, err := schema.Default()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to create validator")
	}
	if err := validator.Validate(raw); err != nil {
		wrapped := errors.Wrap(err, errors.ErrCodeConfigValidation, "schema validation failed")
		if verr, ok := err.(*schema.ValidationError); ok {
			wrapped = wrapped.WithDetail("violations", verr.Violations)
		}
		return nil, wrapped
	}

	cfg, err := decodeConfig(expanded, format, raw)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to decode configuration")
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// decodeRaw decodes data into a generic document for schema validation.
func decodeRaw(data []byte, format Format) (map[string]interface{}, error) {
	raw := make(map[string]interface{})
	if len(bytes.TrimSpace(data)) == 0 {
		return raw, nil
	}

	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	}
	if raw == nil {
		raw = make(map[string]interface{})
	}
	return raw, nil
}

func decodeConfig(data []byte, format Format, raw map[string]interface{}) (*Config, error) {
	var cfg Config
	if len(bytes.TrimSpace(data)) == 0 {
		return &cfg, nil
	}

	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
		// go-toml has no inline capture; collect unknown tables by hand.
		for key, value := range raw {
			if knownKeys[key] {
				continue
			}
			if cfg.Extensions == nil {
				cfg.Extensions = make(map[string]interface{})
			}
			cfg.Extensions[key] = value
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

var knownKeys = map[string]bool{
	"version":  true,
	"endpoint": true,
	"stream":   true,
	"display":  true,
}

// FindConfigFile searches for slotsync configuration files with the following precedence:
// 1. Current directory up to filesystem root
// 2. XDG config directory (~/.config/slotsync/slotsync.yml)
func FindConfigFile(startDir string) (string, error) {
	dir := startDir
	for {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if xdgConfigPath := paths.ConfigFile(); xdgConfigPath != "" {
		if info, err := os.Stat(xdgConfigPath); err == nil && !info.IsDir() {
			return xdgConfigPath, nil
		}
	}

	return "", errors.ConfigNotFound(startDir).WithDetail("searchPath", startDir)
}

// expandEnvVars replaces ${VAR} with environment variable values
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		// ${VAR:-default}
		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultValue
	})
}
