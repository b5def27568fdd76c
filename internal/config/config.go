// Package config loads streamdown's TOML configuration file, seeding
// defaults with viper and writing the file on first run exactly as the
// original implementation's ensure_config_file() does.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// defaultTOML is written verbatim to config.toml the first time streamdown
// runs on a machine. Values mirror the original implementation's defaults.
const defaultTOML = `[features]
CodeSpaces = true
Clipboard  = true
Logging    = false
Timeout    = 0.5

[style]
Margin      = 2
ListIndent  = 2
PrettyPad   = false
Width       = 0
HSV     = [0.8, 0.5, 0.5]
Dark    = { H = 1.00, S = 1.50, V = 0.25 }
Mid     = { H = 1.00, S = 1.00, V = 0.50 }
Symbol  = { H = 1.00, S = 1.00, V = 1.50 }
Head    = { H = 1.00, S = 2.00, V = 1.50 }
Grey    = { H = 1.00, S = 0.12, V = 1.25 }
Bright  = { H = 1.00, S = 2.00, V = 2.00 }
Syntax  = "monokai"
`

// Multiplier is a per-role HSV multiplier applied to the base HSV triple by
// internal/style to derive one of the six role colors.
type Multiplier struct {
	H float64 `mapstructure:"H"`
	S float64 `mapstructure:"S"`
	V float64 `mapstructure:"V"`
}

// Features toggles the optional behaviors described in spec.md §6.
// CodeSpaces is loaded but not read by the renderer: four-space indented
// code detection in internal/block is always on.
type Features struct {
	CodeSpaces bool    `mapstructure:"CodeSpaces"`
	Clipboard  bool    `mapstructure:"Clipboard"`
	Logging    bool    `mapstructure:"Logging"`
	Timeout    float64 `mapstructure:"Timeout"`
}

// Style holds the layout and color-role settings consumed by
// internal/style, internal/wrap and internal/codeblock.
type Style struct {
	Margin     int        `mapstructure:"Margin"`
	ListIndent int        `mapstructure:"ListIndent"`
	PrettyPad  bool       `mapstructure:"PrettyPad"`
	Width      int        `mapstructure:"Width"`
	HSV        [3]float64 `mapstructure:"HSV"`
	Dark       Multiplier `mapstructure:"Dark"`
	Mid        Multiplier `mapstructure:"Mid"`
	Symbol     Multiplier `mapstructure:"Symbol"`
	Head       Multiplier `mapstructure:"Head"`
	Grey       Multiplier `mapstructure:"Grey"`
	Bright     Multiplier `mapstructure:"Bright"`
	Syntax     string     `mapstructure:"Syntax"`
}

// Config is the fully resolved streamdown configuration.
type Config struct {
	Features Features `mapstructure:"features"`
	Style    Style    `mapstructure:"style"`
}

// defaults mirrors defaultTOML as a map so viper.SetDefault can seed every
// key before the file on disk is read, the same single-source-of-truth
// pattern the teacher's GetDefaults() uses.
func defaults() map[string]any {
	return map[string]any{
		"features.codespaces": true,
		"features.clipboard":  true,
		"features.logging":    false,
		"features.timeout":    0.5,

		"style.margin":     2,
		"style.listindent": 2,
		"style.prettypad":  false,
		"style.width":      0,
		"style.hsv":        []float64{0.8, 0.5, 0.5},
		"style.dark":       map[string]float64{"H": 1.00, "S": 1.50, "V": 0.25},
		"style.mid":        map[string]float64{"H": 1.00, "S": 1.00, "V": 0.50},
		"style.symbol":     map[string]float64{"H": 1.00, "S": 1.00, "V": 1.50},
		"style.head":       map[string]float64{"H": 1.00, "S": 2.00, "V": 1.50},
		"style.grey":       map[string]float64{"H": 1.00, "S": 0.12, "V": 1.25},
		"style.bright":     map[string]float64{"H": 1.00, "S": 2.00, "V": 2.00},
		"style.syntax":     "monokai",
	}
}

// Load reads $XDG_CONFIG_HOME/streamdown/config.toml (creating it with
// defaults on first run), applying viper defaults for any key the file
// omits, and unmarshals the result into a Config.
func Load() (*Config, error) {
	configPath, err := EnsureConfigFile()
	if err != nil {
		return nil, fmt.Errorf("failed to ensure config file: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// EnsureConfigFile creates $XDG_CONFIG_HOME/streamdown/config.toml with
// defaultTOML if it does not already exist, and returns its path.
func EnsureConfigFile() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config dir: %w", err)
	}

	path := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte(defaultTOML), 0o644); err != nil {
			return "", fmt.Errorf("failed to write default config: %w", err)
		}
	} else if err != nil {
		return "", err
	}

	return path, nil
}

// GetConfigDir returns the XDG config directory for streamdown.
// Uses $XDG_CONFIG_HOME if set, otherwise os.UserConfigDir.
func GetConfigDir() (string, error) {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, "streamdown"), nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "streamdown"), nil
}
