package config

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config controls the driver only; the compiler passes never read it.
type Config struct {
	Input struct {
		Path string `yaml:"path"`
	} `yaml:"input"`
	Dump struct {
		Tokens string `yaml:"tokens"` // file to mirror the token list into, "" disables
		AST    bool   `yaml:"ast"`
		IR     string `yaml:"ir"` // file to write IR text into, "" means stdout only
	} `yaml:"dump"`
}

// Default returns the built-in configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.Input.Path = "input.fn"
	cfg.Dump.Tokens = "tokens.txt"
	return cfg
}

// Load reads the YAML config at path and applies FNC_* environment
// overrides. A missing file yields the defaults, not an error; a .env
// file is loaded best-effort first.
func Load(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	file, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// 3. Override with environment variables if present
	if input := os.Getenv("FNC_INPUT"); input != "" {
		cfg.Input.Path = input
	}
	if tokens := os.Getenv("FNC_DUMP_TOKENS"); tokens != "" {
		cfg.Dump.Tokens = tokens
	}
	if ir := os.Getenv("FNC_DUMP_IR"); ir != "" {
		cfg.Dump.IR = ir
	}

	return cfg, nil
}
