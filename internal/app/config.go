package app

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	defaultAddress  = "127.0.0.1:8089"
	defaultLogLevel = "NOTICE"
)

// Logging is the daemon logging configuration.
type Logging struct {
	// Disable disables logging entirely.
	Disable bool
	// File specifies the log file, if omitted stderr will be used.
	File string
	// Level specifies the log level.
	Level string
}

func (l *Logging) validate() error {
	switch l.Level {
	case "ERROR", "WARNING", "NOTICE", "INFO", "DEBUG":
		return nil
	default:
		return fmt.Errorf("config: Logging: invalid Level: '%v'", l.Level)
	}
}

// Server is the daemon server configuration.
type Server struct {
	// Address is the listen address.
	Address string
	// DataDir is the absolute path holding the database and blobs.
	DataDir string
	// Metrics enables the prometheus endpoint.
	Metrics bool
}

// Config is the top-level daemon configuration.
type Config struct {
	Server  Server
	Logging *Logging
}

// FixupAndValidate applies defaults and validates the configuration.
func (c *Config) FixupAndValidate() error {
	if c.Server.Address == "" {
		c.Server.Address = defaultAddress
	}
	if c.Server.DataDir == "" {
		return fmt.Errorf("config: Server: DataDir is required")
	}
	if !filepath.IsAbs(c.Server.DataDir) {
		return fmt.Errorf("config: Server: DataDir '%v' is not an absolute path", c.Server.DataDir)
	}
	if c.Logging == nil {
		c.Logging = &Logging{Level: defaultLogLevel}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return c.Logging.validate()
}

// LoadFile loads, parses and validates the daemon configuration at path.
func LoadFile(path string) (*Config, error) {
	cfg := new(Config)
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ClientConfig holds runtime wiring options for the CLI.
type ClientConfig struct {
	VaultURL string       // vault base URL, e.g. http://127.0.0.1:8089
	BlobDir  string       // directory holding ciphertext blobs
	HTTP     *http.Client // optional; defaults to http.DefaultClient
	LogLevel string       // empty means NOTICE
}
