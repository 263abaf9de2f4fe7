// Package config loads the service configuration from a YAML or JSON file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Database Database `yaml:"database"`
	HTTP     HTTP     `yaml:"http"`
	Log      Log      `yaml:"log"`
	Lang     string   `yaml:"lang"`
	Publish  Publish  `yaml:"publish"`
	SMTP     SMTP     `yaml:"smtp"`
}

// Database selects the database/sql driver ("sqlite" or "pgx") and its DSN.
type Database struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// UnmarshalYAML also accepts a bare string, read as a sqlite file path.
func (d *Database) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		d.Driver = "sqlite"
		return n.Decode(&d.DSN)
	}
	type plain Database
	return n.Decode((*plain)(d))
}

// HTTP configures the listener and the router implementation ("echo" or "gin").
type HTTP struct {
	Addr   string `yaml:"addr"`
	Engine string `yaml:"engine"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Publish is the publishing API the intake app forwards letters to.
type Publish struct {
	URL string `yaml:"url"`
}

// SMTP is the mail relay used for letter notifications. An empty Host
// disables mail.
type SMTP struct {
	Host     string `yaml:"hostname"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// Enabled reports whether mail delivery is configured.
func (s SMTP) Enabled() bool { return s.Host != "" }

// Addr returns host:port.
func (s SMTP) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Database: Database{Driver: "sqlite", DSN: "plasm.db"},
		HTTP:     HTTP{Addr: ":9001", Engine: "echo"},
		Log:      Log{Level: "info", Format: "text"},
		Lang:     "en",
		Publish:  Publish{URL: "http://localhost:9000/letter"},
		SMTP:     SMTP{Port: 465},
	}
}

// Load reads path over the defaults, applies PLASM_* environment overrides
// and validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("PLASM_DATABASE_DRIVER"); ok {
		c.Database.Driver = v
	}
	if v, ok := lookup("PLASM_DATABASE_DSN"); ok {
		c.Database.DSN = v
	}
	if v, ok := lookup("PLASM_HTTP_ADDR"); ok {
		c.HTTP.Addr = v
	}
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "sqlite", "pgx":
	default:
		errs = append(errs, fmt.Errorf("config: database.driver %q must be sqlite or pgx", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("config: database.dsn is required"))
	}
	switch c.HTTP.Engine {
	case "echo", "gin":
	default:
		errs = append(errs, fmt.Errorf("config: http.engine %q must be echo or gin", c.HTTP.Engine))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: log.format %q must be text or json", c.Log.Format))
	}
	if c.SMTP.Enabled() && (c.SMTP.Port <= 0 || c.SMTP.From == "" || c.SMTP.To == "") {
		errs = append(errs, errors.New("config: smtp needs port, from and to when hostname is set"))
	}
	return errors.Join(errs...)
}

// SlogLevel parses Level.
func (l Log) SlogLevel() (slog.Level, error) {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return 0, fmt.Errorf("config: log.level %q: %w", l.Level, err)
	}
	return lv, nil
}

// NewLogger builds the slog logger described by l.
func (l Log) NewLogger(w io.Writer) (*slog.Logger, error) {
	lv, err := l.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lv}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
