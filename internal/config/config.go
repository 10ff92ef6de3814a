// Package config loads the settings of a visa-bulletin run.
//
// Settings come from an optional YAML file, then from VISA_BULLETIN_*
// environment variables, then from command-line flags applied by the caller.
// Later sources win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pfrederiksen/visa-bulletin/internal/crypto"
	"github.com/pfrederiksen/visa-bulletin/internal/logger"
	"github.com/pfrederiksen/visa-bulletin/internal/notifier"
	"github.com/pfrederiksen/visa-bulletin/internal/scraper"
	yaml "gopkg.in/yaml.v3"
)

const (
	EnvPrefix = "VISA_BULLETIN_"

	DefaultPath    = "~/.config/visa-bulletin/config.yaml"
	DefaultDataDir = "~/.local/share/visa-bulletin"
	DefaultRetries = 2
)

// Config is the full set of run settings
type Config struct {
	DataDir     string        `yaml:"data_dir"`
	IndexURL    string        `yaml:"index_url"`
	Timeout     time.Duration `yaml:"timeout"`
	Retries     int           `yaml:"retries"`
	ArchivePath string        `yaml:"archive_path"`
	Listen      string        `yaml:"listen"`

	SMTP SMTP `yaml:"smtp"`
	Log  Log  `yaml:"log"`

	// SecretKey opens SMTP.PasswordEncrypted. It is read from the environment only.
	SecretKey string `yaml:"-"`
}

// SMTP holds the mail transport settings
type SMTP struct {
	Host              string `yaml:"host"`
	Port              int    `yaml:"port"`
	Sender            string `yaml:"sender"`
	Recipient         string `yaml:"recipient"`
	Password          string `yaml:"password"`
	PasswordEncrypted string `yaml:"password_encrypted"`
}

// Log holds the logging settings
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		DataDir:  DefaultDataDir,
		IndexURL: scraper.IndexURL,
		Timeout:  scraper.Timeout,
		Retries:  DefaultRetries,
		Listen:   ":8080",
		Log: Log{
			Level:  "info",
			Format: string(logger.FormatJSON),
		},
	}
}

// Load reads the YAML file at path over the defaults and applies the environment.
// A missing file is not an error when path is the default location.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	if err := cfg.loadFile(ExpandHome(path)); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return cfg, err
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays VISA_BULLETIN_* variables found through lookup
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		return strings.TrimSpace(v), true
	}

	fields := map[string]*string{
		"DATA_DIR":                &c.DataDir,
		"INDEX_URL":               &c.IndexURL,
		"ARCHIVE_PATH":            &c.ArchivePath,
		"LISTEN":                  &c.Listen,
		"SMTP_HOST":               &c.SMTP.Host,
		"SMTP_SENDER":             &c.SMTP.Sender,
		"SMTP_RECIPIENT":          &c.SMTP.Recipient,
		"SMTP_PASSWORD":           &c.SMTP.Password,
		"SMTP_PASSWORD_ENCRYPTED": &c.SMTP.PasswordEncrypted,
		"SECRET_KEY":              &c.SecretKey,
		"LOG_LEVEL":               &c.Log.Level,
		"LOG_FORMAT":              &c.Log.Format,
	}
	for name, field := range fields {
		if v, ok := get(name); ok {
			*field = v
		}
	}

	var errs []error
	if v, ok := get("SMTP_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sSMTP_PORT: %w", EnvPrefix, err))
		} else {
			c.SMTP.Port = port
		}
	}
	if v, ok := get("TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sTIMEOUT: %w", EnvPrefix, err))
		} else {
			c.Timeout = d
		}
	}
	if v, ok := get("RETRIES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sRETRIES: %w", EnvPrefix, err))
		} else {
			c.Retries = n
		}
	}
	return errors.Join(errs...)
}

// Validate reports every missing or malformed setting at once. SMTP settings are
// only checked when requireSMTP is set.
func (c Config) Validate(requireSMTP bool) error {
	var errs []error

	if strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	if c.IndexURL == "" {
		errs = append(errs, errors.New("index_url is required"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.Retries < 0 {
		errs = append(errs, fmt.Errorf("retries must not be negative, got %d", c.Retries))
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	switch logger.Format(c.Log.Format) {
	case logger.FormatJSON, logger.FormatConsole:
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}

	if requireSMTP {
		if c.SMTP.Host == "" {
			errs = append(errs, errors.New("smtp.host is required"))
		}
		if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
			errs = append(errs, errors.New("smtp.port is required"))
		}
		if c.SMTP.Sender == "" {
			errs = append(errs, errors.New("smtp.sender is required"))
		}
		if c.SMTP.Recipient == "" {
			errs = append(errs, errors.New("smtp.recipient is required"))
		}
		switch {
		case c.SMTP.Password == "" && c.SMTP.PasswordEncrypted == "":
			errs = append(errs, errors.New("smtp.password or smtp.password_encrypted is required"))
		case c.SMTP.Password == "" && c.SecretKey == "":
			errs = append(errs, fmt.Errorf("%sSECRET_KEY is required to use smtp.password_encrypted", EnvPrefix))
		}
	}

	return errors.Join(errs...)
}

// SMTPPassword returns the plain SMTP secret, decrypting it when only the
// encrypted form is configured
func (c Config) SMTPPassword() (string, error) {
	if c.SMTP.Password != "" {
		return c.SMTP.Password, nil
	}
	if c.SMTP.PasswordEncrypted == "" {
		return "", errors.New("no smtp password configured")
	}

	enc, err := crypto.NewEncryptor(c.SecretKey)
	if err != nil {
		return "", fmt.Errorf("opening smtp password: %w", err)
	}
	password, err := enc.Decrypt(c.SMTP.PasswordEncrypted)
	if err != nil {
		return "", fmt.Errorf("opening smtp password: %w", err)
	}
	return password, nil
}

// NotifierConfig builds the mail transport settings
func (c Config) NotifierConfig() (notifier.SMTPConfig, error) {
	password, err := c.SMTPPassword()
	if err != nil {
		return notifier.SMTPConfig{}, err
	}
	return notifier.SMTPConfig{
		Host:      c.SMTP.Host,
		Port:      c.SMTP.Port,
		Sender:    c.SMTP.Sender,
		Recipient: c.SMTP.Recipient,
		Password:  password,
		Timeout:   c.Timeout,
	}, nil
}

// ScraperConfig builds the page fetch settings
func (c Config) ScraperConfig() scraper.Config {
	return scraper.Config{
		IndexURL: c.IndexURL,
		Timeout:  c.Timeout,
		Retries:  c.Retries,
	}
}

// ExpandHome replaces a leading "~/" with the user's home directory
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
