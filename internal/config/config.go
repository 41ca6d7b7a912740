package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/diagimmo/suiviclientpro/internal/jsonfile"
	"github.com/diagimmo/suiviclientpro/internal/source"
)

// Default file names, relative to the working directory.
const (
	DefaultConfigFile      = "config_suiviclientpro.json"
	DefaultStateFile       = "manual_states.json"
	DefaultCheckpointFile  = "historique_scan.json"
	DefaultCredentialsFile = "credentials.json"
	DefaultTokenFile       = "token.json"
)

// Environment variables.
const (
	EnvHome           = "SUIVI_HOME"
	EnvConfig         = "SUIVI_CONFIG"
	EnvState          = "SUIVI_STATE"
	EnvCheckpoint     = "SUIVI_CHECKPOINT"
	EnvCredentials    = "SUIVI_CREDENTIALS"
	EnvToken          = "SUIVI_TOKEN"
	EnvAccessPath     = "SUIVI_ACCESS_PATH"
	EnvSourceDriver   = "SUIVI_SOURCE_DRIVER"
	EnvEmail          = "SUIVI_EMAIL"
	EnvConnectTimeout = "SUIVI_CONNECT_TIMEOUT"
	EnvWriteBack      = "SUIVI_WRITE_BACK"
)

// ErrNotConfigured is returned when an operation needs a setting that is empty.
var ErrNotConfigured = errors.New("not configured")

// Config is the configuration document.
type Config struct {
	AccessPath          string   `json:"access_path"`
	ClientsParentFolder string   `json:"clients_parent_folder"`
	EmailAddress        string   `json:"email_address"`
	AllClientFolders    []string `json:"all_client_folders"`
	SourceDriver        string   `json:"source_driver,omitempty"`

	// Runtime settings, not persisted.
	ConnectTimeout time.Duration `json:"-"`
	WriteBack      bool          `json:"-"`
}

// Load reads the document at path. A missing document yields the zero Config and
// found == false.
func Load(path string) (cfg Config, found bool, err error) {
	found, err = jsonfile.Read(path, &cfg)
	if err != nil {
		return Config{}, found, err
	}
	return cfg, found, nil
}

// Save writes the document atomically.
func Save(path string, cfg Config) error {
	if cfg.AllClientFolders == nil {
		cfg.AllClientFolders = []string{}
	}
	if err := jsonfile.Write(path, cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	return nil
}

// ApplyEnv overrides the document settings with the SUIVI_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvAccessPath); v != "" {
		c.AccessPath = v
	}
	if v := os.Getenv(EnvSourceDriver); v != "" {
		c.SourceDriver = v
	}
	if v := os.Getenv(EnvEmail); v != "" {
		c.EmailAddress = v
	}
	if v := os.Getenv(EnvConnectTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvConnectTimeout, err)
		}
		c.ConnectTimeout = d
	}
	if v := os.Getenv(EnvWriteBack); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvWriteBack, err)
		}
		c.WriteBack = b
	}
	return nil
}

// Descriptor returns the record source location.
func (c Config) Descriptor() (source.Descriptor, error) {
	if strings.TrimSpace(c.AccessPath) == "" {
		return source.Descriptor{}, fmt.Errorf("%w: access_path is empty, run configure", ErrNotConfigured)
	}
	return source.Descriptor{
		Driver:         c.SourceDriver,
		Path:           c.AccessPath,
		ConnectTimeout: c.ConnectTimeout,
	}, nil
}

// EligibleSet returns the cached client-folder names as a set.
func (c Config) EligibleSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.AllClientFolders))
	for _, n := range c.AllClientFolders {
		set[n] = struct{}{}
	}
	return set
}

// Paths locates the files of the tool.
type Paths struct {
	Config      string
	State       string
	Checkpoint  string
	Credentials string
	Token       string
}

// DefaultPaths returns the default file names under dir.
func DefaultPaths(dir string) Paths {
	return Paths{
		Config:      filepath.Join(dir, DefaultConfigFile),
		State:       filepath.Join(dir, DefaultStateFile),
		Checkpoint:  filepath.Join(dir, DefaultCheckpointFile),
		Credentials: filepath.Join(dir, DefaultCredentialsFile),
		Token:       filepath.Join(dir, DefaultTokenFile),
	}
}

// ResolvePaths returns the default paths under SUIVI_HOME (or the working directory)
// with every SUIVI_* path override applied.
func ResolvePaths() Paths {
	dir := os.Getenv(EnvHome)
	if dir == "" {
		dir = "."
	}
	p := DefaultPaths(dir)
	override := func(dst *string, env string) {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	override(&p.Config, EnvConfig)
	override(&p.State, EnvState)
	override(&p.Checkpoint, EnvCheckpoint)
	override(&p.Credentials, EnvCredentials)
	override(&p.Token, EnvToken)
	return p
}

// LoadDotEnv loads environment variables from the given files, or from .env when none
// is given. Missing files are ignored; variables already set are kept.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load %s: %w", strings.Join(existing, ", "), err)
	}
	return nil
}
