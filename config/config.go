// Package config loads pivert's configuration file: where the emulated
// card listens (spec.md section 6's transport) and where the operator's
// PKCS#12 bundle lives. Grounded on barnettlynn-nfctools'
// */internal/config/config.go (yaml.Decoder with KnownFields(true), a
// Validate method, paths resolved relative to the config file's own
// directory).
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is pivert's top-level configuration document.
type Config struct {
	Credential CredentialConfig `yaml:"credential"`
	Listen     ListenConfig     `yaml:"listen"`
	LogLevel   string           `yaml:"log_level,omitempty"`
}

// CredentialConfig names the operator-supplied PKCS#12 bundle.
type CredentialConfig struct {
	PFXFile string `yaml:"pfx_file"`
}

// ListenConfig names the transport endpoint the virtual reader connects
// to, per spec.md section 6.
type ListenConfig struct {
	// Pipe is the Windows named-pipe path, or the Unix-domain socket path
	// on non-Windows platforms.
	Pipe string `yaml:"pipe"`
}

// Load reads, decodes, resolves relative paths in, and validates the
// configuration file at path.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.resolvePaths(path)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every required field is present and that the PFX
// path exists and is not a directory. It does not open the file.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Credential.PFXFile) == "" {
		return fmt.Errorf("config: credential.pfx_file is required")
	}
	if err := validateReadableFile(c.Credential.PFXFile, "config.credential.pfx_file"); err != nil {
		return err
	}
	if strings.TrimSpace(c.Listen.Pipe) == "" {
		return fmt.Errorf("config: listen.pipe is required")
	}
	return nil
}

func (c *Config) resolvePaths(configPath string) {
	configDir := filepath.Dir(configPath)
	c.Credential.PFXFile = resolvePath(configDir, c.Credential.PFXFile)
}

func resolvePath(baseDir, path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Clean(filepath.Join(baseDir, trimmed))
}

func validateReadableFile(path string, field string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s must point to a file, got directory", field)
	}
	return nil
}
