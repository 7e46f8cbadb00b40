// Package config loads the license server configuration from a JSON file,
// a .env file and LICENSE_* environment variables, and resolves the server
// endpoint for clients.
package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"muzzammil.xyz/jsonc"

	"github.com/jathurchan/seatlicense/protocol"
)

// EnvPrefix prefixes every environment override, e.g. LICENSE_PORT.
const EnvPrefix = "LICENSE"

// DefaultServerConfigPath is the config file read when none is given.
const DefaultServerConfigPath = "config.json"

// placeholderIP is the bind address shipped in sample configs. It is
// replaced from the IP_ADDRESS environment variable.
const placeholderIP = "ur ip"

// Store backends.
const (
	BackendJSON  = "json"
	BackendBbolt = "bbolt"
)

// ServerConfig is the on-disk and environment configuration of the license server.
// JSON field names match the historical config.json layout.
type ServerConfig struct {
	Version         string `json:"Version" split_words:"true" validate:"required,max=4096"`
	LicenseFilePath string `json:"LicenseFilePath" split_words:"true" validate:"required"`
	Port            int    `json:"Port" split_words:"true" validate:"min=0,max=65535"`
	IpAddress       string `json:"IpAddress" ignored:"true" validate:"omitempty,ip"`

	StoreBackend   string `json:"StoreBackend" split_words:"true" validate:"oneof=json bbolt"`
	MonitorAddress string `json:"MonitorAddress" split_words:"true" validate:"omitempty,hostname_port"`
	HealthAddress  string `json:"HealthAddress" split_words:"true" validate:"omitempty,hostname_port"`
	MaxConnections int    `json:"MaxConnections" split_words:"true" validate:"min=0"`

	LogLevel  string `json:"LogLevel" split_words:"true" validate:"oneof=debug info warn error"`
	LogFormat string `json:"LogFormat" split_words:"true" validate:"oneof=text json"`
	LogFile   string `json:"LogFile" split_words:"true"`

	RateLimit      int `json:"RateLimit" split_words:"true" validate:"min=0"`
	RateLimitBurst int `json:"RateLimitBurst" split_words:"true" validate:"min=0"`

	path         string
	createdFile  bool
	unresolvedIP bool
}

// DefaultServerConfig returns the configuration written when no file exists.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Version:         "1.0.0",
		LicenseFilePath: "licenses.json",
		Port:            protocol.DefaultPort,
		StoreBackend:    BackendJSON,
		MonitorAddress:  "127.0.0.1:8053",
		MaxConnections:  256,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// ListenAddress returns the TCP address the license server binds to.
// An empty IpAddress binds every interface.
func (c *ServerConfig) ListenAddress() string {
	host := c.IpAddress
	if host == "" {
		host = "0.0.0.0"
	}
	return net.JoinHostPort(host, strconv.Itoa(c.Port))
}

// Path returns the config file the configuration was loaded from.
func (c *ServerConfig) Path() string { return c.path }

// CreatedFile reports whether LoadServer wrote a default config file.
func (c *ServerConfig) CreatedFile() bool { return c.createdFile }

// UnresolvedIP reports whether the file still carried the placeholder bind
// address and no IP_ADDRESS variable replaced it.
func (c *ServerConfig) UnresolvedIP() bool { return c.unresolvedIP }

// LoadServer reads the server configuration.
//
// The steps are: load envFiles (".env" when none are given; missing files are
// ignored), parse path as JSON with comments, writing the defaults to path if
// it does not exist, apply LICENSE_* environment overrides, resolve the
// placeholder bind address from IP_ADDRESS, and validate.
func LoadServer(path string, envFiles ...string) (*ServerConfig, error) {
	if path == "" {
		path = DefaultServerConfigPath
	}
	if err := loadEnvFiles(envFiles...); err != nil {
		return nil, err
	}

	cfg := DefaultServerConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := SaveServer(path, &cfg); err != nil {
			return nil, err
		}
		cfg.createdFile = true
	case err != nil:
		return nil, errors.Wrapf(err, "cannot read config file %s", path)
	default:
		if err := jsonc.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrapf(err, "problem parsing config file %s", path)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "cannot apply environment overrides")
	}
	cfg.resolveIP()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolveIP applies LICENSE_IP_ADDRESS unconditionally and IP_ADDRESS (or
// IP-ADDRESS) only while the address is unset or the placeholder.
func (c *ServerConfig) resolveIP() {
	if v, ok := os.LookupEnv(EnvPrefix + "_IP_ADDRESS"); ok {
		c.IpAddress = strings.TrimSpace(v)
	}
	if c.IpAddress != "" && c.IpAddress != placeholderIP {
		return
	}

	wasPlaceholder := c.IpAddress == placeholderIP
	c.IpAddress = ""
	for _, name := range []string{"IP_ADDRESS", "IP-ADDRESS"} {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			c.IpAddress = v
			return
		}
	}
	c.unresolvedIP = wasPlaceholder
}

// Validate checks field constraints and reports every failing field.
func (c *ServerConfig) Validate() error {
	err := newValidator().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "cannot validate config")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return &ValidationError{Fields: msgs}
}

// SaveServer writes cfg to path as indented JSON, creating parent directories.
func SaveServer(path string, cfg *ServerConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.Wrap(err, "cannot encode config")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "cannot create config directory %s", dir)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.Wrapf(err, "cannot write config file %s", path)
	}
	return nil
}

func loadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return errors.Wrapf(err, "cannot load env file %s", f)
		}
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
	case "min", "max":
		return fmt.Sprintf("%s must be %s %s, got %v", fe.Field(), boundWord(fe.Tag()), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %q validation, got %v", fe.Field(), fe.Tag(), fe.Value())
	}
}

func boundWord(tag string) string {
	if tag == "min" {
		return "at least"
	}
	return "at most"
}
