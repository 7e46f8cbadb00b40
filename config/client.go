package config

import (
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"

	"github.com/jathurchan/seatlicense/client"
)

// ClientEnv holds the client settings read from LICENSE_* environment variables.
type ClientEnv struct {
	ServerAddr string `split_words:"true"`
	MachineID  string `split_words:"true"`
}

// ValidationError lists every configuration field that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Fields, "; ")
}

// ClientEndpoint returns LICENSE_SERVER_ADDR, or client.DefaultAddress when unset.
func ClientEndpoint() string {
	if env, err := readClientEnv(); err == nil && env.ServerAddr != "" {
		return env.ServerAddr
	}
	return client.DefaultAddress
}

// LoadClient returns client.DefaultConfig with the server address and
// machine id overridden from the environment and envFiles (".env" when
// none are given).
func LoadClient(envFiles ...string) (client.Config, error) {
	cfg := client.DefaultConfig()
	if err := loadEnvFiles(envFiles...); err != nil {
		return cfg, err
	}

	env, err := readClientEnv()
	if err != nil {
		return cfg, err
	}
	if env.ServerAddr != "" {
		cfg.Address = env.ServerAddr
	}
	cfg.MachineID = env.MachineID

	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrap(err, "invalid client configuration")
	}
	return cfg, nil
}

func readClientEnv() (ClientEnv, error) {
	var env ClientEnv
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return env, errors.Wrap(err, "cannot read client environment")
	}
	env.ServerAddr = strings.TrimSpace(env.ServerAddr)
	env.MachineID = strings.TrimSpace(env.MachineID)
	return env, nil
}
