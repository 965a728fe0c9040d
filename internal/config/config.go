// Package config loads the client configuration.
//
// Sources, lowest precedence first: schema defaults, the YAML config file,
// a .env file, then PETITIONS_* environment variables. Command-line flags
// are applied by the caller on top. Every source is checked against the
// embedded CUE schema, so an override can never produce a config the file
// itself could not.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
	"github.com/joho/godotenv"

	"github.com/roach88/petitions/internal/retry"
)

//go:embed schema.cue
var schemaCUE string

// API modes.
const (
	ModeLocal    = "local"
	ModeDeployed = "deployed"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PETITIONS_"

// Config is the validated client configuration.
type Config struct {
	API   APIConfig   `json:"api"`
	State StateConfig `json:"state"`
	Retry RetryConfig `json:"retry"`
	List  ListConfig  `json:"list"`
	Log   LogConfig   `json:"log"`

	// Source is the config file that was read, empty when none was.
	Source string `json:"-"`
}

// APIConfig selects the API host.
type APIConfig struct {
	Mode        string `json:"mode"`
	LocalURL    string `json:"localURL"`
	DeployedURL string `json:"deployedURL"`
	Timeout     string `json:"timeout"`
}

// StateConfig locates the local state database.
type StateConfig struct {
	Path string `json:"path"`
}

// RetryConfig tunes image fetch retries.
type RetryConfig struct {
	Attempts   int     `json:"attempts"`
	Delay      string  `json:"delay"`
	Multiplier float64 `json:"multiplier"`
	MaxDelay   string  `json:"maxDelay"`
}

// ListConfig holds listing defaults.
type ListConfig struct {
	PageSize int `json:"pageSize"`
}

// LogConfig holds the log level.
type LogConfig struct {
	Level string `json:"level"`
}

// Error reports a config that failed to load or violates the schema.
type Error struct {
	Source string
	Err    error
}

func (e *Error) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Source, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Options controls where Load looks.
type Options struct {
	// Path is an explicit config file. It must exist.
	// When empty, DefaultPath is used if present.
	Path string
	// EnvFile is a dotenv file; empty means ".env". A missing file is ignored.
	EnvFile string
	// LookupEnv reads the process environment; nil means os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// envOverride binds an environment variable to a config path.
type envOverride struct {
	name  string
	path  string
	isInt bool
}

var overrides = []envOverride{
	{name: "API_MODE", path: "api.mode"},
	{name: "API_LOCAL_URL", path: "api.localURL"},
	{name: "API_DEPLOYED_URL", path: "api.deployedURL"},
	{name: "API_TIMEOUT", path: "api.timeout"},
	{name: "STATE_PATH", path: "state.path"},
	{name: "RETRY_ATTEMPTS", path: "retry.attempts", isInt: true},
	{name: "PAGE_SIZE", path: "list.pageSize", isInt: true},
	{name: "LOG_LEVEL", path: "log.level"},
}

// DefaultPath is the config file used when none is given.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "petitions", "config.yaml")
}

// DefaultStatePath is the state database used when state.path is empty.
func DefaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "petitions.db"
	}
	return filepath.Join(dir, "petitions", "state.db")
}

// Default returns the schema defaults.
func Default() *Config {
	cfg, err := build(nil, "", nil)
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema defaults: %v", err))
	}
	return cfg
}

// Load reads, merges and validates the configuration.
func Load(opts Options) (*Config, error) {
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	dotenv, err := godotenv.Read(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, &Error{Source: envFile, Err: err}
	}
	env := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	path := opts.Path
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	var data []byte
	if path != "" {
		data, err = os.ReadFile(path)
		switch {
		case err == nil:
		case errors.Is(err, fs.ErrNotExist) && !explicit:
			path, data = "", nil
		default:
			return nil, &Error{Source: path, Err: err}
		}
	}

	return build(data, path, env)
}

// build unifies the YAML document and env overrides with the schema.
func build(data []byte, source string, env func(string) (string, bool)) (*Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, &Error{Source: "schema.cue", Err: err}
	}
	v := schema.LookupPath(cue.ParsePath("#Config"))

	if len(bytes.TrimSpace(data)) > 0 {
		file, err := cueyaml.Extract(source, data)
		if err != nil {
			return nil, &Error{Source: source, Err: err}
		}
		v = v.Unify(ctx.BuildFile(file))
	}

	if env != nil {
		for _, o := range overrides {
			raw, ok := env(EnvPrefix + o.name)
			if !ok || raw == "" {
				continue
			}
			var val any = raw
			if o.isInt {
				n, err := strconv.Atoi(raw)
				if err != nil {
					return nil, &Error{Source: EnvPrefix + o.name, Err: fmt.Errorf("not an integer: %q", raw)}
				}
				val = n
			}
			v = v.FillPath(cue.ParsePath(o.path), val)
		}
	}

	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, &Error{Source: source, Err: errors.New(cueerrors.Details(err, nil))}
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return nil, &Error{Source: source, Err: err}
	}
	cfg.Source = source
	return &cfg, nil
}

// BaseURL is the API root for the selected mode.
func (c *Config) BaseURL() string {
	if c.API.Mode == ModeDeployed {
		return c.API.DeployedURL
	}
	return c.API.LocalURL
}

// Timeout is the per-request API timeout.
func (c *Config) Timeout() time.Duration {
	return mustDuration(c.API.Timeout)
}

// StatePath is the state database location.
func (c *Config) StatePath() string {
	if c.State.Path != "" {
		return c.State.Path
	}
	return DefaultStatePath()
}

// RetryPolicy is the image fetch retry policy.
func (c *Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		Attempts:   c.Retry.Attempts,
		Delay:      mustDuration(c.Retry.Delay),
		Multiplier: c.Retry.Multiplier,
		MaxDelay:   mustDuration(c.Retry.MaxDelay),
	}
}

// LogLevel is the configured slog level.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// mustDuration parses a schema-checked duration; malformed input yields 0.
func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
