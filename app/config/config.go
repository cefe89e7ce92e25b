package config

import (
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	StorageBadger = "badger"
	StorageMongo  = "mongo"

	// FileEnv names the variable that points at an alternative config file.
	FileEnv = "POSTSAPI_CONFIG"
)

// DefaultFile is read when FileEnv is unset. A missing file is not an error.
var DefaultFile = filepath.Join("config", "config.json")

// Duration is a time.Duration written as "10s" in the config file.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.Wrap(err, "duration must be a string like \"10s\"")
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return errors.WithStack(err)
	}
	d.Duration = parsed
	return nil
}

// Config holds the process configuration.
type Config struct {
	Env  string `json:"env"`
	Port string `json:"port"`

	Storage        string   `json:"storage"`
	BadgerPath     string   `json:"badgerPath"`
	BadgerInMemory bool     `json:"badgerInMemory"`
	MongoURI       string   `json:"mongoUri"`
	MongoDatabase  string   `json:"mongoDatabase"`
	MongoTimeout   Duration `json:"mongoTimeout"`

	AllowedOrigins  []string `json:"allowedOrigins"`
	ShutdownTimeout Duration `json:"shutdownTimeout"`

	LogLevel      string `json:"logLevel"`
	LogPath       string `json:"logPath"`
	LogMaxSizeMB  int    `json:"logMaxSizeMB"`
	LogMaxBackups int    `json:"logMaxBackups"`
	LogMaxAgeDays int    `json:"logMaxAgeDays"`
	LogCompress   bool   `json:"logCompress"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Env:             EnvProduction,
		Port:            "3000",
		Storage:         StorageBadger,
		BadgerPath:      filepath.Join("data", "badger"),
		MongoDatabase:   "postsapi",
		MongoTimeout:    Duration{10 * time.Second},
		AllowedOrigins:  []string{"*"},
		ShutdownTimeout: Duration{30 * time.Second},
		LogLevel:        "info",
		LogMaxSizeMB:    100,
		LogMaxBackups:   3,
		LogMaxAgeDays:   7,
	}
}

// Load builds the configuration. Precedence: defaults, then the JSON file,
// then environment variables. The result is validated.
func Load() (Config, error) {
	cfg := Default()

	path := os.Getenv(FileEnv)
	if path == "" {
		path = DefaultFile
	}
	if err := loadJSONConfig(path, &cfg); err != nil {
		return cfg, err
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// loadJSONConfig reads path into cfg if present. Only unreadable or invalid
// files are errors.
func loadJSONConfig(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"APP_ENV":        &cfg.Env,
		"PORT":           &cfg.Port,
		"STORAGE":        &cfg.Storage,
		"BADGER_PATH":    &cfg.BadgerPath,
		"MONGO_URI":      &cfg.MongoURI,
		"MONGO_DATABASE": &cfg.MongoDatabase,
		"LOG_LEVEL":      &cfg.LogLevel,
		"LOG_PATH":       &cfg.LogPath,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"LOG_MAX_SIZE_MB":  &cfg.LogMaxSizeMB,
		"LOG_MAX_BACKUPS":  &cfg.LogMaxBackups,
		"LOG_MAX_AGE_DAYS": &cfg.LogMaxAgeDays,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return errors.Wrapf(err, "%s", key)
			}
			*dst = n
		}
	}

	bools := map[string]*bool{
		"BADGER_IN_MEMORY": &cfg.BadgerInMemory,
		"LOG_COMPRESS":     &cfg.LogCompress,
	}
	for key, dst := range bools {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return errors.Wrapf(err, "%s", key)
			}
			*dst = b
		}
	}

	durations := map[string]*Duration{
		"MONGO_TIMEOUT":    &cfg.MongoTimeout,
		"SHUTDOWN_TIMEOUT": &cfg.ShutdownTimeout,
	}
	for key, dst := range durations {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return errors.Wrapf(err, "%s", key)
			}
			dst.Duration = d
		}
	}

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return errors.Errorf("invalid port %q", c.Port)
	}

	switch c.Storage {
	case StorageBadger:
		if !c.BadgerInMemory && c.BadgerPath == "" {
			return errors.New("badger storage needs a path or in-memory mode")
		}
	case StorageMongo:
		if c.MongoURI == "" {
			return errors.New("mongo storage needs MONGO_URI")
		}
		if c.MongoDatabase == "" {
			return errors.New("mongo storage needs a database name")
		}
		if c.MongoTimeout.Duration <= 0 {
			return errors.New("mongo timeout must be positive")
		}
	default:
		return errors.Errorf("unknown storage %q", c.Storage)
	}

	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return errors.Errorf("unknown log level %q", c.LogLevel)
	}
	if c.ShutdownTimeout.Duration <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	return nil
}

// IsDevelopment reports whether error responses may carry stack traces.
func (c Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

// Redacted returns a copy safe to print, with the Mongo password masked.
func (c Config) Redacted() Config {
	out := c
	out.AllowedOrigins = append([]string(nil), c.AllowedOrigins...)
	if c.MongoURI != "" {
		u, err := url.Parse(c.MongoURI)
		if err != nil {
			out.MongoURI = "<unparseable>"
		} else {
			out.MongoURI = u.Redacted()
		}
	}
	return out
}
