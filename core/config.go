package core

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Backends
const (
	BackendFile     = "file"
	BackendDatabase = "database"
	BackendBolt     = "bolt"
	BackendMemory   = "memory"
)

// Database engines
const (
	EngineSQLite   = "sqlite"
	EnginePostgres = "postgres"
)

var Backends = []string{BackendFile, BackendDatabase, BackendBolt, BackendMemory}

type DatabaseConfig struct {
	Engine        string `mapstructure:"engine"`
	Path          string `mapstructure:"path"` // sqlite only
	Host          string `mapstructure:"host"`
	Port          string `mapstructure:"port"`
	Name          string `mapstructure:"name"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	AdminUser     string `mapstructure:"adminUser"`
	AdminPassword string `mapstructure:"adminPassword"`
	DisableTLS    bool   `mapstructure:"disableTLS"`
}

func (dbConf DatabaseConfig) Address() string {
	if dbConf.Port == "" {
		return dbConf.Host
	}
	return dbConf.Host + ":" + dbConf.Port
}

type Config struct {
	Env      string `mapstructure:"-"`
	WorkDir  string `mapstructure:"-"`
	Debug    bool   `mapstructure:"debug"`
	TestMode bool   `mapstructure:"testMode"`
	AppName  string `mapstructure:"appName"`
	Build    string `mapstructure:"build"`
	Backend  string `mapstructure:"backend"`

	File struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"file"`

	Bolt struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"bolt"`

	Database DatabaseConfig `mapstructure:"database"`

	Rollbar struct {
		Token string `mapstructure:"token"`
	} `mapstructure:"rollbar"`
}

// Path resolves p against the working directory unless it is already absolute.
func (conf *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(conf.WorkDir, p)
}

func newViper(env string) *viper.Viper {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", env == "DEV")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("appName", "Rekodi")
	v.SetDefault("build", "dev")
	v.SetDefault("backend", BackendFile)
	v.SetDefault("file.path", "records.json")
	v.SetDefault("bolt.path", "records.bolt")
	v.SetDefault("database.engine", EngineSQLite)
	v.SetDefault("database.path", "school.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "rekodi")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", false)
	v.SetDefault("rollbar.token", "")

	v.SetEnvPrefix("records")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads the configuration for workDir.
// Precedence: RECORDS_* env vars (config/.env.<env> included), records.yaml, defaults.
func LoadConfig(workDir string) (*Config, error) {
	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, PROD
	if env == "" {
		env = "DEV"
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}

	v := newViper(env)
	v.SetConfigName("records")
	v.SetConfigType("yaml")
	v.AddConfigPath(workDir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, NewParseError(filepath.Join(workDir, "records.yaml"), err)
		}
	}

	conf := &Config{Env: env, WorkDir: workDir}
	if err := v.Unmarshal(conf); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	conf.Backend = CleanString(conf.Backend, true /* lower */)
	conf.Database.Engine = CleanString(conf.Database.Engine, true /* lower */)
	if !hasString(Backends, conf.Backend) {
		return nil, NewValidationError(
			errors.Errorf("unknown backend %q", conf.Backend),
			FieldError{Field: "backend", Error: "must be one of " + strings.Join(Backends, ", ")},
		)
	}
	if conf.Database.Engine != EngineSQLite && conf.Database.Engine != EnginePostgres {
		return nil, NewValidationError(
			errors.Errorf("unknown database engine %q", conf.Database.Engine),
			FieldError{Field: "database.engine", Error: "must be one of sqlite, postgres"},
		)
	}
	return conf, nil
}

func hasString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
