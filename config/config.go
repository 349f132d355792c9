package config

import (
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"library-ledger/logger"
)

// EnvPrefix prefixes every environment override, e.g. LIBRARY_DATA_DIR.
const EnvPrefix = "library"

// Storage backends.
const (
	BackendFlat   = "flat"
	BackendSQLite = "sqlite"
)

// Credential digests.
const (
	DigestSHA256 = "sha256"
	DigestSHA3   = "sha3-256"
)

type Storage struct {
	Backend string `yaml:"backend" envconfig:"BACKEND" validate:"oneof=flat sqlite"`
}

type Loan struct {
	Days       int   `yaml:"days" envconfig:"DAYS" validate:"gt=0"`
	FinePerDay int64 `yaml:"fine_per_day" envconfig:"FINE_PER_DAY" validate:"gte=0"`
}

type Credential struct {
	Digest string `yaml:"digest" envconfig:"DIGEST" validate:"oneof=sha256 sha3-256"`
}

// Bootstrap holds the account created when the user store is empty.
type Bootstrap struct {
	Username string `yaml:"username" envconfig:"USERNAME" validate:"required"`
	Password string `yaml:"password" envconfig:"PASSWORD" validate:"required"`
}

type Config struct {
	DataDir    string     `yaml:"data_dir" envconfig:"DATA_DIR" validate:"required"`
	Storage    Storage    `yaml:"storage" envconfig:"STORAGE"`
	Loan       Loan       `yaml:"loan" envconfig:"LOAN"`
	Credential Credential `yaml:"credential" envconfig:"CREDENTIAL"`
	Bootstrap  Bootstrap  `yaml:"bootstrap" envconfig:"BOOTSTRAP"`
	Log        logger.Log `yaml:"log" envconfig:"LOG"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		DataDir:    "./data",
		Storage:    Storage{Backend: BackendFlat},
		Loan:       Loan{Days: 7, FinePerDay: 10},
		Credential: Credential{Digest: DigestSHA256},
		Bootstrap:  Bootstrap{Username: "admin", Password: "admin123"},
		Log:        logger.Log{Level: zapcore.InfoLevel, Format: "console"},
	}
}

// Load layers the defaults, the YAML file at path (skipped when path is empty)
// and LIBRARY_* environment variables, then validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, errors.Wrap(err, "read config file")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrap(err, "parse config file")
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "read environment")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return nil
}
