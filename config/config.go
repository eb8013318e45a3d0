package config

import (
	"errors"
	"io/fs"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/mailer"
	"github.com/goliatone/go-accounts/repository"
	goerrors "github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. ACCOUNTS_DATABASE_DSN
const EnvPrefix = "ACCOUNTS"

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Accounts accounts.Config `mapstructure:"accounts"`
	Database Database        `mapstructure:"database"`
	Mail     mailer.Config   `mapstructure:"mail"`
	Log      Log             `mapstructure:"log"`
}

type Database struct {
	Driver  string `mapstructure:"driver"`
	DSN     string `mapstructure:"dsn"`
	Debug   bool   `mapstructure:"debug"`
	Migrate bool   `mapstructure:"migrate"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate checks the settings that have no usable default
func (c Config) Validate() error {
	return validation.ValidateStruct(&c.Database,
		validation.Field(&c.Database.Driver,
			validation.Required,
			validation.In(repository.DriverSQLite, repository.DriverPostgres, repository.DriverMySQL),
		),
		validation.Field(&c.Database.DSN, validation.Required),
	)
}

// Option customizes Load
type Option func(*loadOptions)

type loadOptions struct {
	envFiles []string
}

// WithEnvFiles replaces the dotenv files read before the environment, ".env"
// by default. Missing files are skipped.
func WithEnvFiles(files ...string) Option {
	return func(o *loadOptions) {
		o.envFiles = files
	}
}

// Load reads configuration from defaults, an optional config file and
// environment variables, in increasing order of precedence. Dotenv files only
// fill variables missing from the environment. When path is empty an
// "accounts" config file is looked up in the working directory.
func Load(path string, opts ...Option) (Config, error) {
	o := loadOptions{envFiles: []string{".env"}}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	if err := loadEnvFiles(o.envFiles); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("accounts")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to read config file").
				WithMetadata(map[string]any{"path": path})
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to unmarshal config")
	}

	cfg.Database.Driver = repository.NormalizeDriver(cfg.Database.Driver)

	if err := cfg.Validate(); err != nil {
		return Config{}, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid configuration")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := accounts.DefaultConfig()

	v.SetDefault("accounts.password_policy.min_length", def.PasswordPolicy.MinLength)
	v.SetDefault("accounts.password_policy.max_length", def.PasswordPolicy.MaxLength)
	v.SetDefault("accounts.hash_cost", def.HashCost)
	v.SetDefault("accounts.token_bytes", def.TokenBytes)
	v.SetDefault("accounts.reset_token_ttl", def.ResetTokenTTL)
	v.SetDefault("accounts.confirmation_code_ttl", def.ConfirmationCodeTTL)
	v.SetDefault("accounts.notification_timeout", def.NotificationTimeout)
	v.SetDefault("accounts.operation_timeout", def.OperationTimeout)

	v.SetDefault("database.driver", repository.DriverSQLite)
	v.SetDefault("database.dsn", "file:accounts.db?cache=shared")
	v.SetDefault("database.debug", false)
	v.SetDefault("database.migrate", true)

	v.SetDefault("mail.host", "")
	v.SetDefault("mail.user", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "Accounts <no-reply@localhost>")
	v.SetDefault("mail.cert_path", "")
	v.SetDefault("mail.skip_verify", false)
	v.SetDefault("mail.base_url", "http://localhost:8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func loadEnvFiles(files []string) error {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to read env file").
				WithMetadata(map[string]any{"path": file})
		}
	}
	return nil
}
