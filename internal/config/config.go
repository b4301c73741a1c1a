// Package config assembles the application configuration from defaults,
// command line flags, a .env file and environment variables (in that order
// of increasing priority) and validates the result.
package config

import (
	"flag"
	"log"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	RunAddr                    string        `env:"SERVER_ADDRESS" validate:"hostname_port"`
	ShortURLBase               string        `env:"BASE_URL" validate:"url"`
	LogLevel                   string        `env:"LOG_LEVEL" validate:"loglevel"`
	AuthCookieName             string        `env:"AUTH_COOKIE_NAME" validate:"required"`
	AuthCookieSigningSecretKey string        `env:"AUTH_COOKIE_SIGNING_SECRET_KEY" validate:"required,base64url"`
	VisitorCookieName          string        `env:"VISITOR_COOKIE_NAME" validate:"required"`
	PasswordHashCost           int           `env:"PASSWORD_HASH_COST"`
	RemoverChannelCapacity     int           `env:"REMOVER_CHANNEL_CAPACITY"`
	RemoverFlushDelay          time.Duration `env:"REMOVER_FLUSH_DELAY"`
	TrustedSubnet              string        `env:"TRUSTED_SUBNET" validate:"omitempty,cidr"`
}

var defaultConfig = Config{
	RunAddr:                    ":8080",
	ShortURLBase:               "http://localhost:8080",
	LogLevel:                   "info",
	AuthCookieName:             "tinylink_session",
	AuthCookieSigningSecretKey: "c2VjcmV0LXNpZ25pbmcta2V5",
	VisitorCookieName:          "visitor_id",
	PasswordHashCost:           10,
	RemoverChannelCapacity:     100,
	RemoverFlushDelay:          5 * time.Second,
	TrustedSubnet:              "",
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[fieldLevel.Field().String()]
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}

type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing suppresses command line flag parsing. Tests use
// it because the `go test` runner owns the flag set.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// New builds a validated Config.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	values := defaultConfig

	if !options.disableFlagsParsing {
		flag.StringVar(&values.RunAddr, "a", values.RunAddr, "address and port to run server")
		flag.StringVar(&values.ShortURLBase, "b", values.ShortURLBase, "base address of the resulting shortened URL")
		flag.StringVar(&values.LogLevel, "l", values.LogLevel, "logger level")
		flag.StringVar(&values.TrustedSubnet, "t", values.TrustedSubnet, "CIDR of the subnet trusted to read internal stats")
		flag.Parse()
	}

	var valuesFromEnv Config
	if err := env.Parse(&valuesFromEnv); err != nil {
		return nil, err
	}

	if valuesFromEnv.RunAddr != "" {
		values.RunAddr = valuesFromEnv.RunAddr
	}

	if valuesFromEnv.ShortURLBase != "" {
		values.ShortURLBase = valuesFromEnv.ShortURLBase
	}

	if valuesFromEnv.LogLevel != "" {
		values.LogLevel = valuesFromEnv.LogLevel
	}

	if valuesFromEnv.AuthCookieName != "" {
		values.AuthCookieName = valuesFromEnv.AuthCookieName
	}

	if valuesFromEnv.AuthCookieSigningSecretKey != "" {
		values.AuthCookieSigningSecretKey = valuesFromEnv.AuthCookieSigningSecretKey
	}

	if valuesFromEnv.VisitorCookieName != "" {
		values.VisitorCookieName = valuesFromEnv.VisitorCookieName
	}

	if valuesFromEnv.PasswordHashCost != 0 {
		values.PasswordHashCost = valuesFromEnv.PasswordHashCost
	}

	if valuesFromEnv.RemoverChannelCapacity != 0 {
		values.RemoverChannelCapacity = valuesFromEnv.RemoverChannelCapacity
	}

	if valuesFromEnv.RemoverFlushDelay != 0 {
		values.RemoverFlushDelay = valuesFromEnv.RemoverFlushDelay
	}

	if valuesFromEnv.TrustedSubnet != "" {
		values.TrustedSubnet = valuesFromEnv.TrustedSubnet
	}

	if err := values.validate(); err != nil {
		return nil, err
	}

	return &values, nil
}
