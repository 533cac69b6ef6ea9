package core

import (
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	// Config holds all the runtime configuration. It is built once in main()
	// and handed to each component at construction time.
	Config struct {
		Env      string
		Debug    bool
		TestMode bool

		AppName   string
		SecretKey []byte
		Timezone  string

		FromEmailName string
		FromEmailAddr string

		EmailBackend   string // "console" | "smtp" | "sendgrid"
		SendgridApiKey string
		RollbarToken   string
		Build          string

		UploadLimitMB    int
		AllowedFileTypes []string

		Server   ServerConfig
		Database DatabaseConfig
		SMTP     SMTPConfig
	}

	ServerConfig struct {
		Host               string
		Port               string
		JWTExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine            string
		Host              string
		Port              string
		User              string
		Password          string
		AdminUser         string
		AdminPassword     string
		Name              string
		DisableTLS        bool
		InitMaxRetries    int
		InitRetryInterval time.Duration
	}

	SMTPConfig struct {
		Host     string
		Port     string
		Username string
		Password string
	}
)

func (c ServerConfig) Address() string   { return net.JoinHostPort(c.Host, c.Port) }
func (c DatabaseConfig) Address() string { return net.JoinHostPort(c.Host, c.Port) }
func (c SMTPConfig) Address() string     { return net.JoinHostPort(c.Host, c.Port) }

// DefaultFromEmail is the sender address used for all outgoing mail.
func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.FromEmailName, Address: c.FromEmailAddr}
}

// Location resolves the configured timezone. Falls back to UTC on a bad identifier.
func (c *Config) Location() *time.Location {
	if loc, err := time.LoadLocation(c.Timezone); err == nil {
		return loc
	}
	return time.UTC
}

// NewConfig loads the configuration from the environment (and an optional
// config/.env.<env> file) into an immutable Config value.
func NewConfig() (*Config, error) {
	conf := viper.New()
	conf.SetTypeByDefaultValue(true)

	// defaults
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Darasa")
	conf.SetDefault("secretKey", "o2u#h^$cegm2emy-wer)enb$+57=dz&upoq5-xh2(h!x)#*c2(")
	conf.SetDefault("timezone", "Africa/Lubumbashi")
	conf.SetDefault("fromEmailName", "Darasa")
	conf.SetDefault("fromEmailAddr", "noreply@localhost")
	conf.SetDefault("emailBackend", "console")
	conf.SetDefault("uploadLimitMB", 10)
	conf.SetDefault("allowedFileTypes", "pdf,docx,jpg,jpeg,png,mp4")
	conf.SetDefault("serverHost", "0.0.0.0")
	conf.SetDefault("serverPort", "8000")
	conf.SetDefault("jwtExpirationDelta", 24*time.Hour)
	conf.SetDefault("dbEngine", "postgres")
	conf.SetDefault("dbHost", "localhost")
	conf.SetDefault("dbPort", "5432")
	conf.SetDefault("dbName", "darasa")
	conf.SetDefault("dbInitMaxRetries", 5)
	conf.SetDefault("dbInitRetryInterval", 2*time.Second)
	conf.SetDefault("smtpHost", "localhost")
	conf.SetDefault("smtpPort", "25")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	conf.AutomaticEnv()

	c := &Config{
		Env:              env,
		Debug:            conf.GetBool("debug"),
		TestMode:         env == "TEST",
		AppName:          conf.GetString("appName"),
		SecretKey:        []byte(conf.GetString("secretKey")),
		Timezone:         conf.GetString("timezone"),
		FromEmailName:    conf.GetString("fromEmailName"),
		FromEmailAddr:    conf.GetString("fromEmailAddr"),
		EmailBackend:     conf.GetString("emailBackend"),
		SendgridApiKey:   conf.GetString("sendgridApiKey"),
		RollbarToken:     conf.GetString("rollbarToken"),
		Build:            conf.GetString("build"),
		UploadLimitMB:    conf.GetInt("uploadLimitMB"),
		AllowedFileTypes: splitAndTrim(conf.GetString("allowedFileTypes")),
		Server: ServerConfig{
			Host:               conf.GetString("serverHost"),
			Port:               conf.GetString("serverPort"),
			JWTExpirationDelta: conf.GetDuration("jwtExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:            conf.GetString("dbEngine"),
			Host:              conf.GetString("dbHost"),
			Port:              conf.GetString("dbPort"),
			User:              conf.GetString("dbUser"),
			Password:          conf.GetString("dbPassword"),
			AdminUser:         conf.GetString("dbAdminUser"),
			AdminPassword:     conf.GetString("dbAdminPassword"),
			Name:              conf.GetString("dbName"),
			DisableTLS:        conf.GetBool("dbDisableTLS"),
			InitMaxRetries:    conf.GetInt("dbInitMaxRetries"),
			InitRetryInterval: conf.GetDuration("dbInitRetryInterval"),
		},
		SMTP: SMTPConfig{
			Host:     conf.GetString("smtpHost"),
			Port:     conf.GetString("smtpPort"),
			Username: conf.GetString("smtpUsername"),
			Password: conf.GetString("smtpPassword"),
		},
	}
	return c, nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			res = append(res, p)
		}
	}
	return res
}
