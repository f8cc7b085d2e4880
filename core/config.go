package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	serverConfig struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		DisableReqLogs            bool
	}

	dbConfig struct {
		Engine        string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		Name          string
		DisableTLS    bool
	}

	redisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	rateLimitConfig struct {
		Window time.Duration
		Auth   int // attempts per window on login, register & password reset
	}

	uploadsConfig struct {
		Dir                  string
		MaxProfilePhotoSize  int64
		MaxRecordFileSize    int64
		MaxTicketAttachSize  int64
		MaxMultipartFormSize int64
	}

	Config struct {
		Debug                     bool
		TestMode                  bool
		AppName                   string
		Env                       string
		Build                     string
		SecretKey                 string
		FrontendBaseURL           string
		WorkDir                   string
		RollbarToken              string
		SendgridApiKey            string
		PasswordResetTimeoutDelta time.Duration
		defaultFromEmail          string

		Server    serverConfig
		Database  dbConfig
		Redis     redisConfig
		RateLimit rateLimitConfig
		Uploads   uploadsConfig
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
}

func (dbc dbConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

// NewConfig loads the configuration of the current environment (ENV: DEV (default), TEST, QA, PROD).
// Env vars are prefixed with the environment name, e.g. PROD_SECRETKEY.
func NewConfig() *Config {
	vpr := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	workDir := Getwd()

	// defaults
	vpr.SetTypeByDefaultValue(true)
	vpr.SetDefault("debug", env == "DEV" || env == "TEST")
	vpr.SetDefault("testMode", env == "TEST")
	vpr.SetDefault("appName", "Beasiswa")
	vpr.SetDefault("build", "develop")
	vpr.SetDefault("secretKey", "k7c0#vx=4mp2^o8y!f3t9w(r&bz1q$l6n+ha5d@e)gsj-u*")
	vpr.SetDefault("frontendBaseURL", "http://localhost:3000")
	vpr.SetDefault("defaultFromEmail", "noreply@localhost")
	vpr.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	vpr.SetDefault("rollbarToken", "")
	vpr.SetDefault("sendgridApiKey", "")

	vpr.SetDefault("server.host", "0.0.0.0:8000")
	vpr.SetDefault("server.debugHost", "0.0.0.0:4000")
	vpr.SetDefault("server.shutdownTimeout", 5*time.Second)
	vpr.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	vpr.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	vpr.SetDefault("server.disableReqLogs", env == "TEST")

	vpr.SetDefault("database.engine", "postgres")
	vpr.SetDefault("database.user", "beasiswa")
	vpr.SetDefault("database.password", "beasiswa")
	vpr.SetDefault("database.adminUser", "postgres")
	vpr.SetDefault("database.adminPassword", "")
	vpr.SetDefault("database.host", "localhost")
	vpr.SetDefault("database.port", "5432")
	vpr.SetDefault("database.name", "beasiswa")
	vpr.SetDefault("database.disableTLS", env == "DEV" || env == "TEST")

	vpr.SetDefault("redis.addr", "")
	vpr.SetDefault("redis.password", "")
	vpr.SetDefault("redis.db", 0)

	vpr.SetDefault("rateLimit.window", time.Minute)
	vpr.SetDefault("rateLimit.auth", 10)

	vpr.SetDefault("uploads.dir", filepath.Join(workDir, "uploads"))
	vpr.SetDefault("uploads.maxProfilePhotoSize", 2<<20)
	vpr.SetDefault("uploads.maxRecordFileSize", 1<<20)
	vpr.SetDefault("uploads.maxTicketAttachSize", 300<<10)
	vpr.SetDefault("uploads.maxMultipartFormSize", 8<<20)

	vpr.SetEnvPrefix(env)
	vpr.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	vpr.AutomaticEnv()

	return &Config{
		Debug:                     vpr.GetBool("debug"),
		TestMode:                  vpr.GetBool("testMode"),
		AppName:                   vpr.GetString("appName"),
		Env:                       env,
		Build:                     vpr.GetString("build"),
		SecretKey:                 vpr.GetString("secretKey"),
		FrontendBaseURL:           vpr.GetString("frontendBaseURL"),
		WorkDir:                   workDir,
		RollbarToken:              vpr.GetString("rollbarToken"),
		SendgridApiKey:            vpr.GetString("sendgridApiKey"),
		PasswordResetTimeoutDelta: vpr.GetDuration("passwordResetTimeoutDelta"),
		defaultFromEmail:          vpr.GetString("defaultFromEmail"),
		Server: serverConfig{
			Host:                      vpr.GetString("server.host"),
			DebugHost:                 vpr.GetString("server.debugHost"),
			ShutdownTimeout:           vpr.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        vpr.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: vpr.GetDuration("server.jwtRefreshExpirationDelta"),
			DisableReqLogs:            vpr.GetBool("server.disableReqLogs"),
		},
		Database: dbConfig{
			Engine:        vpr.GetString("database.engine"),
			User:          vpr.GetString("database.user"),
			Password:      vpr.GetString("database.password"),
			AdminUser:     vpr.GetString("database.adminUser"),
			AdminPassword: vpr.GetString("database.adminPassword"),
			Host:          vpr.GetString("database.host"),
			Port:          vpr.GetString("database.port"),
			Name:          vpr.GetString("database.name"),
			DisableTLS:    vpr.GetBool("database.disableTLS"),
		},
		Redis: redisConfig{
			Addr:     vpr.GetString("redis.addr"),
			Password: vpr.GetString("redis.password"),
			DB:       vpr.GetInt("redis.db"),
		},
		RateLimit: rateLimitConfig{
			Window: vpr.GetDuration("rateLimit.window"),
			Auth:   vpr.GetInt("rateLimit.auth"),
		},
		Uploads: uploadsConfig{
			Dir:                  vpr.GetString("uploads.dir"),
			MaxProfilePhotoSize:  vpr.GetInt64("uploads.maxProfilePhotoSize"),
			MaxRecordFileSize:    vpr.GetInt64("uploads.maxRecordFileSize"),
			MaxTicketAttachSize:  vpr.GetInt64("uploads.maxTicketAttachSize"),
			MaxMultipartFormSize: vpr.GetInt64("uploads.maxMultipartFormSize"),
		},
	}
}

// NewTestConfig returns the configuration used by tests, whatever ENV is set to.
func NewTestConfig() *Config {
	conf := NewConfig()
	conf.Debug = false
	conf.TestMode = true
	conf.Env = "TEST"
	conf.SecretKey = "secret"
	conf.Server.DisableReqLogs = true
	conf.Redis.Addr = ""
	return conf
}
