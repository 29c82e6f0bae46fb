// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	validLogLevels = []string{"debug", "info", "warn", "error", "fatal"}
	validDrivers   = []string{"sqlite", "postgres"}
)

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "app_log_level")
	v.BindEnv("app.data_dir", "app_data_dir")

	v.BindEnv("host.port", "host_port")
	v.BindEnv("host.domain", "host_domain")
	v.BindEnv("host.ssl_enabled", "host_ssl_enabled")
	v.BindEnv("host.cors", "host_cors")
	v.BindEnv("host.rate_limit", "host_rate_limit")

	v.BindEnv("db.driver", "db_driver")
	v.BindEnv("db.dsn", "db_dsn")

	v.BindEnv("session.secret", "session_secret")
	v.BindEnv("session.ttl_hours", "session_ttl_hours")

	v.BindEnv("mail.host", "mail_host")
	v.BindEnv("mail.port", "mail_port")
	v.BindEnv("mail.user", "mail_user")
	v.BindEnv("mail.password", "mail_password")
	v.BindEnv("mail.from", "mail_from")
	v.BindEnv("mail.secure", "mail_secure")

	v.BindEnv("upload.attachment_max_size", "upload_attachment_max_size")
	v.BindEnv("upload.avatar_max_size", "upload_avatar_max_size")
	v.BindEnv("upload.avatar_types", "upload_avatar_types")

	v.BindEnv("bootstrap.admin_email", "bootstrap_admin_email")
	v.BindEnv("bootstrap.admin_name", "bootstrap_admin_name")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.data_dir", "data")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.domain", "localhost")
	v.SetDefault("host.ssl_enabled", false)
	v.SetDefault("host.cors", []string{"http://localhost:5173"})
	v.SetDefault("host.rate_limit", 20)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "kanban.db")

	v.SetDefault("session.ttl_hours", 24*14)

	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.secure", false)

	v.SetDefault("upload.attachment_max_size", 25)
	v.SetDefault("upload.avatar_max_size", 3)
	v.SetDefault("upload.avatar_types", []string{"image/png", "image/jpeg", "image/webp"})

	v.SetDefault("bootstrap.admin_email", "admin@localhost")
	v.SetDefault("bootstrap.admin_name", "Administrator")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file, %w", err)
		}
	}

	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if v.GetInt("host.rate_limit") <= 0 {
		return errors.New("host.rate_limit must be bigger than 0")
	}

	if !slices.Contains(validDrivers, v.GetString("db.driver")) {
		return errors.New("invalid db driver provided")
	}

	if v.GetString("db.dsn") == "" {
		return errors.New("db.dsn can't be empty")
	}

	if v.GetString("session.secret") == "" {
		fmt.Println("WARNING: You haven't set a session secret, so one has been generated for you. Please set it as an environment variable or in the config.toml file.\nYour random session secret:\n\n" + genSecret() + "\n\nPaste it into your config.toml file.")
		os.Exit(0)
	}

	if v.GetInt("session.ttl_hours") <= 0 {
		return errors.New("session.ttl_hours must be bigger than 0")
	}

	if v.GetInt("upload.attachment_max_size") <= 0 {
		return errors.New("upload.attachment_max_size must be bigger than 0")
	}

	if v.GetInt("upload.avatar_max_size") <= 0 {
		return errors.New("upload.avatar_max_size must be bigger than 0")
	}

	if v.GetString("mail.host") != "" && v.GetString("mail.from") == "" {
		return errors.New("mail.from can't be empty when mail.host is set")
	}

	// Sizes are configured in megabytes
	v.Set("upload.attachment_max_size", v.GetInt64("upload.attachment_max_size")<<20)
	v.Set("upload.avatar_max_size", v.GetInt64("upload.avatar_max_size")<<20)
	return nil
}
