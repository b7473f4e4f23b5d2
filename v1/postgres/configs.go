package postgres

import (
	"fmt"
	"time"
)

type Config struct {
	Connection        Connection        `yaml:"connection"`
	ConnectionDetails ConnectionDetails `yaml:"connection_details"`
}

type Connection struct {
	Host     string `yaml:"host" envconfig:"POSTGRES_HOST"`
	Port     string `yaml:"port" envconfig:"POSTGRES_PORT"`
	User     string `yaml:"user" envconfig:"POSTGRES_USER"`
	Password string `yaml:"password" envconfig:"POSTGRES_PASSWORD"`
	DbName   string `yaml:"db_name" envconfig:"POSTGRES_DB"`
	SSLMode  string `yaml:"ssl_mode" envconfig:"POSTGRES_SSL_MODE"`
}

// ConnectionDetails tunes the pool. Zero values fall back to the package defaults.
type ConnectionDetails struct {
	MaxOpenConns        int           `yaml:"max_open_conns" envconfig:"POSTGRES_MAX_OPEN_CONNS"`
	MaxIdleConns        int           `yaml:"max_idle_conns" envconfig:"POSTGRES_MAX_IDLE_CONNS"`
	ConnMaxLifetime     time.Duration `yaml:"conn_max_lifetime" envconfig:"POSTGRES_CONN_MAX_LIFETIME"`
	HealthCheckInterval time.Duration `yaml:"health_check_interval" envconfig:"POSTGRES_HEALTH_CHECK_INTERVAL"`
}

const (
	defaultMaxOpenConns        = 50
	defaultMaxIdleConns        = 25
	defaultConnMaxLifetime     = time.Minute
	defaultHealthCheckInterval = 10 * time.Second
)

// DSN renders the connection as a libpq keyword/value string.
func (c Connection) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DbName, sslMode)
}

func (d ConnectionDetails) withDefaults() ConnectionDetails {
	if d.MaxOpenConns == 0 {
		d.MaxOpenConns = defaultMaxOpenConns
	}
	if d.MaxIdleConns == 0 {
		d.MaxIdleConns = defaultMaxIdleConns
	}
	if d.ConnMaxLifetime == 0 {
		d.ConnMaxLifetime = defaultConnMaxLifetime
	}
	if d.HealthCheckInterval == 0 {
		d.HealthCheckInterval = defaultHealthCheckInterval
	}
	return d
}
