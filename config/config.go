// Package config defines the application configuration structures.
//
// Separated from cmd to allow other packages (db, ssh, ai, api) to
// depend on config without importing Cobra.
package config

import (
	"strconv"
	"strings"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig holds the fleet database settings.
type DatabaseConfig struct {
	Driver   string `json:"driver"` // "postgres" or "sqlite"
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password,omitempty"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`

	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string `json:"sqlite_path,omitempty"`

	SSH SSHConfig `json:"ssh"`
}

// SSHConfig holds SSH tunnel settings.
type SSHConfig struct {
	Enabled       bool   `json:"enabled,omitempty"`
	Host          string `json:"host,omitempty"`
	Port          int    `json:"port,omitempty"`
	User          string `json:"user,omitempty"`
	KeyPath       string `json:"key_path,omitempty"`
	KeyPassphrase string `json:"key_passphrase,omitempty"`
	// KnownHostsPath defaults to ~/.ssh/known_hosts.
	KnownHostsPath string `json:"known_hosts_path,omitempty"`
}

// DSN builds a pgx-compatible keyword/value connection string.
// When SSH tunnel is active, the caller should override Host/Port
// with the local tunnel endpoint.
func (c DatabaseConfig) DSN() string {
	parts := []string{
		"host=" + dsnValue(c.Host),
		"port=" + strconv.Itoa(c.Port),
		"user=" + dsnValue(c.User),
		"dbname=" + dsnValue(c.Database),
		"sslmode=" + dsnValue(c.SSLMode),
	}
	if c.Password != "" {
		parts = append(parts, "password="+dsnValue(c.Password))
	}
	return strings.Join(parts, " ")
}

// dsnValue quotes a value when libpq syntax requires it.
func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
