package config

import (
	"fmt"

	dbutils "github.com/tendant/db-utils/db"
)

// DatabaseConfig is the Postgres section for the support database.
type DatabaseConfig struct {
	Host     string `env:"SUPPORT_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"SUPPORT_PG_PORT" env-default:"5432"`
	Database string `env:"SUPPORT_PG_DATABASE" env-default:"support_db"`
	User     string `env:"SUPPORT_PG_USER" env-default:"support"`
	Password string `env:"SUPPORT_PG_PASSWORD" env-default:"pwd"`
	Schema   string `env:"SUPPORT_PG_SCHEMA" env-default:"public"`
}

// ToDatabaseURL builds a pgx-compatible connection URL. The configured
// schema leads the search path so migrations land in the right place.
func (d DatabaseConfig) ToDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s,public",
		d.User, d.Password, d.Host, d.Port, d.Database, d.Schema)
}

// ToDbConfig hands the section to db-utils for pool construction.
func (d DatabaseConfig) ToDbConfig() dbutils.DbConfig {
	return dbutils.DbConfig{
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		User:     d.User,
		Password: d.Password,
	}
}

// Validate checks that the connection settings are usable.
func (d DatabaseConfig) Validate() ValidationErrors {
	return CollectErrors(
		RequireNonEmpty("SUPPORT_PG_HOST", d.Host),
		RequireValidPort("SUPPORT_PG_PORT", d.Port),
		RequireNonEmpty("SUPPORT_PG_DATABASE", d.Database),
		RequireNonEmpty("SUPPORT_PG_USER", d.User),
	)
}

// NewDatabaseConfigFromEnv loads the section without cleanenv, using the
// same variables and defaults as the struct tags.
func NewDatabaseConfigFromEnv() DatabaseConfig {
	return DatabaseConfig{
		Host:     GetEnvOrDefault("SUPPORT_PG_HOST", "localhost"),
		Port:     GetEnvUint16("SUPPORT_PG_PORT", 5432),
		Database: GetEnvOrDefault("SUPPORT_PG_DATABASE", "support_db"),
		User:     GetEnvOrDefault("SUPPORT_PG_USER", "support"),
		Password: GetEnvOrDefault("SUPPORT_PG_PASSWORD", "pwd"),
		Schema:   GetEnvOrDefault("SUPPORT_PG_SCHEMA", "public"),
	}
}
