package docstore

import (
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLDialect implements Dialect for MySQL
type MySQLDialect struct{}

// NewMySQLDialect creates a new MySQL dialect
func NewMySQLDialect() *MySQLDialect {
	return &MySQLDialect{}
}

func (d *MySQLDialect) DriverName() string {
	return "mysql"
}

func (d *MySQLDialect) DSN(config DialectConfig) string {
	return config.URL
}

func (d *MySQLDialect) RewriteQuery(query string) string {
	// MySQL uses ? placeholders like SQLite, no rewrite needed
	return query
}

func (d *MySQLDialect) ConfigureConnection(db *sql.DB) error {
	// Configure connection pool for MySQL
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	return nil
}

func (d *MySQLDialect) SchemaQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS documents (
			collection VARCHAR(128) NOT NULL,
			id VARCHAR(255) NOT NULL,
			fields LONGTEXT NOT NULL,
			version BIGINT NOT NULL,
			updated_at DATETIME(6) NOT NULL,
			PRIMARY KEY (collection, id)
		);`,
		`CREATE TABLE IF NOT EXISTS document_keys (
			collection VARCHAR(128) NOT NULL,
			id VARCHAR(255) NOT NULL,
			field VARCHAR(128) NOT NULL,
			value VARCHAR(255) NOT NULL,
			INDEX idx_document_keys_lookup (collection, field, value)
		);`,
	}
}

func (d *MySQLDialect) SelectForUpdateSuffix() string {
	return " FOR UPDATE"
}
