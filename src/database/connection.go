// Package database provides the relational store connection layer. PostgreSQL
// is the production target; SQLite keeps development and tests self-contained.
// MySQL/MariaDB and MSSQL are supported through the same driver switch.
package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"

	"github.com/apimgr/floodwatch/src/config"
)

// DB wraps sql.DB with the driver name so queries can be rebound to the
// driver's placeholder style
type DB struct {
	*sql.DB
	driver string
}

// Connect opens the configured database, verifies the connection and applies
// the schema
func Connect(cfg config.DatabaseConfig) (*DB, error) {
	var dsn string
	var driver string

	switch strings.ToLower(cfg.Type) {
	case "sqlite":
		driver = "sqlite"
		if cfg.Name == "" {
			return nil, fmt.Errorf("database path required for SQLite")
		}
		dsn = cfg.Name

	case "postgres", "postgresql":
		driver = "pgx"
		sslMode := cfg.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Name, sslMode)

	case "mysql", "mariadb":
		driver = "mysql"
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Name)

	case "mssql", "sqlserver":
		driver = "mssql"
		dsn = fmt.Sprintf("server=%s;port=%d;database=%s;user id=%s;password=%s;encrypt=disable",
			cfg.Host, cfg.Port, cfg.Name, cfg.Username, cfg.Password)

	default:
		return nil, fmt.Errorf("unsupported database type: %s. Supported: sqlite, postgres, mysql, mariadb, mssql", cfg.Type)
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetConnMaxLifetime(3 * time.Minute)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{DB: sqlDB, driver: driver}

	if driver == "sqlite" {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := db.InitSchema(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return db, nil
}

// Driver returns the sql driver name in use
func (db *DB) Driver() string {
	return db.driver
}

// Rebind translates ? placeholders into the driver's native style. Queries
// in the models are written with ? and rebound at call time.
func (db *DB) Rebind(query string) string {
	var prefix string
	switch db.driver {
	case "pgx":
		prefix = "$"
	case "mssql":
		prefix = "@p"
	default:
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteString(prefix)
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
