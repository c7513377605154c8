package database

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"civicmap/internal/types"

	_ "github.com/sijms/go-ora/v2"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	DriverOracle = "oracle"
	DriverSQLite = "sqlite"
)

// dsn builds a properly encoded connection string for Oracle Autonomous Database
func dsn(username, password, host, port, service string, walletLocation string) string {
	if walletLocation != "" {
		// Use wallet-based mTLS connection
		return fmt.Sprintf(
			"oracle://%s:%s@%s:%s/%s?ssl=true&wallet_location=%s",
			username, password, host, port, service, url.PathEscape(walletLocation))
	}

	return (&url.URL{
		Scheme:   "oracle",
		User:     url.UserPassword(username, password), // escapes automatically
		Host:     host + ":" + port,
		Path:     "/" + service, // keep full service name
		RawQuery: "ssl=true",    // ADB requires TCPS on 1522
	}).String()
}

// loadEnvFile reads environment variables from a .env file
func loadEnvFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err // File doesn't exist, which is okay
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if idx := strings.Index(line, "="); idx > 0 {
			key := strings.TrimSpace(line[:idx])
			value := strings.TrimSpace(line[idx+1:])

			if len(value) >= 2 && (value[0] == '"' && value[len(value)-1] == '"') {
				value = value[1 : len(value)-1]
			}

			// Only set if not already set in environment
			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
	}

	return scanner.Err()
}

// Config holds database connection configuration. Oracle connections use the
// host fields; SQLite uses DSN as the database file (":memory:" works).
type Config struct {
	Driver         string
	DSN            string
	Host           string
	Port           string
	Service        string
	Username       string
	Password       string
	WalletLocation string
}

func (c Config) dataSource() (string, error) {
	switch c.Driver {
	case DriverOracle:
		if c.DSN != "" {
			return c.DSN, nil
		}
		return dsn(c.Username, c.Password, c.Host, c.Port, c.Service, c.WalletLocation), nil
	case DriverSQLite:
		if c.DSN == "" {
			return "", fmt.Errorf("%w: sqlite needs a database file", types.ErrUsage)
		}
		return c.DSN, nil
	default:
		return "", fmt.Errorf("%w: unknown database driver %q (want %s or %s)",
			types.ErrUsage, c.Driver, DriverOracle, DriverSQLite)
	}
}

// Database holds the database connection and configuration
type Database struct {
	db     *sql.DB
	config Config
}

// Open connects to the configured database and checks the connection.
func Open(config Config) (*Database, error) {
	connStr, err := config.dataSource()
	if err != nil {
		return nil, err
	}

	zap.L().Debug("connecting to database", zap.String("driver", config.Driver))

	db, err := sql.Open(config.Driver, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if config.Driver == DriverSQLite {
		// Every new connection to ":memory:" is a new, empty database.
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{
		db:     db,
		config: config,
	}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// QueryDataset runs query and returns the result set as a Dataset whose
// columns follow the select list. Text stored as bytes becomes a string and
// timestamps become RFC 3339 strings.
func (d *Database) QueryDataset(ctx context.Context, query string, args ...any) (*types.Dataset, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset: %w", err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return nil, fmt.Errorf("%w: query returns column %q more than once; alias it", types.ErrValidation, n)
		}
		seen[n] = true
	}

	cols := make([][]any, len(names))
	for i := range cols {
		cols[i] = []any{}
	}
	for rows.Next() {
		row := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range row {
			ptrs[i] = &row[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range row {
			cols[i] = append(cols[i], scalar(v))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	data := types.NewDataset()
	for i, name := range names {
		if err := data.Set(name, cols[i]); err != nil {
			return nil, err
		}
	}
	zap.L().Debug("queried dataset", zap.Int("columns", len(names)), zap.Int("rows", data.Len()))
	return data, nil
}

func scalar(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return v
	}
}

// LoadConfig loads database configuration from environment variables
func LoadConfig() Config {
	// Try to load from .env file first
	loadEnvFile(".env")

	return Config{
		Driver:         getEnvOrDefault("DB_DRIVER", DriverOracle),
		DSN:            getEnvOrDefault("DB_DSN", ""),
		Host:           getEnvOrDefault("DB_HOST", "localhost"),
		Port:           getEnvOrDefault("DB_PORT", "1521"),
		Service:        getEnvOrDefault("DB_SERVICE", "XE"),
		Username:       getEnvOrDefault("DB_USERNAME", ""),
		Password:       getEnvOrDefault("DB_PASSWORD", ""),
		WalletLocation: getEnvOrDefault("DB_WALLET_LOCATION", ""),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
