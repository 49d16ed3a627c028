// Package tokens maintains the API key store backed by Postgres. Keys are
// cached in memory and refreshed periodically so request handling never
// waits on the database.
package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"chromium-pdf/internal/config"
	"chromium-pdf/internal/infra/logging"
)

var store struct {
	sync.RWMutex
	cache map[string]int
}

var tokenDB struct {
	sync.Mutex
	dsn string
	db  *sql.DB
}

var (
	// ErrInvalidAPIKey signals that the provided API key is not known.
	ErrInvalidAPIKey = errors.New("invalid api key")
	// ErrStoreNotReady signals that the token store has not been loaded
	// yet. This can happen during startup when the DB isn't ready.
	ErrStoreNotReady = errors.New("token store not ready")
)

func postgresPort(cfg config.PostgresConfig) int {
	if cfg.Port != 0 {
		return cfg.Port
	}
	return 5432
}

// PostgresDSN builds a connection string from the config. A host that
// already is a postgres:// URL passes through untouched.
func PostgresDSN(cfg config.PostgresConfig) (string, error) {
	if strings.HasPrefix(cfg.Host, "postgres://") || strings.HasPrefix(cfg.Host, "postgresql://") {
		return cfg.Host, nil
	}
	if cfg.Host == "" {
		return "", fmt.Errorf("postgres host is empty")
	}
	if cfg.Database == "" {
		return "", fmt.Errorf("postgres database is empty")
	}
	if cfg.User == "" {
		return "", fmt.Errorf("postgres user is empty")
	}

	hostPort := cfg.Host
	port := postgresPort(cfg)
	// Handle IPv6 or explicit host:port strings.
	if strings.HasPrefix(hostPort, "[") {
		if !strings.Contains(hostPort, "]:") {
			hostPort = fmt.Sprintf("%s:%d", hostPort, port)
		}
	} else if strings.Count(hostPort, ":") >= 2 {
		hostPort = fmt.Sprintf("[%s]:%d", hostPort, port)
	} else if !strings.Contains(hostPort, ":") {
		hostPort = fmt.Sprintf("%s:%d", hostPort, port)
	}

	u := &url.URL{Scheme: "postgres", Host: hostPort, Path: "/" + cfg.Database}
	if cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	} else {
		u.User = url.User(cfg.User)
	}
	q := u.Query()
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func openDB(cfg config.PostgresConfig) (*sql.DB, error) {
	dsn, err := PostgresDSN(cfg)
	if err != nil {
		return nil, err
	}

	tokenDB.Lock()
	defer tokenDB.Unlock()

	if tokenDB.db != nil && tokenDB.dsn == dsn {
		return tokenDB.db, nil
	}
	if tokenDB.db != nil {
		_ = tokenDB.db.Close()
		tokenDB.db = nil
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetConnMaxIdleTime(time.Minute)

	tokenDB.db = db
	tokenDB.dsn = dsn
	return db, nil
}

// LoadFromPostgres replaces the in-memory key cache from the api_tokens
// table.
func LoadFromPostgres(cfg config.PostgresConfig) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rows, err := db.QueryContext(ctx, `SELECT token, rate_limit FROM api_tokens WHERE active`)
	if err != nil {
		return fmt.Errorf("query api tokens: %w", err)
	}
	defer rows.Close()

	cache := make(map[string]int)
	for rows.Next() {
		var token string
		var limit int
		if err := rows.Scan(&token, &limit); err != nil {
			return fmt.Errorf("scan api token: %w", err)
		}
		cache[token] = limit
	}
	if err := rows.Err(); err != nil {
		return err
	}

	store.Lock()
	store.cache = cache
	store.Unlock()

	logging.Info("api tokens loaded", "count", len(cache))
	return nil
}

// RefreshPeriodically reloads the key cache every interval until done is
// closed. Failures are logged and retried on the next tick.
func RefreshPeriodically(cfg config.PostgresConfig, interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := LoadFromPostgres(cfg); err != nil {
				logging.Warn("api token refresh failed", "error", err.Error())
			}
		}
	}
}

// Ready reports whether the key cache has been loaded at least once.
func Ready() bool {
	store.RLock()
	defer store.RUnlock()
	return store.cache != nil
}

// Validate reports whether the key is known.
func Validate(key string) bool {
	store.RLock()
	defer store.RUnlock()
	_, ok := store.cache[key]
	return ok
}

// RateLimit returns the per-interval request budget for the key, 0 when
// unlimited or unknown.
func RateLimit(key string) int {
	store.RLock()
	defer store.RUnlock()
	return store.cache[key]
}

// SetForTest seeds the cache so middleware tests don't need Postgres.
func SetForTest(cache map[string]int) {
	store.Lock()
	store.cache = cache
	store.Unlock()
}
