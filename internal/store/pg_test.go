package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/feral-file/ff-asset-syncer/internal/config"
)

const testDBName = "asset_syncer_test"

var testDB *gorm.DB

// TestMain connects to TEST_DB_HOST when set, otherwise to a throwaway postgres container
func TestMain(m *testing.M) {
	ctx := context.Background()

	dsn, terminate, err := testDSN(ctx)
	if err != nil {
		fmt.Printf("Failed to prepare test database: %v\n", err)
		os.Exit(1)
	}

	code := 1
	testDB, err = openTestDB(dsn)
	if err != nil {
		fmt.Printf("Failed to open test database: %v\n", err)
	} else {
		code = m.Run()
	}

	terminate()
	os.Exit(code)
}

func testDSN(ctx context.Context) (string, func(), error) {
	if host := os.Getenv("TEST_DB_HOST"); host != "" {
		port, _ := strconv.Atoi(envOr("TEST_DB_PORT", "5432"))
		cfg := config.DatabaseConfig{
			Host:     host,
			Port:     port,
			User:     envOr("TEST_DB_USER", "postgres"),
			Password: envOr("TEST_DB_PASSWORD", "postgres"),
			DBName:   envOr("TEST_DB_NAME", testDBName),
			SSLMode:  "disable",
		}
		fmt.Printf("Using external database: %s:%d/%s\n", cfg.Host, cfg.Port, cfg.DBName)
		return cfg.DSN(), func() {}, nil
	}

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase(testDBName),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return "", nil, fmt.Errorf("failed to start postgres container: %w", err)
	}
	terminate := func() {
		if err := container.Terminate(ctx); err != nil {
			fmt.Printf("Failed to terminate postgres container: %v\n", err)
		}
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		terminate()
		return "", nil, fmt.Errorf("failed to get connection string: %w", err)
	}
	return dsn, terminate, nil
}

// openTestDB connects and applies db/init_pg_db.sql
func openTestDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(pgdriver.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	schemaSQL, err := os.ReadFile(filepath.Join("..", "..", "db", "init_pg_db.sql")) //nolint:gosec,G304
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if _, err := sqlDB.Exec(string(schemaSQL)); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return db, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// initPGTestDB returns a store bound to a transaction that is rolled back when the test ends
func initPGTestDB(t *testing.T) Store {
	tx := testDB.Begin()
	require.NoError(t, tx.Error)
	t.Cleanup(func() { tx.Rollback() })

	return NewPGStore(tx)
}

func TestPostgreSQLStore(t *testing.T) {
	RunStoreTests(t, initPGTestDB, func(*testing.T) {})
}
