package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"datekeeper/internal/database"
	"datekeeper/internal/store"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// NewTestDB opens an in-memory SQLite database with all migrations applied.
// The pool is pinned to one connection so the database survives between
// queries and transactions are serialized.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NamingStrategy: schema.NamingStrategy{SingularTable: true},
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("getting test database handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	t.Cleanup(func() {
		if err := sqlDB.Close(); err != nil {
			t.Errorf("closing test database: %v", err)
		}
	})

	return db
}

// NewTestStore wraps NewTestDB in a GormStore.
func NewTestStore(t *testing.T) *store.GormStore {
	t.Helper()
	return store.New(NewTestDB(t))
}

// NewPooledTestDB opens a file-backed SQLite database in a temp dir with a
// pool of conns connections, so concurrent callers really overlap.
func NewPooledTestDB(t *testing.T, conns int) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "datekeeper.db")
	db, err := gorm.Open(sqlite.Open(database.SQLiteDSN(path)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NamingStrategy: schema.NamingStrategy{SingularTable: true},
	})
	if err != nil {
		t.Fatalf("opening pooled test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("getting pooled test database handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(conns)
	sqlDB.SetMaxIdleConns(conns)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating pooled test database: %v", err)
	}

	t.Cleanup(func() {
		if err := sqlDB.Close(); err != nil {
			t.Errorf("closing pooled test database: %v", err)
		}
	})

	return db
}

// NewServerTestDB connects to the Postgres or MySQL database named by
// TEST_DATABASE_URL and skips the test when it is not set.
func NewServerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.InitDB(database.Options{
		URL:        url,
		MaxRetries: 1,
		LogLevel:   logger.Silent,
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("connecting to server test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("getting server test database handle: %v", err)
	}
	t.Cleanup(func() {
		if err := sqlDB.Close(); err != nil {
			t.Errorf("closing server test database: %v", err)
		}
	})

	return db
}
