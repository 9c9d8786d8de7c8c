//go:build integration

package integration

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	reposql "github.com/iyhunko/product-catalog/internal/repository/sql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
)

// databaseURL points at the PostgreSQL container shared by every test in the package.
var databaseURL string

// TestMain starts one PostgreSQL container for the package and purges it afterwards.
func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not connect to docker: %s", err)
	}
	pool.MaxWait = 120 * time.Second

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16",
		Env: []string{
			"POSTGRES_PASSWORD=secret",
			"POSTGRES_USER=testuser",
			"POSTGRES_DB=testdb",
			"listen_addresses='*'",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("Could not start resource: %s", err)
	}

	// Hard stop for containers orphaned by a crashed run
	if err := resource.Expire(300); err != nil {
		log.Fatalf("Could not set expiration: %s", err)
	}

	databaseURL = fmt.Sprintf("postgres://testuser:secret@%s/testdb?sslmode=disable", resource.GetHostPort("5432/tcp"))
	log.Println("Connecting to database on url: ", databaseURL)

	if err := pool.Retry(func() error {
		db, err := sql.Open("pgx", databaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Ping()
	}); err != nil {
		log.Fatalf("Could not connect to database: %s", err)
	}

	code := m.Run()

	if err := pool.Purge(resource); err != nil {
		log.Printf("Could not purge resource: %s", err)
	}
	os.Exit(code)
}

// TestDB is a migrated connection to the shared container.
type TestDB struct {
	DB *sql.DB
}

// SetupTestDB opens the shared database through driver ("pgx" or "postgres")
// and applies the embedded migrations.
func SetupTestDB(t *testing.T, driver string) *TestDB {
	t.Helper()

	db, err := sql.Open(driver, databaseURL)
	if err != nil {
		t.Fatalf("Could not open database: %s", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("Could not ping database: %s", err)
	}
	if err := reposql.RunMigrations(db); err != nil {
		t.Fatalf("Could not run migrations: %s", err)
	}

	return &TestDB{DB: db}
}

// Cleanup closes the database connection.
func (tdb *TestDB) Cleanup(t *testing.T) {
	t.Helper()

	if err := tdb.DB.Close(); err != nil {
		t.Errorf("Could not close database: %s", err)
	}
}

// TruncateTables empties every table and restarts the product id sequence.
func (tdb *TestDB) TruncateTables(t *testing.T) {
	t.Helper()

	_, err := tdb.DB.ExecContext(context.Background(), "TRUNCATE TABLE events, products RESTART IDENTITY CASCADE")
	if err != nil {
		t.Fatalf("Could not truncate tables: %s", err)
	}
}
