package testhelpers

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// PostgresTestImage is the stock PostgreSQL image used for adapter integration tests.
	PostgresTestImage = "postgres:16-alpine"
	// RedisTestImage is the stock Redis image used for the cache integration tests.
	RedisTestImage = "redis:7-alpine"
)

// EmployeesPostgres is the PostgreSQL rendition of EmployeesSQLite.
const EmployeesPostgres = `
CREATE TABLE departments (
	id SERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	CONSTRAINT uq_departments_name UNIQUE (name)
);
CREATE TABLE employees (
	id SERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT,
	salary NUMERIC(12,2) DEFAULT 0,
	department_id INTEGER REFERENCES departments(id),
	manager_id INTEGER,
	CONSTRAINT uq_employees_email UNIQUE (email),
	CONSTRAINT fk_employees_manager FOREIGN KEY (manager_id) REFERENCES employees(id)
);
CREATE INDEX idx_employees_department ON employees(department_id);

INSERT INTO departments (id, name) VALUES (1, 'Engineering'), (2, 'People');
INSERT INTO employees (id, name, email, salary, department_id, manager_id) VALUES
	(1, 'Ada', 'ada@example.com', 150000, 1, NULL),
	(2, 'Grace', 'grace@example.com', 140000, 1, 1),
	(3, 'Linus', 'linus@example.com', 90000, 2, 1);
`

// TestDB holds a shared PostgreSQL container seeded with EmployeesPostgres.
type TestDB struct {
	Container testcontainers.Container
	Pool      *pgxpool.Pool
	Host      string
	Port      int
	User      string
	Password  string
	Database  string
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns a shared PostgreSQL container for integration tests.
// The container is created once and reused across all tests in the run.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB()
	})

	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}

	return sharedTestDB
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	db := &TestDB{User: "ekam", Password: "test_password", Database: "hr"}

	req := testcontainers.ContainerRequest{
		Image:        PostgresTestImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       db.Database,
			"POSTGRES_USER":     db.User,
			"POSTGRES_PASSWORD": db.Password,
		},
		// The init server logs readiness once before restarting for real.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}
	db.Container = container

	if db.Host, db.Port, err = endpoint(ctx, container, "5432"); err != nil {
		return nil, err
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		db.User, db.Password, db.Host, db.Port, db.Database)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection with retry
	for i := 0; i < 10; i++ {
		if err = pool.Ping(ctx); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		return nil, fmt.Errorf("test database never became reachable: %w", err)
	}

	if _, err := pool.Exec(ctx, EmployeesPostgres); err != nil {
		return nil, fmt.Errorf("failed to seed test database: %w", err)
	}
	db.Pool = pool

	return db, nil
}

// TestRedis holds a shared Redis container.
type TestRedis struct {
	Container testcontainers.Container
	Host      string
	Port      int
}

var (
	sharedRedis     *TestRedis
	sharedRedisOnce sync.Once
	sharedRedisErr  error
)

// GetTestRedis returns a shared Redis container for cache integration tests.
func GetTestRedis(t *testing.T) *TestRedis {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedRedisOnce.Do(func() {
		sharedRedis, sharedRedisErr = setupRedis()
	})

	if sharedRedisErr != nil {
		t.Fatalf("Failed to setup test redis: %v", sharedRedisErr)
	}

	return sharedRedis
}

func setupRedis() (*TestRedis, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        RedisTestImage,
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForLog("Ready to accept connections").
			WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start redis container: %w", err)
	}

	host, port, err := endpoint(ctx, container, "6379")
	if err != nil {
		return nil, err
	}

	return &TestRedis{Container: container, Host: host, Port: port}, nil
}

func endpoint(ctx context.Context, container testcontainers.Container, containerPort nat.Port) (string, int, error) {
	host, err := container.Host(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("failed to get container host: %w", err)
	}

	mapped, err := container.MappedPort(ctx, containerPort)
	if err != nil {
		return "", 0, fmt.Errorf("failed to get container port: %w", err)
	}

	port, err := strconv.Atoi(mapped.Port())
	if err != nil {
		return "", 0, fmt.Errorf("invalid mapped port %q: %w", mapped.Port(), err)
	}
	return host, port, nil
}
