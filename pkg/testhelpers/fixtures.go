package testhelpers

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/adapters/datasource/sqlite"
)

// EmployeesSQLite is the HR fixture used across unit tests: departments and a
// self-referencing employees table.
const EmployeesSQLite = `
CREATE TABLE departments (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	CONSTRAINT uq_departments_name UNIQUE (name)
);
CREATE TABLE employees (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT,
	salary REAL DEFAULT 0,
	department_id INTEGER REFERENCES departments(id),
	manager_id INTEGER REFERENCES employees(id),
	CONSTRAINT uq_employees_email UNIQUE (email)
);
CREATE INDEX idx_employees_department ON employees(department_id);

INSERT INTO departments (id, name) VALUES (1, 'Engineering'), (2, 'People');
INSERT INTO employees (id, name, email, salary, department_id, manager_id) VALUES
	(1, 'Ada', 'ada@example.com', 150000, 1, NULL),
	(2, 'Grace', 'grace@example.com', 140000, 1, 1),
	(3, 'Linus', 'linus@example.com', 90000, 2, 1);
`

// NewEmployeesDatasource opens a SQLite datasource in a temp directory seeded
// with EmployeesSQLite. The datasource is closed when the test ends.
func NewEmployeesDatasource(t *testing.T) *sqlite.Adapter {
	t.Helper()

	ctx := context.Background()
	ds, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "employees.db"), 4, zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite fixture: %v", err)
	}
	t.Cleanup(func() { _ = ds.Close() })

	if _, err := ds.DB().ExecContext(ctx, EmployeesSQLite); err != nil {
		t.Fatalf("seed sqlite fixture: %v", err)
	}
	return ds
}
