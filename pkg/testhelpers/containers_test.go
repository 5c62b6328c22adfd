package testhelpers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTestDB_SeededSchema(t *testing.T) {
	testDB := GetTestDB(t)
	ctx := context.Background()

	var tableCount int
	err := testDB.Pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = 'public'").
		Scan(&tableCount)
	require.NoError(t, err)
	assert.Equal(t, 2, tableCount)

	var employees int
	require.NoError(t, testDB.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM employees").Scan(&employees))
	assert.Equal(t, 3, employees)
}

func TestNewEmployeesDatasource(t *testing.T) {
	ds := NewEmployeesDatasource(t)

	var name string
	err := ds.DB().QueryRowContext(context.Background(),
		"SELECT name FROM employees WHERE manager_id IS NULL").Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "Ada", name)
}

func TestGetTestRedis_MappedEndpoint(t *testing.T) {
	r := GetTestRedis(t)

	assert.NotEmpty(t, r.Host)
	assert.Greater(t, r.Port, 0)
}
