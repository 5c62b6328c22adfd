package datasource

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/apperrors"
)

func TestOpen_UnknownType(t *testing.T) {
	_, err := Open(context.Background(), ConnectionConfig{Type: "oracle"}, zap.NewNop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnsupportedDatasource))
	assert.Contains(t, err.Error(), "oracle")
}

func TestOpen_AppliesDefaultPort(t *testing.T) {
	var got ConnectionConfig
	Register(AdapterRegistration{
		Info: AdapterInfo{Type: "fake", DisplayName: "Fake", DefaultPort: 4242},
		Open: func(_ context.Context, cfg ConnectionConfig, _ *zap.Logger) (Datasource, error) {
			got = cfg
			return nil, nil
		},
	})
	t.Cleanup(func() {
		registryMu.Lock()
		delete(registry, "fake")
		registryMu.Unlock()
	})

	_, err := Open(context.Background(), ConnectionConfig{Type: "fake"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 4242, got.Port)

	_, err = Open(context.Background(), ConnectionConfig{Type: "fake", Port: 1}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, got.Port)

	assert.True(t, IsRegistered("fake"))
	var types []string
	for _, info := range RegisteredAdapters() {
		types = append(types, info.Type)
	}
	assert.Contains(t, types, "fake")
}

func TestGroupColumns(t *testing.T) {
	names, cols := GroupColumns([][2]string{
		{"uq_b", "x"},
		{"uq_a", "y"},
		{"uq_b", "z"},
	})
	assert.Equal(t, []string{"uq_b", "uq_a"}, names)
	assert.Equal(t, []string{"x", "z"}, cols["uq_b"])
	assert.Equal(t, []string{"y"}, cols["uq_a"])
}
