package mysql

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        "mysql",
			DisplayName: "MySQL",
			DefaultPort: DefaultPort,
		},
		Open: func(ctx context.Context, cfg datasource.ConnectionConfig, logger *zap.Logger) (datasource.Datasource, error) {
			return Open(ctx, cfg, logger)
		},
	})
}
