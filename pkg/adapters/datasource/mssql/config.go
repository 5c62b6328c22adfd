package mssql

import (
	"fmt"
	"net/url"

	"github.com/ekaya-inc/ekam-query/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekam-query/pkg/config"
)

// DefaultPort is the standard SQL Server port.
const DefaultPort = 1433

// DefaultConnectionTimeout is the connection timeout in seconds.
const DefaultConnectionTimeout = 30

// buildConnectionString builds a sqlserver:// URL for SQL authentication.
// ssl_mode "disable" turns encryption off; any other value encrypts and
// "trust" additionally accepts self-signed server certificates.
func buildConnectionString(cfg datasource.ConnectionConfig) (string, error) {
	if cfg.Host == "" {
		return "", fmt.Errorf("host is required")
	}
	if cfg.Database == "" {
		return "", fmt.Errorf("database is required")
	}

	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}

	query := url.Values{}
	query.Add("database", cfg.Database)
	switch cfg.SSLMode {
	case "disable":
		query.Add("encrypt", "disable")
	case "trust":
		query.Add("encrypt", "true")
		query.Add("TrustServerCertificate", "true")
	default:
		query.Add("encrypt", "true")
	}
	query.Add("connection timeout", fmt.Sprintf("%d", DefaultConnectionTimeout))

	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		config.ResolveHost(cfg.Host),
		port,
		query.Encode(),
	), nil
}
