package postgres

import (
	"fmt"
	"net/url"

	"github.com/ekaya-inc/ekam-query/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekam-query/pkg/config"
)

// DefaultPort is the standard PostgreSQL port.
const DefaultPort = 5432

// DefaultSSLMode is used when the configuration leaves ssl mode empty.
const DefaultSSLMode = "require"

// buildConnectionString builds a PostgreSQL URL with proper escaping.
// User-provided fields are URL-escaped so passwords containing @, /, # or ?
// survive URL parsing. Loopback hosts are rewritten when running in a container.
func buildConnectionString(cfg datasource.ConnectionConfig) (string, error) {
	if cfg.Host == "" {
		return "", fmt.Errorf("host is required")
	}
	if cfg.Database == "" {
		return "", fmt.Errorf("database is required")
	}

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = DefaultSSLMode
	}
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}

	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		config.ResolveHost(cfg.Host),
		port,
		url.QueryEscape(cfg.Database),
		sslMode,
	), nil
}
