package mysql

import (
	"fmt"
	"net"
	"strconv"
	"time"

	driver "github.com/go-sql-driver/mysql"

	"github.com/ekaya-inc/ekam-query/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekam-query/pkg/config"
)

// DefaultPort is the standard MySQL port.
const DefaultPort = 3306

// buildDSN renders the driver DSN. ssl_mode "disable" leaves TLS off,
// "require" enables it, and anything else is passed through as the tls profile.
func buildDSN(cfg datasource.ConnectionConfig) (string, error) {
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

	mc := driver.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(config.ResolveHost(cfg.Host), strconv.Itoa(port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.Timeout = 30 * time.Second

	switch cfg.SSLMode {
	case "", "disable":
	case "require":
		mc.TLSConfig = "true"
	default:
		mc.TLSConfig = cfg.SSLMode
	}

	return mc.FormatDSN(), nil
}
