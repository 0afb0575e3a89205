package storage

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// SQLiteConnString builds a SQLite connection string with standard pragmas.
//
// Includes busy_timeout (prevents "database is locked" when two rw processes
// race for the wallet) and time_format pragmas.
// Honors the RW_LOCK_TIMEOUT env var for busy timeout (default 30s).
// If readOnly is true, the connection is opened in read-only mode.
// If path is already a file: URI, pragmas are appended only if absent.
func SQLiteConnString(path string, readOnly bool) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}

	busy := 30 * time.Second
	if v := strings.TrimSpace(os.Getenv("RW_LOCK_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			busy = d
		}
	}
	busyMs := int64(busy / time.Millisecond)

	if strings.HasPrefix(path, "file:") {
		conn := path
		sep := "?"
		if strings.Contains(conn, "?") {
			sep = "&"
		}
		if readOnly && !strings.Contains(conn, "mode=") {
			conn += sep + "mode=ro"
			sep = "&"
		}
		if !strings.Contains(conn, "_pragma=busy_timeout") {
			conn += fmt.Sprintf("%s_pragma=busy_timeout(%d)", sep, busyMs)
			sep = "&"
		}
		if !strings.Contains(conn, "_time_format=") {
			conn += sep + "_time_format=sqlite"
		}
		return conn
	}

	if readOnly {
		return fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(%d)&_time_format=sqlite", path, busyMs)
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_time_format=sqlite", path, busyMs)
}

// MySQLDSN builds a go-sql-driver/mysql DSN for a dolt sql-server (or any
// MySQL-compatible server). The password is URL-safe as the driver expects.
func MySQLDSN(user, password, host string, port int, database string, tls bool) string {
	var userInfo string
	if password != "" {
		userInfo = fmt.Sprintf("%s:%s", user, password)
	} else {
		userInfo = user
	}
	params := url.Values{}
	params.Set("parseTime", "true")
	params.Set("timeout", "5s")
	if tls {
		params.Set("tls", "true")
	}
	return fmt.Sprintf("%s@tcp(%s:%d)/%s?%s", userInfo, host, port, database, params.Encode())
}
