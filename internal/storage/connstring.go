package storage

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// SQLiteConnString builds a modernc.org/sqlite connection string with the
// standard pragmas: busy_timeout, foreign_keys, journal_mode=WAL and
// _time_format. Honors BUDDY_LOCK_TIMEOUT for the busy timeout (default 30s).
// If path is already a file: URI, pragmas are appended only if absent.
func SQLiteConnString(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}

	busy := 30 * time.Second
	if v := strings.TrimSpace(os.Getenv("BUDDY_LOCK_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			busy = d
		}
	}
	busyMs := int64(busy / time.Millisecond)

	conn := path
	if !strings.HasPrefix(conn, "file:") {
		conn = "file:" + conn
	}
	sep := "?"
	if strings.Contains(conn, "?") {
		sep = "&"
	}
	add := func(key, param string) {
		if !strings.Contains(conn, key) {
			conn += sep + param
			sep = "&"
		}
	}
	add("_pragma=busy_timeout", fmt.Sprintf("_pragma=busy_timeout(%d)", busyMs))
	add("_pragma=foreign_keys", "_pragma=foreign_keys(ON)")
	add("_pragma=journal_mode", "_pragma=journal_mode(WAL)")
	add("_time_format=", "_time_format=sqlite")
	return conn
}
