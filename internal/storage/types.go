package storage

import "time"

// Config configures the session database.
type Config struct {
	// Path is the sqlite file. ":memory:" keeps everything in memory (tests).
	Path        string
	BusyTimeout time.Duration // 0 means 5s
}

// Dialect is the sqlstore dialect name matching the modernc driver.
const Dialect = "sqlite"
