//go:build !cgo
// +build !cgo

package export

import "fmt"

// OpenSQLite requires cgo for the sqlite3 driver.
func OpenSQLite(path string) (*DB, error) {
	return nil, fmt.Errorf("%s: SQLite output needs a cgo-enabled build", path)
}
