// Package all wires every built-in sink backend into the storage registry.
//
// It exists purely for side effects: importing it runs each backend's init,
// making these kinds available to storage.New:
//
//   - "sqlite3", "sqlite"   (tabload/internal/storage/sqlite)
//   - "pg", "postgres"      (tabload/internal/storage/postgres)
//   - "maria", "mariadb"    (tabload/internal/storage/mariadb)
//   - "print"               (tabload/internal/storage/dryrun)
//
// Typical usage (in cmd/tabload/main.go):
//
//	import _ "tabload/internal/storage/all"
//
// A binary that needs only a subset can import the backend packages directly.
package all

import (
	_ "tabload/internal/storage/dryrun"
	_ "tabload/internal/storage/mariadb"
	_ "tabload/internal/storage/postgres"
	_ "tabload/internal/storage/sqlite"
)
