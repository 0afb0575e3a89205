// Package sqlite implements the storage interface using SQLite.
//
// Files:
//   - store.go: SQLiteStorage struct, New() constructor, WASM cache setup,
//     and the single-key Get/Has/Set/Delete methods
//   - transaction.go: RunInTransaction and the transaction wrapper
//   - schema.go: the kv table definition
//   - errors.go: error wrapping helpers
//
// The driver is ncruces/go-sqlite3, a cgo-free WASM build of SQLite running on
// wazero, so the rw binary stays statically linkable.
package sqlite
