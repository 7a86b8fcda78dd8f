// Package storage keeps an optional history of dispatched runs.
//
// Drivers:
//   - "file": JSON Lines, dependency-free
//   - "sqlite": SQLite database file (build tag sqlite, modernc.org/sqlite)
//
// History is informational only. The scheduler never reads it to decide
// whether to fire, so a lost or disabled store cannot suppress a post.
package storage
