// Package storage persists the planner's record tables.
//
// Drivers:
//   - "memory": process-local, for tests and dry runs
//   - "file":   one JSON document per table, written via tmp+rename
//   - "sqlite": one SQLite database (pure-Go driver), schema from migrations.sql
//
// Every Save replaces the whole table (snapshot write, last writer wins).
// Singleton records (secretary buff, slot swap) are cleared by saving nil.
package storage
