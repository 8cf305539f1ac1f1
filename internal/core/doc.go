// Package core provides the tasks data source behind the table pages.
//
// It is independent of the HTTP layer: web handlers, the CLI and tests all
// go through [Service].
//
// # Stores
//
// A [TaskStore] answers paged, filtered and sorted task queries. [PgStore]
// runs them against PostgreSQL with SQL assembled by [WhereBuilder];
// [MemoryStore] evaluates the same query in process and backs the demo
// server when no database is configured.
//
// # Queries
//
// [TaskQueryFrom] turns table state (pagination, raw filter values, sorting)
// into a [TaskQuery]. Range filters travel as "from,to" strings where
// either side may be empty; dates are Unix milliseconds.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each category has a code for support reference:
//
//   - DB001-DB005: Database errors
//   - TBL001-TBL002: Unknown columns and tables
//   - QRY001-QRY002: Unreadable filters and view operations
//   - VIEW001: View state store failures
//   - RATE001-RATE002: Rate limiting and export slots
package core
