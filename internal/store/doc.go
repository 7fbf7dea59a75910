// Package store executes compiled shape queries and hands back reshaped
// results.
//
// Fetcher runs a querysql.Query against any database/sql connection (SQL
// Server through go-mssqldb, SQLite through go-sqlite3). The statement is
// wrapped by its dialect so the whole JSON document arrives as one text
// value, decoded into an ir.Value and passed through the reshaper.
//
// Store is a local SQLite database laid out the way the compiler expects
// UPM tables to be. It backs the sqlite dialect for development and tests.
//
// Store applies WAL journaling, NORMAL synchronous mode, a 5 second busy
// timeout and foreign key enforcement, and tracks its schema version in
// PRAGMA user_version.
package store
