// Package store provides the persistent chatter counter backing the bd
// capability pack, implemented on SQLite via modernc.org/sqlite.
//
// The one concurrency guarantee callers rely on: UpsertIncrement is atomic
// per record. Concurrent increments to the same name always sum exactly;
// last-writer-wins races cannot drop updates because the increment happens
// inside a single SQL statement.
//
// Use NewSQLiteStore(filepath.Join(t.TempDir(), "test.db")) in tests.
package store
