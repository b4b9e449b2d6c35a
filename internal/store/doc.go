// Package store implements durable SQLite storage for the engram
// memory database.
//
// The store holds two kinds of tables:
//
//   - Core tables created from the embedded schema.sql: users,
//     identities, scopes and memberships, the append-only event log,
//     per-owner state documents, counter metrics, the materialized
//     top-k projection, the schema registry, and the projection
//     outbox.
//   - Dynamic tables (dyn_*) created at runtime by the schema
//     registry from user-supplied schema definitions.
//
// Row-level operations are package-level functions over the DBTX
// interface, so the engine can compose several of them inside one
// transaction via Store.WithTx. The store itself never opens nested
// transactions.
//
// Concurrency model: single writer. The connection pool is pinned to
// one connection and WAL mode allows concurrent readers from other
// processes. Callers that need exclusion across processes rely on
// SQLite's own file locking.
package store
