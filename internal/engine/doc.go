// Package engine implements the materialization and consistency core
// of the engram memory store.
//
// The engine owns four concerns:
//
//   - schema registration: validating a definition and materializing
//     its dynamic table in one transaction
//   - event ingestion: idempotency, the append-only event log, and the
//     derived counter plus top-k projection kept consistent in the
//     same transaction as the triggering event
//   - identity consolidation: merge of one user into another across
//     every owned relation with deterministic, last-write-wins
//     conflict resolution, and soft/hard delete with a dry-run report
//   - queries over the materialized state (latest event, metrics,
//     top-k)
//
// All mutations are synchronous and single-writer: each call runs one
// storage transaction to completion on the calling goroutine. Clock
// and id generation are injected so tests can pin timestamps and ids.
package engine
