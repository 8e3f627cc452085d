// Package session holds the registry of currently open client connections.
//
// A Session exists in the Store if and only if its connection is open; the
// Store is the only source of truth for "who is connected". Records are
// immutable once written: a changed user id means disconnect + reconnect.
//
// Drivers:
//   - memory: process-local map (tests, single-node dev)
//   - redis:  one key per session, scanned with SCAN + MGET
//   - sqlite: one row per session
package session
