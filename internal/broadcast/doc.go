// Package broadcast fans one outbound event out to every connected session.
//
// Each call reads the current recipient set from the session store (no
// caching), issues one delivery per recipient concurrently, and returns once
// every attempt has finished. Delivery is best-effort and at-most-once: a
// failed or timed-out recipient is logged and counted, never retried, and
// never fails the broadcast as a whole.
//
// Optional behavior:
//   - ExcludeSender skips the originating session of events that carry one.
//   - PruneStale asks the Pruner to drop sessions whose delivery failed
//     with ErrGone.
package broadcast
