// Package gateway terminates client WebSocket connections.
//
// It plays two roles around the core:
//   - Event source: every socket produces a connect event when it opens, one
//     data event per inbound frame and a disconnect event when it closes.
//     The Dispatcher turns each event's outcome into a (status, body) response.
//   - Delivery transport: the Hub maps a session id to its live socket and
//     implements the push-to-address primitive used by the broadcast engine.
//
// Each connection runs a read goroutine and a write goroutine. Separating the
// two avoids head-of-line blocking when a browser is slow: deliveries only
// enqueue on the connection's send buffer.
package gateway
