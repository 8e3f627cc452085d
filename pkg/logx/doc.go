// Package logx configures drawchat's structured logging.
//
// It is a small wrapper on top of zerolog that keeps:
//   - Console output readable (short timestamp + short caller)
//   - JSON output structured for log shippers
//   - The level adjustable at runtime (config hot reload)
package logx
