package session

import (
	"context"
	"errors"
	"strings"

	"drawchat/pkg/logx"
)

// Open initializes the configured store. An empty driver means memory.
func Open(ctx context.Context, cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))

	switch driver {
	case "", "memory":
		log.Info("session store opened", logx.String("driver", "memory"))
		return NewMemoryStore(), nil
	case "redis":
		return openRedis(ctx, cfg.Redis, log)
	case "sqlite", "sqlite3":
		return openSQLite(ctx, cfg.SQLite, log)
	default:
		return nil, errors.New("unknown session store driver: " + driver)
	}
}
