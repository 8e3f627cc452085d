package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"drawchat/pkg/logx"
)

const (
	defaultRedisPrefix    = "drawchat:session:"
	defaultRedisScanCount = 100
)

// RedisStore keeps one JSON value per session under <prefix><sessionId>.
// Keys carry no TTL: presence is existence.
type RedisStore struct {
	client    *redis.Client
	prefix    string
	scanCount int64
	log       logx.Logger
}

func openRedis(ctx context.Context, cfg RedisConfig, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("store.redis.url is required for redis driver")
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	st := NewRedisStore(client, cfg, log)
	log.Info("session store opened", logx.String("driver", "redis"), logx.String("addr", opts.Addr), logx.String("prefix", st.prefix))
	return st, nil
}

// NewRedisStore wraps an existing client. The store owns the client and
// closes it on Close.
func NewRedisStore(client *redis.Client, cfg RedisConfig, log logx.Logger) *RedisStore {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	count := cfg.ScanCount
	if count <= 0 {
		count = defaultRedisScanCount
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &RedisStore{client: client, prefix: prefix, scanCount: count, log: log}
}

func (r *RedisStore) key(sessionID string) string { return r.prefix + sessionID }

func (r *RedisStore) Get(ctx context.Context, sessionID string) (Session, error) {
	b, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}
	var s Session
	if err := sonic.Unmarshal(b, &s); err != nil {
		return Session{}, fmt.Errorf("failed to decode session %s: %w", sessionID, err)
	}
	return s, nil
}

func (r *RedisStore) Put(ctx context.Context, s Session) error {
	b, err := sonic.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", s.SessionID, err)
	}
	if err := r.client.Set(ctx, r.key(s.SessionID), b, 0).Err(); err != nil {
		return fmt.Errorf("failed to put session %s: %w", s.SessionID, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	return nil
}

// Scan walks the keyspace with SCAN and resolves each page with MGET.
// SCAN may repeat keys and keys may vanish between the two calls; both are
// tolerated.
func (r *RedisStore) Scan(ctx context.Context) ([]Session, error) {
	var (
		out    []Session
		seen   = make(map[string]struct{})
		cursor uint64
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", r.scanCount).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan sessions: %w", err)
		}
		if len(keys) > 0 {
			vals, err := r.client.MGet(ctx, keys...).Result()
			if err != nil {
				return nil, fmt.Errorf("failed to load sessions: %w", err)
			}
			for i, v := range vals {
				raw, ok := v.(string)
				if !ok {
					continue // deleted after SCAN
				}
				var s Session
				if err := sonic.UnmarshalString(raw, &s); err != nil {
					r.log.Warn("skipping undecodable session record", logx.String("key", keys[i]), logx.Err(err))
					continue
				}
				if _, dup := seen[s.SessionID]; dup {
					continue
				}
				seen[s.SessionID] = struct{}{}
				out = append(out, s)
			}
		}
		cursor = next
		if cursor == 0 {
			return out, nil
		}
	}
}

func (r *RedisStore) Close() error { return r.client.Close() }
