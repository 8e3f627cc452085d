// Package census periodically counts who is connected.
package census

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"drawchat/internal/session"
	"drawchat/pkg/logx"
)

const defaultSchedule = "@every 1m"

type Config struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
}

// Lister is the read side of the session store.
type Lister interface {
	Scan(ctx context.Context) ([]session.Session, error)
}

// Snapshot is the result of one census run.
type Snapshot struct {
	Sessions int
	Users    int
	Took     time.Duration
	At       time.Time
}

// Reporter runs a read-only scan of the session store on a cron schedule.
type Reporter struct {
	sessions Lister
	log      logx.Logger
	cron     *cron.Cron

	mu   sync.RWMutex
	last Snapshot
}

func New(cfg Config, sessions Lister, log logx.Logger) (*Reporter, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	r := &Reporter{
		sessions: sessions,
		log:      log.With(logx.String("component", "census")),
		cron:     cron.New(cron.WithParser(cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor))),
	}
	spec := cfg.Schedule
	if spec == "" {
		spec = defaultSchedule
	}
	if _, err := r.cron.AddFunc(spec, func() { _, _ = r.Run(context.Background()) }); err != nil {
		return nil, fmt.Errorf("census schedule %q: %w", spec, err)
	}
	return r, nil
}

// Run takes one census immediately.
func (r *Reporter) Run(ctx context.Context) (Snapshot, error) {
	start := time.Now()
	all, err := r.sessions.Scan(ctx)
	if err != nil {
		r.log.Warn("census failed", logx.Err(err))
		return Snapshot{}, err
	}
	users := make(map[string]struct{}, len(all))
	for _, s := range all {
		users[s.UserID] = struct{}{}
	}
	snap := Snapshot{Sessions: len(all), Users: len(users), Took: time.Since(start), At: start}

	r.mu.Lock()
	r.last = snap
	r.mu.Unlock()
	r.log.Info("census", logx.Int("sessions", snap.Sessions), logx.Int("users", snap.Users), logx.Duration("took", snap.Took))
	return snap, nil
}

// Last returns the most recent snapshot (zero before the first run).
func (r *Reporter) Last() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

func (r *Reporter) Start() { r.cron.Start() }

// Stop halts the schedule and waits for a running census to finish.
func (r *Reporter) Stop() {
	<-r.cron.Stop().Done()
}
