// main.go
// Wires everything together: config, logging and the session store, then the
// core (lifecycle manager, broadcast engine, router) behind the WebSocket
// gateway. The gateway's hub doubles as the delivery transport, so a
// broadcast pushes straight onto each connection's send buffer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"

	"drawchat/internal/broadcast"
	"drawchat/internal/census"
	"drawchat/internal/config"
	"drawchat/internal/gateway"
	"drawchat/internal/lifecycle"
	"drawchat/internal/router"
	"drawchat/internal/session"
	"drawchat/pkg/logx"
)

func main() {
	configPath := flag.String("config", "drawchat.yaml", "path to the YAML config file")
	envFile := flag.String("env", ".env", "path to an optional .env file")
	flag.Parse()

	if err := run(*configPath, *envFile); err != nil {
		fmt.Fprintln(os.Stderr, "drawchat:", err)
		os.Exit(1)
	}
}

func run(configPath, envFile string) error {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return err
	}
	log, err := logx.New(cfg.Log, os.Stdout)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := session.Open(ctx, cfg.Store, log)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("session store close failed", logx.Err(err))
		}
	}()

	hub := gateway.NewHub(log)
	lc := lifecycle.New(store, log)
	engine := broadcast.New(cfg.Broadcast, store, hub, lc, log)
	dispatcher := gateway.NewDispatcher(lc, router.New(engine, log), log)
	server := gateway.NewServer(cfg.Server, hub, dispatcher, log)

	if cfg.Census.Enabled {
		reporter, err := census.New(cfg.Census, store, log)
		if err != nil {
			return err
		}
		server.SetCensus(reporter)
		reporter.Start()
		defer reporter.Stop()
	}

	go func() {
		err := config.Watch(ctx, configPath, envFile, log, func(next config.Config) {
			if err := log.SetLevel(next.Log.Level); err != nil {
				log.Warn("log level not applied", logx.Err(err))
			}
		})
		if err != nil {
			log.Warn("config watch stopped", logx.Err(err))
		}
	}()

	log.Info("starting drawchat",
		logx.String("addr", cfg.Server.Addr),
		logx.String("store", cfg.Store.Driver),
		logx.Bool("exclude_sender", cfg.Broadcast.ExcludeSender),
		logx.Bool("prune_stale", cfg.Broadcast.PruneStale),
	)
	notify(log, daemon.SdNotifyReady)

	err = server.Serve(ctx)
	notify(log, daemon.SdNotifyStopping)
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	log.Info("drawchat stopped")
	return err
}

// notify is a no-op outside systemd.
func notify(log logx.Logger, state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		log.Debug("sd_notify failed", logx.String("state", state), logx.Err(err))
	}
}
