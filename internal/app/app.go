// Package app wires the server together: configuration, logging,
// the leaderboard store, the telnet listener, and the web surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"

	"snakepit/server/internal/leaderboard"
	"snakepit/server/internal/render"
	"snakepit/server/internal/session"
	"snakepit/server/internal/telemetry"
	"snakepit/server/internal/telnet"
	"snakepit/server/internal/web"
	"snakepit/server/logging"
	"snakepit/server/logging/sinks"
)

// Config is loaded from the environment.
type Config struct {
	TelnetAddr   string        `env:"SNAKE_TELNET_ADDR" envDefault:":2323"`
	HTTPAddr     string        `env:"SNAKE_HTTP_ADDR" envDefault:":8080"`
	ScoresPath   string        `env:"SNAKE_SCORES_PATH" envDefault:"scores.json"`
	BoardWidth   int           `env:"SNAKE_BOARD_WIDTH" envDefault:"40"`
	BoardHeight  int           `env:"SNAKE_BOARD_HEIGHT" envDefault:"20"`
	TickInterval time.Duration `env:"SNAKE_TICK_INTERVAL" envDefault:"150ms"`
}

// Run loads configuration from the environment and serves until the
// context is canceled.
func Run(ctx context.Context) error {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return RunWithConfig(ctx, cfg)
}

// RunWithConfig serves with an explicit configuration.
func RunWithConfig(ctx context.Context, cfg Config) error {
	logger := telemetry.WrapLogger(log.Default())

	router := logging.NewRouter(nil, logging.DefaultConfig(), []logging.NamedSink{
		{Name: "console", Sink: sinks.NewConsoleSink(os.Stdout)},
	})
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := router.Close(closeCtx); err != nil {
			logger.Printf("failed to close logging router: %v", err)
		}
	}()

	store := leaderboard.NewStore(cfg.ScoresPath, logger, router)
	defer store.Close()

	hub := web.NewHub(logger)
	watch := store.Watch()
	defer store.Unwatch(watch)
	go hub.Run(watch, ctx.Done())

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: web.NewHandler(store, hub, logger)}
	go func() {
		logger.Printf("http listening on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("http server failed: %v", err)
		}
	}()

	listener, err := net.Listen("tcp", cfg.TelnetAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.TelnetAddr, err)
	}
	logger.Printf("telnet listening on %s", cfg.TelnetAddr)

	go func() {
		<-ctx.Done()
		listener.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	sessCfg := session.Config{
		BoardWidth:   cfg.BoardWidth,
		BoardHeight:  cfg.BoardHeight,
		TickInterval: cfg.TickInterval,
		MaxNickname:  session.DefaultConfig().MaxNickname,
		TopEntries:   session.DefaultConfig().TopEntries,
	}

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go serveConn(ctx, conn, sessCfg, store, logger, router)
	}
}

// serveConn owns one telnet connection: negotiation banner, decode
// loop, session teardown.
func serveConn(ctx context.Context, conn net.Conn, cfg session.Config, store *leaderboard.Store, logger telemetry.Logger, events logging.Publisher) {
	var closeOnce sync.Once
	closeConn := func() {
		closeOnce.Do(func() { conn.Close() })
	}
	defer closeConn()

	// Shutdown closes the connection out from under the read loop so
	// the session does not outlive Run.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			closeConn()
		case <-watchDone:
		}
	}()

	sess := session.New(cfg, conn, render.NewTerminal(), store, logger, events, closeConn)
	logging.SessionConnected(ctx, events, sess.ID, conn.RemoteAddr().String())

	if _, err := conn.Write(telnet.Negotiate()); err != nil {
		sess.Close("negotiation write failed")
		return
	}
	sess.Start()

	dec := telnet.NewDecoder()
	buf := make([]byte, 512)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			decoded, replies := dec.Feed(buf[:n])
			if len(replies) > 0 {
				if _, werr := conn.Write(replies); werr != nil {
					break
				}
			}
			for _, ev := range decoded {
				sess.HandleEvent(ev)
			}
		}
		if err != nil {
			break
		}
	}

	sess.Close("connection closed")
}
