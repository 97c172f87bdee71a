// api/cmd/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/baechuer/forgot-password/internal/bootstrap"
	"github.com/baechuer/forgot-password/internal/logger"
)

// Each shutdown phase gets its own budget; a consumer stuck on a dead broker
// must not eat into the HTTP drain.
var (
	shutdownTimeout     = 15 * time.Second
	consumerStopTimeout = 15 * time.Second
)

// httpServer defines the minimal surface area Run() needs from an HTTP server.
type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
	Close() error
	Addr() string
}

// realServer adapts *http.Server to the httpServer interface.
type realServer struct{ *http.Server }

func (r realServer) Addr() string { return r.Server.Addr }

// appBuilder returns the server, the queue consumer (nil in direct delivery
// mode) and a cleanup function.
type appBuilder func() (httpServer, bootstrap.Runner, func(), error)

func Run(build appBuilder, sigCh <-chan os.Signal, lg zerolog.Logger) int {
	srv, consumer, cleanup, err := build()
	if err != nil {
		lg.Error().Err(err).Msg("bootstrap failed")
		return 1
	}
	defer cleanup()

	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	if consumer != nil {
		if err := consumer.Start(runCtx); err != nil {
			lg.Error().Err(err).Msg("consumer start failed")
			return 1
		}
		lg.Info().Msg("reset event consumer started")
	}

	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		lg.Info().Str("addr", srv.Addr()).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		select {
		case sig := <-sigCh:
			lg.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		case <-gctx.Done():
			// server crashed; still drain the consumer below
		}

		// HTTP first: in-flight requests may still publish reset events
		httpCtx, cancelHTTP := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelHTTP()
		if err := srv.Shutdown(httpCtx); err != nil {
			lg.Error().Err(err).Msg("graceful shutdown failed")
			_ = srv.Close()
		}

		if consumer != nil {
			stopCtx, cancelStop := context.WithTimeout(context.Background(), consumerStopTimeout)
			defer cancelStop()
			if err := consumer.Stop(stopCtx); err != nil {
				lg.Error().Err(err).Msg("consumer stop failed")
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		// exit non-zero so an orchestrator can restart it
		lg.Error().Err(err).Msg("server crashed")
		return 1
	}

	lg.Info().Msg("shutdown complete")
	return 0
}

func buildFromBootstrap() (httpServer, bootstrap.Runner, func(), error) {
	app, err := bootstrap.NewApp()
	if err != nil {
		return nil, nil, nil, err
	}
	return realServer{app.Server}, app.Consumer, app.Close, nil
}

func main() {
	logger.Init()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	code := Run(buildFromBootstrap, sigCh, zlog.Logger)
	os.Exit(code)
}
