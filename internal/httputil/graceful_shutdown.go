package httputil

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

// SetupGracefulShutdown stops server on SIGINT/SIGTERM or when ctx is done,
// giving in-flight requests up to timeout to finish. The hooks run in order
// once the server has drained, e.g. to close the broker connection. The
// returned channel is closed when everything is done.
func SetupGracefulShutdown(ctx context.Context, server *http.Server, timeout time.Duration, hooks ...func()) <-chan struct{} {
	shutdownFinished := make(chan struct{})

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer close(shutdownFinished)
		defer signal.Stop(interrupt)

		select {
		case sig := <-interrupt:
			log.Info().Str("signal", sig.String()).Msg("Shutting down")
		case <-ctx.Done():
			log.Info().Msg("Shutting down")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error occurred during server shutdown")
		}

		for _, hook := range hooks {
			hook()
		}
	}()

	return shutdownFinished
}
