package collector

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
)

// SetupSignalHandler returns a context cancelled on SIGINT or SIGTERM, which
// interrupts any rate limit, throttle or page wait in progress. A second
// signal exits immediately.
func SetupSignalHandler(parent context.Context, logger zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	done := make(chan struct{})
	go watchSignals(sigCh, done, cancel, os.Exit, logger)

	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			signal.Stop(sigCh)
			close(done)
			cancel()
		})
	}
}

// watchSignals cancels on the first signal and calls exit on the second. It
// returns once done is closed.
func watchSignals(sigCh <-chan os.Signal, done <-chan struct{}, cancel context.CancelFunc, exit func(int), logger zerolog.Logger) {
	select {
	case sig := <-sigCh:
		logger.Warn().Stringer("signal", sig).Msg("Received signal, stopping after the current request")
		cancel()
	case <-done:
		return
	}

	select {
	case sig := <-sigCh:
		logger.Error().Stringer("signal", sig).Msg("Received second signal, forcing exit")
		exit(1)
	case <-done:
	}
}
