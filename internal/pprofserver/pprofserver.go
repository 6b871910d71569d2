package pprofserver

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/myrjola/survey/internal/errors"
)

// Handle registers the pprof endpoints on mux.
func Handle(mux *http.ServeMux) {
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
}

// Launch serves pprof on addr until ctx is done. Keep addr on a loopback interface so that it's not open to the world.
func Launch(ctx context.Context, addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	Handle(mux)
	srv := &http.Server{ //nolint:exhaustruct // defaults are fine for a debug listener.
		Handler:           mux,
		ReadHeaderTimeout: time.Second,
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "pprof server not started",
			errors.SlogError(errors.Wrap(err, "listen", slog.String("pprof_addr", addr))))
		return
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "starting pprof server", slog.String("pprof_addr", listener.Addr().String()))
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	go func() {
		if serveErr := srv.Serve(listener); !errors.Is(serveErr, http.ErrServerClosed) {
			logger.LogAttrs(ctx, slog.LevelError, "pprof server stopped", errors.SlogError(serveErr))
		}
	}()
}
