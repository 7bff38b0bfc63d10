package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/walletvet/walletvet/internal/metrics"
	veterr "github.com/walletvet/walletvet/pkg/errors"
)

const metricsShutdownTimeout = 2 * time.Second

// serveMetrics exposes the metrics registry on addr until the returned stop
// function is called.
func serveMetrics(addr string) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, veterr.WithDetails(
			veterr.WithCause(veterr.ErrConfigInvalid, err),
			map[string]string{"metrics.listen": addr},
		)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server: %v", err)
		}
	}()
	logger.Debug("serving metrics on http://%s/metrics", ln.Addr())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
