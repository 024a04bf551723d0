package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	httpadapter "github.com/aretw0/tendril/pkg/adapters/http"
	"golang.org/x/sync/errgroup"
)

// Serve exposes st over HTTP on addr until ctx is cancelled, then drains
// in-flight requests for at most shutdownTimeout.
func Serve(ctx context.Context, st *Stack, addr string, shutdownTimeout time.Duration) error {
	handler := httpadapter.NewHandler(st.Engine,
		httpadapter.WithLogger(st.Logger),
		httpadapter.WithStreams(st.Streams),
		httpadapter.WithMetrics(st.Registry),
	)

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		st.Logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		st.Logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
