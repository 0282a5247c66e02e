package workers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"ibetwstbridge/workers/handlers"
)

func NewRouter(api *handlers.API) http.Handler {
	defaultMetrics()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Options("/*", CORSHeaders)

	r.Get("/state", handlers.State)
	r.Get("/healthcheck", api.HealthCheck)

	r.Get("/stats/failed", api.GetFailedTransactions)
	r.Get("/stats/failed/ibet", api.GetFailedBridgeTransactions)

	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Serve runs the status server until ctx ends, then shuts it down.
func Serve(ctx context.Context, addr string, handler http.Handler, log logrus.FieldLogger) error {
	log.Infof("Starting HTTP service on %s", addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("HTTP service shutdown normal")
	return nil
}

func CORSHeaders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Origin, X-Requested-With")
}
