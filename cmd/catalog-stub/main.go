// Command catalog-stub serves a local product catalog with the same search and
// item detail endpoints the storefront consumes, for development and demos.
//
//	catalog-stub -addr :8081 internal/catalogstub/testdata/catalog.json products.jsonl.gz
//
// Point the storefront at it with
// STOREFRONT_CATALOG_SEARCH_URL=http://localhost:8081/search and
// STOREFRONT_CATALOG_ITEMS_URL=http://localhost:8081/items.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/catalogstub"
)

func main() {
	var (
		addr    string
		latency time.Duration
	)
	flag.StringVar(&addr, "addr", "127.0.0.1:8081", "listen address")
	flag.DurationVar(&latency, "latency", 0, "artificial delay added to every response")
	flag.Parse()

	if flag.NArg() == 0 {
		slog.Error("at least one catalog file is required")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, addr, latency, flag.Args()); err != nil {
		slog.Error("catalog stub failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, addr string, latency time.Duration, files []string) error {
	start := time.Now()
	c, err := catalogstub.Load(ctx, files...)
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}
	slog.Info("catalog loaded",
		slog.Int("files", len(files)),
		slog.Int("items", c.Len()),
		slog.Duration("took", time.Since(start)),
	)

	h := c.Handler()
	if latency > 0 {
		next := h
		h = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(latency):
			case <-r.Context().Done():
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	slog.Info("serving catalog", slog.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serve")
	}
	return nil
}
