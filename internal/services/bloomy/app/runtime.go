package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"

	platformgrpc "github.com/louisbranch/bloomy/internal/platform/grpc"
	"github.com/louisbranch/bloomy/internal/platform/timeouts"
	httpapi "github.com/louisbranch/bloomy/internal/services/bloomy/api/http"
	"go.uber.org/zap"
)

// Health components reported by the gRPC health service.
const (
	HealthStore     = "bloomy.store"
	HealthReminders = "bloomy.reminders"
)

// Handler builds the JSON API over a.
func (a *App) Handler() http.Handler {
	return httpapi.NewHandler(httpapi.Deps{
		Account:   a.Account,
		Friends:   a.Friends,
		Moods:     a.Moods,
		Emotions:  a.Emotions,
		Gate:      a.Gate,
		Scheduler: a.Scheduler,
		Inbox:     a.Inbox,
		Notifier:  a,
		Stream:    a.Hub,
		Profile:   a.Config.Profile,
		Logger:    a.Logger.Named("http"),
	})
}

// Run serves the API and the health endpoint until ctx ends, then shuts
// both down and releases the app.
func Run(ctx context.Context, cfg Config, opts ...Option) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := New(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			a.Logger.Warn("close app", zap.Error(closeErr))
		}
	}()
	a.Start(ctx)

	apiListener, err := net.Listen("tcp", a.Config.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.Config.HTTPAddr, err)
	}
	healthListener, err := net.Listen("tcp", a.Config.HealthAddr)
	if err != nil {
		_ = apiListener.Close()
		return fmt.Errorf("listen on %s: %w", a.Config.HealthAddr, err)
	}

	health := platformgrpc.NewHealthServer(a.Logger.Named("health"))
	health.SetServing("", true)
	health.SetServing(HealthStore, a.Store.Available(ctx))
	health.SetServing(HealthReminders, a.Scheduler.Running())
	a.Gate.OnGrant(func(context.Context) {
		health.SetServing(HealthReminders, true)
	})

	server := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	serveCtx, stop := context.WithCancel(ctx)
	defer stop()
	errs := make(chan error, 2)
	go func() {
		errs <- health.Serve(serveCtx, healthListener)
	}()
	go func() {
		a.Logger.Info("api listening", zap.String("addr", apiListener.Addr().String()))
		if err := server.Serve(apiListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("serve api: %w", err)
			return
		}
		errs <- nil
	}()

	var runErr error
	received := 0
	select {
	case <-ctx.Done():
	case runErr = <-errs:
		received++
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Shutdown)
	defer cancel()
	// Websocket connections are hijacked and ignored by Shutdown.
	a.Hub.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.Logger.Warn("shutdown api", zap.Error(err))
	}
	for ; received < cap(errs); received++ {
		if err := <-errs; err != nil && runErr == nil {
			runErr = err
		}
	}
	return runErr
}

// originCheck allows websocket upgrades from the listed origins. With no
// list, only requests without an Origin header or from the same host pass.
func originCheck(allowed []string) func(*http.Request) bool {
	normalized := make([]string, 0, len(allowed))
	for _, origin := range allowed {
		if origin = strings.TrimRight(strings.TrimSpace(origin), "/"); origin != "" {
			normalized = append(normalized, strings.ToLower(origin))
		}
	}
	return func(r *http.Request) bool {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" {
			return true
		}
		if slices.Contains(normalized, "*") || slices.Contains(normalized, strings.ToLower(origin)) {
			return true
		}
		parsed, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return len(normalized) == 0 && strings.EqualFold(parsed.Host, r.Host)
	}
}
