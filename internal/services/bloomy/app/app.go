// Package app composes the Bloomy managers, stores, and notification
// pipeline for one profile.
package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/bloomy/internal/platform/clock"
	"github.com/louisbranch/bloomy/internal/platform/i18n/catalog"
	"github.com/louisbranch/bloomy/internal/platform/localstore"
	"github.com/louisbranch/bloomy/internal/platform/localstore/redisstore"
	localsqlite "github.com/louisbranch/bloomy/internal/platform/localstore/sqlite"
	"github.com/louisbranch/bloomy/internal/platform/timeouts"
	"github.com/louisbranch/bloomy/internal/services/journal/emotion"
	"github.com/louisbranch/bloomy/internal/services/journal/mood"
	"github.com/louisbranch/bloomy/internal/services/notifications/delivery"
	"github.com/louisbranch/bloomy/internal/services/notifications/domain"
	"github.com/louisbranch/bloomy/internal/services/notifications/onboarding"
	"github.com/louisbranch/bloomy/internal/services/notifications/permission"
	"github.com/louisbranch/bloomy/internal/services/notifications/render"
	"github.com/louisbranch/bloomy/internal/services/notifications/scheduler"
	notificationsqlite "github.com/louisbranch/bloomy/internal/services/notifications/storage/sqlite"
	"github.com/louisbranch/bloomy/internal/services/social/account"
	"github.com/louisbranch/bloomy/internal/services/social/directory"
	"github.com/louisbranch/bloomy/internal/services/social/friends"
	socialsqlite "github.com/louisbranch/bloomy/internal/services/social/storage/sqlite"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// App holds every manager for one profile.
type App struct {
	Config Config
	Logger *zap.Logger
	Clock  clock.Clock

	Store     *localstore.Store
	Directory *directory.Directory
	Account   *account.Manager
	Friends   *friends.Manager
	Moods     *mood.Manager
	Emotions  *emotion.Manager

	Gate      *permission.Gate
	Renderer  *render.Renderer
	Inbox     *domain.Inbox
	Hub       *delivery.Hub
	Pipeline  *delivery.Pipeline
	Scheduler *scheduler.Scheduler
	Prompt    *onboarding.Prompt

	closers []func() error
}

// Option configures New.
type Option func(*options)

type options struct {
	clock   clock.Clock
	logger  *zap.Logger
	consent permission.Consent
	backend localstore.Backend
	cost    int
}

// WithClock injects the clock every manager and timer uses.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the root logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithConsent replaces the configured consent mechanism.
func WithConsent(consent permission.Consent) Option {
	return func(o *options) { o.consent = consent }
}

// WithBackend replaces the configured store backend.
func WithBackend(backend localstore.Backend) Option {
	return func(o *options) { o.backend = backend }
}

// WithBcryptCost lowers password hashing cost, for tests.
func WithBcryptCost(cost int) Option {
	return func(o *options) { o.cost = cost }
}

// New opens every store and builds the managers. Close releases them.
func New(ctx context.Context, cfg Config, opts ...Option) (*App, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	o := options{clock: clock.Real(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = clock.Real()
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	location, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: o.logger, Clock: o.clock}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	backend := o.backend
	if backend == nil {
		backend, err = a.openBackend(ctx)
		if err != nil {
			return nil, err
		}
	}
	codec, err := localstore.CodecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	a.Store = localstore.New(backend,
		localstore.WithCodec(codec),
		localstore.WithOrigin(cfg.Profile),
		localstore.WithLogger(o.logger.Named("localstore")),
	)
	probeCtx, cancel := context.WithTimeout(ctx, timeouts.StoreProbe)
	if !a.Store.Available(probeCtx) {
		o.logger.Warn("local store unavailable, state will not persist", zap.String("backend", cfg.Backend))
	}
	cancel()

	userStore, err := socialsqlite.Open(ctx, cfg.DirectoryPath)
	if err != nil {
		return nil, fmt.Errorf("open directory store: %w", err)
	}
	a.closers = append(a.closers, userStore.Close)
	dirOpts := []directory.Option{directory.WithClock(o.clock)}
	if o.cost > 0 {
		dirOpts = append(dirOpts, directory.WithBcryptCost(o.cost))
	}
	a.Directory = directory.New(userStore, dirOpts...)
	if cfg.SeedDemo {
		created, err := a.Directory.Seed(ctx)
		if err != nil {
			return nil, fmt.Errorf("seed directory: %w", err)
		}
		if created > 0 {
			o.logger.Info("demo accounts seeded", zap.Int("created", created))
		}
	}

	sessions, err := newSessions(cfg, o)
	if err != nil {
		return nil, err
	}
	a.Account = account.NewManager(ctx, a.Store, a.Directory, account.WithSessions(sessions))
	a.Friends = friends.NewManager(ctx, a.Store, a.Account, a.Directory, friends.WithClock(o.clock))
	a.Account.OnLogout(a.Friends.Reset)
	a.Account.OnSwitch(a.Friends.Reset)
	a.Moods = mood.NewManager(ctx, a.Store, mood.WithClock(o.clock), mood.WithLocation(location))
	a.Emotions = emotion.NewManager(ctx, a.Store, emotion.WithClock(o.clock), emotion.WithLocation(location))

	consent := o.consent
	if consent == nil {
		consent = consentFor(cfg)
	}
	a.Gate = permission.NewGate(ctx, consent,
		permission.WithStore(a.Store),
		permission.WithLogger(o.logger.Named("permission")),
	)
	a.Renderer = render.ForLocale(cfg.Locale, render.WithClock(o.clock))

	inboxStore, err := notificationsqlite.Open(ctx, cfg.InboxPath)
	if err != nil {
		return nil, fmt.Errorf("open inbox store: %w", err)
	}
	a.closers = append(a.closers, inboxStore.Close)
	a.Inbox = domain.NewInbox(inboxStore, o.clock, nil)

	a.Hub = delivery.NewHub(
		delivery.WithHubLogger(o.logger.Named("hub")),
		delivery.WithOriginCheck(originCheck(cfg.AllowedOrigins)),
	)
	a.closers = append(a.closers, func() error { a.Hub.Close(); return nil })
	a.Pipeline = delivery.NewPipeline(a.Gate,
		delivery.WithLogger(o.logger.Named("delivery")),
		delivery.WithSinks(
			delivery.LogSink{Logger: o.logger.Named("notification")},
			delivery.InboxSink{Inbox: a.Inbox, Profile: cfg.Profile},
			a.Hub,
		),
	)
	if strings.TrimSpace(cfg.NATS.URL) != "" {
		nc, err := delivery.ConnectNATS(cfg.NATS)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { return drainNATS(nc) })
		a.Pipeline.Add(delivery.NewNATSSink(nc, cfg.Profile))
	}

	var slots []scheduler.Slot
	if path := strings.TrimSpace(cfg.SlotsFile); path != "" {
		slots, err = scheduler.LoadSlotsFile(path)
		if err != nil {
			return nil, err
		}
	}
	a.Scheduler = scheduler.New(slots, a.Gate, a.Renderer, a.Pipeline,
		scheduler.WithClock(o.clock),
		scheduler.WithLocation(location),
		scheduler.WithLogger(o.logger.Named("scheduler")),
	)
	a.Prompt = onboarding.New(a.Gate, a.Store,
		onboarding.WithClock(o.clock),
		onboarding.WithLogger(o.logger.Named("onboarding")),
	)

	ok = true
	return a, nil
}

// Start arms reminders when consent is already granted, arranges for them
// to start once it is, and schedules the opt-in prompt. Configured
// granted/denied answers are applied at once instead of prompting.
func (a *App) Start(ctx context.Context) {
	a.Gate.OnGrant(func(context.Context) {
		a.startScheduler(ctx)
	})
	a.ApplyConsent(ctx)
	if a.Gate.Allowed() {
		a.startScheduler(ctx)
	}
	if a.Prompt.Start(ctx) {
		a.Logger.Debug("notification prompt armed")
	}
}

// ApplyConsent settles the gate when the configured consent mode is a
// fixed granted or denied answer.
func (a *App) ApplyConsent(ctx context.Context) {
	switch a.Config.Consent {
	case ConsentGranted, ConsentDenied:
		if _, err := a.Gate.Request(ctx); err != nil {
			a.Logger.Warn("apply configured consent", zap.Error(err))
		}
	}
}

func (a *App) startScheduler(ctx context.Context) {
	if err := a.Scheduler.Start(ctx); err != nil && !errors.Is(err, scheduler.ErrAlreadyStarted) {
		a.Logger.Warn("start reminders", zap.Error(err))
	}
}

// Close stops timers and releases stores in reverse order of opening.
func (a *App) Close() error {
	if a.Prompt != nil {
		a.Prompt.Stop()
	}
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Preview renders kind without displaying it.
func (a *App) Preview(kind domain.Kind, params render.Params) domain.Notification {
	return a.Renderer.Render(kind, params)
}

// Notify renders kind and sends it through the display pipeline. It
// reports whether the notification was shown.
func (a *App) Notify(ctx context.Context, kind domain.Kind, params render.Params) (domain.Notification, bool) {
	n := a.Renderer.Render(kind, params)
	return n, a.Pipeline.Display(ctx, n)
}

func (a *App) openBackend(ctx context.Context) (localstore.Backend, error) {
	cfg := a.Config
	switch cfg.Backend {
	case BackendMemory:
		return localstore.NewMemory(cfg.MemoryQuota), nil
	case BackendSQLite:
		store, err := localsqlite.Open(ctx, filepath.Join(cfg.DataDir, "localstore.db"))
		if err != nil {
			return nil, fmt.Errorf("open sqlite local store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case BackendRedis:
		store, client, err := redisstore.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			redisstore.WithPrefix(cfg.RedisPrefix))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return store, nil
	default:
		return localstore.NewFile(cfg.StoreDir())
	}
}

func newSessions(cfg Config, o options) (*account.Sessions, error) {
	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		secret = make([]byte, minSessionSecret)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		o.logger.Warn("BLOOMY_SESSION_SECRET not set, sessions end on restart")
	}
	return account.NewSessions(secret, cfg.SessionTTL, o.clock)
}

func consentFor(cfg Config) permission.Consent {
	switch cfg.Consent {
	case ConsentGranted:
		return permission.Static{Answer: permission.StateGranted}
	case ConsentDenied:
		return permission.Static{Answer: permission.StateDenied}
	case ConsentDismiss:
		return permission.Static{Answer: permission.StateDefault}
	case ConsentUnsupported:
		return permission.Static{Unsupported: true}
	default:
		return permission.Terminal{In: os.Stdin, Out: os.Stderr, Prompt: promptText(cfg.Locale)}
	}
}

func promptText(locale string) string {
	bundle := catalog.Default()
	tag := bundle.Match(locale).String()
	question, _ := bundle.Message(tag, "core.notification_prompt")
	hint, _ := bundle.Message(tag, "core.notification_prompt_hint")
	return strings.TrimSpace(question + " " + hint)
}

func drainNATS(nc *nats.Conn) error {
	if nc == nil {
		return nil
	}
	if err := nc.Drain(); err != nil {
		nc.Close()
		return fmt.Errorf("drain nats: %w", err)
	}
	deadline := time.Now().Add(timeouts.Shutdown)
	for !nc.IsClosed() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}
