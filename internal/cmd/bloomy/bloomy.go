// Package bloomy builds the bloomy command tree.
package bloomy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	entrypoint "github.com/louisbranch/bloomy/internal/platform/cmd"
	"github.com/louisbranch/bloomy/internal/platform/logging"
	"github.com/louisbranch/bloomy/internal/services/bloomy/app"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// Streams are the command's standard streams and environment.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
	// Env replaces the process environment for BLOOMY_ settings when set.
	Env map[string]string
}

type flagOverrides struct {
	profile  string
	dataDir  string
	backend  string
	consent  string
	locale   string
	timezone string
	logLevel string
	output   string
}

type runtime struct {
	streams Streams
	appOpts []app.Option
	flags   flagOverrides

	cfg    app.Config
	logger *zap.Logger
}

// NewRootCommand builds the bloomy CLI. appOpts are passed to every app the
// commands open.
func NewRootCommand(streams Streams, appOpts ...app.Option) *cobra.Command {
	if streams.In == nil {
		streams.In = os.Stdin
	}
	if streams.Out == nil {
		streams.Out = os.Stdout
	}
	if streams.Err == nil {
		streams.Err = os.Stderr
	}
	rt := &runtime{streams: streams, appOpts: appOpts}

	root := &cobra.Command{
		Use:           "bloomy",
		Short:         "Bloomy wellness journal, friends and reminders",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.load(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if rt.logger != nil {
				_ = rt.logger.Sync()
			}
		},
	}
	root.SetIn(streams.In)
	root.SetOut(streams.Out)
	root.SetErr(streams.Err)

	flags := root.PersistentFlags()
	flags.StringVar(&rt.flags.profile, "profile", "", "profile whose data to use")
	flags.StringVar(&rt.flags.dataDir, "data-dir", "", "directory holding the profile stores")
	flags.StringVar(&rt.flags.backend, "backend", "", "store backend (memory, file, sqlite, redis)")
	flags.StringVar(&rt.flags.consent, "consent", "", "notification consent (terminal, granted, denied, default, unsupported)")
	flags.StringVar(&rt.flags.locale, "locale", "", "locale for notification text")
	flags.StringVar(&rt.flags.timezone, "timezone", "", "IANA zone that decides calendar days")
	flags.StringVar(&rt.flags.logLevel, "log-level", "", "log level")
	flags.StringVarP(&rt.flags.output, "output", "o", OutputText, "output format (text, json)")

	root.AddCommand(
		newServeCommand(rt),
		newHealthCommand(rt),
		newSeedCommand(rt),
		newSignupCommand(rt),
		newLoginCommand(rt),
		newLogoutCommand(rt),
		newWhoamiCommand(rt),
		newMoodCommand(rt),
		newEmotionCommand(rt),
		newFriendsCommand(rt),
		newNotifyCommand(rt),
	)
	return root
}

// Execute runs the command tree with args and returns its error.
func Execute(ctx context.Context, streams Streams, args []string, appOpts ...app.Option) error {
	root := NewRootCommand(streams, appOpts...)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// load reads env configuration, applies flags over it, and builds the
// logger.
func (rt *runtime) load(cmd *cobra.Command) error {
	var cfg app.Config
	if err := entrypoint.ParseConfigFrom(&cfg, rt.streams.Env); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	flags := cmd.Flags()
	override := func(name string, target *string, value string) {
		if flags.Changed(name) {
			*target = value
		}
	}
	override("profile", &cfg.Profile, rt.flags.profile)
	override("data-dir", &cfg.DataDir, rt.flags.dataDir)
	override("backend", &cfg.Backend, rt.flags.backend)
	override("consent", &cfg.Consent, rt.flags.consent)
	override("locale", &cfg.Locale, rt.flags.locale)
	override("timezone", &cfg.Timezone, rt.flags.timezone)
	override("log-level", &cfg.Log.Level, rt.flags.logLevel)
	if err := cfg.Normalize(); err != nil {
		return err
	}
	switch rt.flags.output {
	case OutputText, OutputJSON:
	default:
		return fmt.Errorf("unknown output format %q", rt.flags.output)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	rt.cfg = cfg
	rt.logger = logger
	return nil
}

func (rt *runtime) options() []app.Option {
	return append([]app.Option{app.WithLogger(rt.logger)}, rt.appOpts...)
}

// withApp opens the app for one command and settles configured consent.
// Reminders and the opt-in prompt only run under serve.
func (rt *runtime) withApp(cmd *cobra.Command, fn func(context.Context, *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, rt.cfg, rt.options()...)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			rt.logger.Warn("close app", zap.Error(closeErr))
		}
	}()
	a.ApplyConsent(ctx)
	return fn(ctx, a)
}

// emit writes v as JSON, or calls text when the output format is text.
func (rt *runtime) emit(v any, text func(w io.Writer)) error {
	if rt.flags.output == OutputJSON {
		encoder := json.NewEncoder(rt.streams.Out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	}
	tw := tabwriter.NewWriter(rt.streams.Out, 0, 4, 2, ' ', 0)
	text(tw)
	return tw.Flush()
}

// location is the configured calendar zone, or Local when it cannot load.
func (rt *runtime) location() *time.Location {
	loc, err := rt.cfg.Location()
	if err != nil {
		return time.Local
	}
	return loc
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
