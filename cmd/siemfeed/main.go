// siemfeed is the collector CLI: it tests vendor connectivity, runs
// interactive searches and advances scheduled event fetches.
//
// Usage:
//
//	siemfeed [-config file] test -profile NAME
//	siemfeed [-config file] search -profile NAME [-query Q] [-page N -page-size N | -limit N]
//	    [-start-time T -end-time T] [-from-date T] [-json] [-push]
//	siemfeed [-config file] fetch -profile NAME [-max-events N]
//
// Profiles, state storage and the event sink are declared in the
// configuration file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	siemfeed "github.com/tphakala/go-siemfeed"
	"github.com/tphakala/go-siemfeed/exabeam"
	"github.com/tphakala/go-siemfeed/identitynow"
	"github.com/tphakala/go-siemfeed/internal/config"
	"github.com/tphakala/go-siemfeed/sink"
	"github.com/tphakala/go-siemfeed/statestore"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("siemfeed", flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", "siemfeed.yaml", "path to the configuration file")
	global.Usage = func() {
		fmt.Fprintln(stderr, "usage: siemfeed [-config file] <test|search|fetch> [flags]")
		global.PrintDefaults()
	}

	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		global.Usage()
		return 2
	}
	command := global.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "loading config: %v\n", err)
		return 1
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "initializing logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &app{
		cfg:    cfg,
		logger: logger,
		stdout: stdout,
	}

	logger.Debug("command dispatch", zap.String("command", command))

	var cmdErr error
	switch command {
	case "test":
		cmdErr = app.runTest(ctx, global.Args()[1:])
	case "search":
		cmdErr = app.runSearch(ctx, global.Args()[1:])
	case "fetch":
		cmdErr = app.runFetch(ctx, global.Args()[1:])
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", command)
		global.Usage()
		return 2
	}

	if cmdErr != nil {
		// One boundary for every failure, naming the command.
		fmt.Fprintf(stderr, "Failed to execute %s command.\nError:\n%v\n", command, cmdErr)
		return 1
	}
	return 0
}

// buildLogger parses the configured level and builds a stderr logger:
// JSON in production form, console form when debugging.
func buildLogger(logLevel string) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(logLevel))); err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	if level == zapcore.DebugLevel {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// app carries the wiring shared by the subcommands.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	stdout io.Writer
}

// profile resolves the -profile flag. With exactly one configured profile
// the flag may be omitted.
func (a *app) profile(name string) (string, config.Profile, error) {
	if name == "" {
		if len(a.cfg.Profiles) == 1 {
			for n, p := range a.cfg.Profiles {
				return n, p, nil
			}
		}
		return "", config.Profile{}, fmt.Errorf("-profile is required when multiple profiles are configured")
	}
	p, ok := a.cfg.Profiles[name]
	if !ok {
		return "", config.Profile{}, fmt.Errorf("unknown profile %q", name)
	}
	return name, p, nil
}

// stateStore builds the configured state backend.
func (a *app) stateStore(ctx context.Context) (siemfeed.StateStore, error) {
	switch a.cfg.State.Backend {
	case config.StateBackendFile:
		return statestore.NewFile(a.cfg.State.Dir)
	case config.StateBackendPostgres:
		db, err := statestore.OpenPostgres(a.cfg.State.DSN)
		if err != nil {
			return nil, err
		}
		store := statestore.NewPostgres(db, a.cfg.State.Table)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", a.cfg.State.Backend)
	}
}

// eventSink builds the configured sink. The returned close function is a
// no-op for sinks without connections.
func (a *app) eventSink() (siemfeed.Sink, func(), error) {
	switch a.cfg.Sink.Backend {
	case config.SinkBackendStdout:
		return sink.NewWriter(a.stdout), func() {}, nil
	case config.SinkBackendHTTP:
		opts := []sink.HTTPOption{sink.WithHTTPLogger(a.logger)}
		if a.cfg.Sink.Gzip {
			opts = append(opts, sink.WithGzip())
		}
		if a.cfg.Sink.BatchSize > 0 {
			opts = append(opts, sink.WithBatchSize(a.cfg.Sink.BatchSize))
		}
		return sink.NewHTTP(a.cfg.Sink.URL, opts...), func() {}, nil
	case config.SinkBackendAMQP:
		s, err := sink.NewAMQP(sink.AMQPConfig{
			URL:        a.cfg.Sink.AMQPURL,
			Exchange:   a.cfg.Sink.Exchange,
			RoutingKey: a.cfg.Sink.RoutingKey,
			BatchSize:  a.cfg.Sink.BatchSize,
		}, a.logger)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				a.logger.Warn("closing sink", zap.Error(err))
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown sink backend %q", a.cfg.Sink.Backend)
	}
}

func (a *app) newExabeamClient(p config.Profile) (*exabeam.Client, error) {
	opts := []exabeam.ClientOption{
		exabeam.WithBaseURL(p.BaseURL),
		exabeam.WithCredentials(p.Username, p.Password),
		exabeam.WithLogger(a.logger),
	}
	if p.ClusterName != "" {
		opts = append(opts, exabeam.WithClusterName(p.ClusterName))
	}
	if p.Insecure {
		opts = append(opts, exabeam.WithInsecure(true))
	}
	if p.ProxyURL != "" {
		opts = append(opts, exabeam.WithProxyURL(p.ProxyURL))
	}
	if p.RequestsPerSecond > 0 {
		opts = append(opts, exabeam.WithRateLimit(p.RequestsPerSecond))
	}
	return exabeam.NewClient(opts...)
}

func (a *app) newIdentityNowClient(name string, p config.Profile, store siemfeed.StateStore) (*identitynow.Client, error) {
	opts := []identitynow.ClientOption{
		identitynow.WithBaseURL(p.BaseURL),
		identitynow.WithClientCredentials(p.ClientID, p.ClientSecret),
		identitynow.WithStateStore(store),
		identitynow.WithProfile(name),
		identitynow.WithLogger(a.logger),
	}
	if p.Insecure {
		opts = append(opts, identitynow.WithInsecure(true))
	}
	if p.ProxyURL != "" {
		opts = append(opts, identitynow.WithProxyURL(p.ProxyURL))
	}
	if p.RequestsPerSecond > 0 {
		opts = append(opts, identitynow.WithRateLimit(p.RequestsPerSecond))
	}
	return identitynow.NewClient(opts...)
}

func (a *app) runTest(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("test", flag.ContinueOnError)
	profileFlag := flags.String("profile", "", "connection profile to test")
	if err := flags.Parse(args); err != nil {
		return err
	}

	name, profile, err := a.profile(*profileFlag)
	if err != nil {
		return err
	}

	switch profile.Type {
	case config.TypeExabeamDataLake:
		client, err := a.newExabeamClient(profile)
		if err != nil {
			return err
		}
		err = client.CheckAuth(ctx)
		return a.reportTest(err)
	case config.TypeIdentityNow:
		store, err := a.stateStore(ctx)
		if err != nil {
			return err
		}
		client, err := a.newIdentityNowClient(name, profile, store)
		if err != nil {
			return err
		}
		err = client.TestConnection(ctx)
		return a.reportTest(err)
	default:
		return fmt.Errorf("unknown profile type %q", profile.Type)
	}
}

// reportTest prints ok on success and a distinct diagnosis when the vendor
// denied our credentials.
func (a *app) reportTest(err error) error {
	if err == nil {
		fmt.Fprintln(a.stdout, "ok")
		return nil
	}
	var authErr *siemfeed.AuthenticationError
	if errors.As(err, &authErr) {
		fmt.Fprintln(a.stdout, "Authorization Error: make sure API Key is correctly set")
		return err
	}
	return err
}

func (a *app) runSearch(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("search", flag.ContinueOnError)
	profileFlag := flags.String("profile", "", "connection profile to search")
	query := flags.String("query", "", "free-text query (defaults to match-all)")
	page := flags.Int("page", 0, "one-based result page, requires -page-size")
	pageSize := flags.Int("page-size", 0, "results per page, requires -page")
	limit := flags.Int("limit", 0, "cap on results, exclusive with -page/-page-size")
	startTime := flags.String("start-time", "", "start of the calendar range (Data Lake)")
	endTime := flags.String("end-time", "", "end of the calendar range (Data Lake)")
	fromDate := flags.String("from-date", "", "lower time bound (IdentityNow)")
	jsonOut := flags.Bool("json", false, "print raw events as NDJSON instead of a table")
	push := flags.Bool("push", false, "annotate and push results to the sink (IdentityNow)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	// Distinguish flags that were set from flags left at their defaults;
	// the page window contract cares about presence, not just values.
	var pageArg, pageSizeArg, limitArg *int
	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "page":
			pageArg = page
		case "page-size":
			pageSizeArg = pageSize
		case "limit":
			limitArg = limit
		}
	})

	name, profile, err := a.profile(*profileFlag)
	if err != nil {
		return err
	}

	switch profile.Type {
	case config.TypeExabeamDataLake:
		if *push {
			return &siemfeed.ValidationError{Message: "push is not supported for exabeam-datalake profiles"}
		}
		client, err := a.newExabeamClient(profile)
		if err != nil {
			return err
		}
		result, err := client.Search(ctx, exabeam.SearchArgs{
			Query:     *query,
			StartTime: *startTime,
			EndTime:   *endTime,
			Page:      pageArg,
			PageSize:  pageSizeArg,
			Limit:     limitArg,
		})
		if err != nil {
			return err
		}
		if *jsonOut {
			return sink.NewWriter(a.stdout).Ingest(ctx, result.Events, "exabeam", "datalake")
		}
		fmt.Fprintln(a.stdout, result.Table)
		return nil

	case config.TypeIdentityNow:
		if pageArg != nil || pageSizeArg != nil {
			return &siemfeed.ValidationError{Message: "page arguments are not supported for identitynow profiles"}
		}
		store, err := a.stateStore(ctx)
		if err != nil {
			return err
		}
		client, err := a.newIdentityNowClient(name, profile, store)
		if err != nil {
			return err
		}

		searchLimit := 50
		if limitArg != nil {
			searchLimit = *limitArg
		}

		result, err := client.GetEvents(ctx, searchLimit, *fromDate)
		if err != nil {
			return err
		}

		if *jsonOut {
			if err := sink.NewWriter(a.stdout).Ingest(ctx, result.Events, identitynow.Vendor, identitynow.Product); err != nil {
				return err
			}
		} else {
			fmt.Fprintln(a.stdout, result.Table)
		}

		if *push {
			events := result.Events
			siemfeed.AnnotateEvents(events)
			eventSink, closeSink, err := a.eventSink()
			if err != nil {
				return err
			}
			defer closeSink()
			if err := eventSink.Ingest(ctx, events, identitynow.Vendor, identitynow.Product); err != nil {
				return err
			}
			a.logger.Info("pushed events", zap.Int("count", len(events)))
		}
		return nil

	default:
		return fmt.Errorf("unknown profile type %q", profile.Type)
	}
}

func (a *app) runFetch(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("fetch", flag.ContinueOnError)
	profileFlag := flags.String("profile", "", "connection profile to fetch")
	maxEvents := flags.Int("max-events", 0, "budget for this fetch (defaults to the profile setting)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	name, profile, err := a.profile(*profileFlag)
	if err != nil {
		return err
	}

	if profile.Type != config.TypeIdentityNow {
		return &siemfeed.ValidationError{
			Message: fmt.Sprintf("fetch is not supported for %s profiles", profile.Type),
		}
	}

	store, err := a.stateStore(ctx)
	if err != nil {
		return err
	}
	client, err := a.newIdentityNowClient(name, profile, store)
	if err != nil {
		return err
	}

	cursor, err := siemfeed.LoadCursor(ctx, store, name)
	if err != nil {
		return err
	}

	budget := *maxEvents
	if budget <= 0 {
		budget = profile.MaxEventsPerFetch
	}

	next, events, err := client.Fetch(ctx, cursor, budget)
	if err != nil {
		return err
	}

	siemfeed.AnnotateEvents(events)

	eventSink, closeSink, err := a.eventSink()
	if err != nil {
		return err
	}
	defer closeSink()

	if err := eventSink.Ingest(ctx, events, identitynow.Vendor, identitynow.Product); err != nil {
		return err
	}

	// The watermark moves only after the events are safely delivered.
	if err := siemfeed.SaveCursor(ctx, store, name, next); err != nil {
		return err
	}

	a.logger.Info("fetched events",
		zap.String("profile", name),
		zap.Int("count", len(events)),
		zap.String("prev_id", next.PrevID),
		zap.String("prev_date", next.PrevDate))
	return nil
}
