package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	alwayshsts "github.com/always-cache/always-hsts"
	"github.com/always-cache/always-hsts/preload"
	"github.com/always-cache/always-hsts/rfc6797"
	"github.com/always-cache/always-hsts/state"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	// CLI flags
	configFilenameFlag string
	portFlag           int
	dbFilenameFlag     string
	preloadFlag        string
	noPreloadFlag      bool
	checkFlag          string
	verbosityTraceFlag bool
	logFilenameFlag    string

	// this is set by goreleaser
	version string
)

func init() {
	flag.StringVar(&configFilenameFlag, "config", "", "Path to config file")
	flag.IntVar(&portFlag, "port", 8080, "Port for the admin API to listen on")
	flag.StringVar(&dbFilenameFlag, "db", "hsts.db", "State DB file name (use 'memory' for in-memory db)")
	flag.StringVar(&preloadFlag, "preload", "", "Preload list file (reloaded on change)")
	flag.BoolVar(&noPreloadFlag, "no-preload", false, "Do not use the preload list")
	flag.StringVar(&checkFlag, "check", "", "Parse the given header value, print the result and exit")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")
	flag.StringVar(&logFilenameFlag, "log-file", "", "Log file to use (in addition to stdout)")

	if version == "" {
		version = "DEV"
	}
}

func main() {
	flag.Parse()

	if checkFlag != "" {
		if !checkHeader(os.Stdout, checkFlag) {
			os.Exit(1)
		}
		return
	}

	config, err := getConfig(configFilenameFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	applyFlags(&config)

	// set log level
	logLevel := zerolog.DebugLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}

	// set up log output to stdout
	// also output to logfile if specified
	logOutputs := make([]io.Writer, 0)
	logOutputs = append(logOutputs, zerolog.ConsoleWriter{Out: os.Stdout})
	if config.LogFile != "" {
		if logFileOutput, err := os.OpenFile(config.LogFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644); err != nil {
			log.Fatal().Err(err).Msg("Cannot open log file")
		} else {
			logOutputs = append(logOutputs, logFileOutput)
		}
	}
	multiWriter := zerolog.MultiLevelWriter(logOutputs...)
	log.Logger = log.Level(logLevel).Output(multiWriter).
		With().Str("version", version).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, config)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("Exiting")
		os.Exit(1)
	}
	log.Info().Msg("Stopped")
}

// run serves the admin API and runs the background loops until ctx is done
// or one of them fails. The state db is closed before it returns.
func run(ctx context.Context, config Config) error {
	// set up sqlite memory provider
	dbFilename := config.DB
	if dbFilename == "memory" {
		dbFilename = ""
	}
	store, err := state.NewSQLiteStore(dbFilename)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("Could not close state db")
		}
	}()

	var list *preload.List
	if config.Preload != "" {
		if list, err = preload.Load(config.Preload); err != nil {
			return fmt.Errorf("Could not load preload list: %w", err)
		}
		log.Info().Int("hosts", list.Len()).Time("expires", list.Expires).Msg("Loaded preload list")
	}

	sss := alwayshsts.New(alwayshsts.Config{
		Store:              store,
		Preload:            list,
		DisablePreloadList: config.DisablePreloadList,
		TimeOffset:         config.PreloadTimeOffset,
		Logger:             &log.Logger,
		Metrics:            alwayshsts.NewMetrics(),
		SweepInterval:      config.SweepInterval,
	})

	g, ctx := errgroup.WithContext(ctx)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Port),
		Handler:           sss.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		log.Info().Msgf("Admin API listening on port %v", config.Port)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return sss.Run(ctx)
	})
	if config.Preload != "" {
		g.Go(func() error {
			return preload.Watch(ctx, config.Preload, sss.SetPreloadList, log.Logger)
		})
	}

	return g.Wait()
}

// applyFlags overrides the config with the flags given on the command line.
func applyFlags(config *Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			config.Port = portFlag
		case "db":
			config.DB = dbFilenameFlag
		case "preload":
			config.Preload = preloadFlag
		case "no-preload":
			config.DisablePreloadList = noPreloadFlag
		case "log-file":
			config.LogFile = logFilenameFlag
		}
	})
}

// checkHeader prints the parsed policy, or why the header is malformed.
// It reports whether the header is valid.
func checkHeader(w io.Writer, header string) bool {
	policy, err := rfc6797.ParseHeader(header)
	if err != nil {
		fmt.Fprintln(w, err)
		return false
	}
	fmt.Fprintln(w, policy.String())
	if len(policy.Unrecognized) > 0 {
		fmt.Fprintf(w, "ignored directives: %s\n", strings.Join(policy.Unrecognized, ", "))
	}
	return true
}
