package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/umputun/radar/pkg/config"
	"github.com/umputun/radar/pkg/content"
	"github.com/umputun/radar/pkg/feed"
	"github.com/umputun/radar/pkg/notify"
	"github.com/umputun/radar/pkg/policy"
	"github.com/umputun/radar/pkg/proc"
	"github.com/umputun/radar/pkg/state"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"c" long:"config" env:"RADAR_CONFIG" default:"sources.yml" description:"sources config file"`
	State  string `short:"s" long:"state" env:"RADAR_STATE" default:"state.json" description:"dedup state file"`
	Out    string `short:"o" long:"out" env:"RADAR_OUT" default:"out/daily" description:"daily digest output directory"`
	Date   string `long:"date" description:"run date YYYY-MM-DD (default: UTC today)"`

	Telegram struct {
		Token  string `long:"token" env:"BOT_TOKEN" description:"telegram bot token"`
		ChatID string `long:"chat" env:"CHAT_ID" description:"telegram chat id"`
	} `group:"telegram" namespace:"telegram" env-namespace:"TELEGRAM"`
	Send bool `long:"send" env:"SEND_TELEGRAM" description:"push telegram digest"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	var secrets []string
	if opts.Telegram.Token != "" {
		secrets = append(secrets, opts.Telegram.Token)
	}
	setupLog(opts.Debug, secrets...)

	log.Printf("[INFO] starting radar version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	if err := run(ctx, opts); err != nil {
		log.Printf("[ERROR] run failed: %v", err)
		if errors.Is(err, errConfig) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// errConfig marks fatal configuration failures for the distinct exit code
var errConfig = errors.New("config error")

// run executes a single scan pass with the given options
func run(ctx context.Context, opts Opts) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return fmt.Errorf("%w: failed to load config %s: %w", errConfig, opts.Config, err)
	}

	st := state.Load(opts.State)
	log.Printf("[INFO] loaded state from %s, %d seen entries", opts.State, st.SeenCount())

	timeout := cfg.Global.Request.Timeout
	userAgent := cfg.Global.Request.UserAgent

	engine := policy.NewEngine(content.NewHTTPExtractor(timeout, userAgent), policy.Params{
		Mode:           cfg.Global.Mode,
		WatchThreshold: cfg.Global.Thresholds.Watch,
		RedThreshold:   cfg.Global.Thresholds.Red,
		FullTextScope:  cfg.Global.FullTextScope,
	})

	p := proc.New(proc.Params{
		Config:    cfg,
		Fetcher:   feed.NewHTTPFetcher(timeout, userAgent),
		Evaluator: engine,
		Notifier:  notify.NewTelegram(opts.Telegram.Token, opts.Telegram.ChatID, timeout),
		Store:     st,
		StatePath: opts.State,
		OutDir:    opts.Out,
		Notify:    opts.Send,
	})

	res, err := p.Run(ctx, opts.Date)
	if err != nil {
		return fmt.Errorf("run for %s: %w", res.Date, err)
	}

	log.Printf("[INFO] done: %d new items -> %s", res.NewItems, res.OutputFile)
	return nil
}

func setupLog(dbg bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))
	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
