package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"steinbockcal/internal/config"
	"steinbockcal/internal/feed"
	"steinbockcal/internal/fetch"
	appLog "steinbockcal/internal/log"
	"steinbockcal/internal/monitor"
	"steinbockcal/internal/table"
	"steinbockcal/internal/web"
)

var version = "0.1.0-dev"

type flagConfig struct {
	configPath string
	listen     string
	logLevel   string
	once       bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI flags override the config file.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.logLevel != "" {
		conf.Log.Level = flags.logLevel
	}

	closeLog := setupLogging(conf.Log)
	defer closeLog()

	appLog.Info("steinbockcal starting", "version", version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"source", fetch.RedactURL(conf.SourceURL),
		"event_style", conf.EventStyle,
		"fetch_mode", conf.Fetch.Mode,
		"fetch_timeout", time.Duration(conf.Fetch.Timeout),
		"check_cron", conf.CheckCron,
		"once", flags.once,
	)

	svc, err := feed.New(feed.Options{
		SourceURL:    conf.SourceURL,
		Fetcher:      newFetcher(conf.Fetch),
		FetchTimeout: time.Duration(conf.Fetch.Timeout),
		Extractor:    table.HTMLExtractor{},
		Style:        conf.EventStyle,
		Logger:       appLog.Default(),
	})
	if err != nil {
		appLog.Error("failed to create feed service", err)
		os.Exit(1)
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if flags.once {
		if err := runOnce(ctx, svc, os.Stdout); err != nil {
			appLog.Error("feed build failed", err)
			os.Exit(1)
		}
		return
	}

	var serverOpts []web.Option
	if conf.CheckCron != "" {
		checker := monitor.New(svc, appLog.Default(), 2*time.Duration(conf.Fetch.Timeout))
		if err := checker.Start(ctx, conf.CheckCron); err != nil {
			appLog.Error("failed to schedule feed check", err)
			os.Exit(1)
		}
		serverOpts = append(serverOpts, web.WithHealth(checker))
	}

	if err := web.StartServer(ctx, conf.Listen, svc, serverOpts...); err != nil {
		appLog.Error("http server failed", err)
		os.Exit(1)
	}
	appLog.Info("steinbockcal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/steinbockcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.logLevel, "log-level", "", "Log level: debug, info, error (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Build the calendar once, print it to stdout and exit")

	flag.Parse()

	return cfg
}

func newFetcher(c config.FetchConfig) fetch.Fetcher {
	if c.Mode == config.FetchModeBrowser {
		return fetch.NewBrowserFetcher(fetch.BrowserOptions{
			Timeout:  time.Duration(c.Timeout),
			ExecPath: c.ChromePath,
		})
	}
	return fetch.NewHTTPFetcher(fetch.HTTPOptions{
		Timeout:   time.Duration(c.Timeout),
		UserAgent: c.UserAgent,
	})
}

func setupLogging(c config.LogConfig) func() {
	appLog.SetLevel(appLog.ParseLevel(c.Level))
	if c.File == "" {
		return func() {}
	}
	f := appLog.OpenFile(appLog.FileOptions{
		Path:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
	})
	appLog.SetOutput(io.MultiWriter(os.Stderr, f))
	return func() {
		appLog.SetOutput(os.Stderr)
		_ = f.Close()
	}
}

func runOnce(ctx context.Context, svc *feed.Service, w io.Writer) error {
	text, err := svc.Build(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, text)
	return err
}
