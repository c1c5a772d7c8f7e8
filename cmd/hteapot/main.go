package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	hteapot "github.com/Az107/HTeaPot"
	"github.com/Az107/HTeaPot/internal/config"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	serveDir string
	addr     string
}

// NewRootCmd builds the hteapot root command: `hteapot <config-path>` to
// run off a TOML file, or `hteapot -s <dir>` to quick-serve a directory
// with no proxy rules and no cache.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "hteapot [config-path]",
		Short: "HTeaPot: a reverse proxy and static file server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.serveDir != "" {
				return runQuickServe(opts)
			}
			if len(args) != 1 {
				return fmt.Errorf("expected a config file path, or -s/--serve-dir")
			}
			return runFromConfig(args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.serveDir, "serve-dir", "s", "", "quick-serve a directory of static files")
	cmd.Flags().StringVar(&opts.addr, "addr", "0.0.0.0:8080", "listen address for -s/--serve-dir")

	return cmd
}

func runQuickServe(opts *rootOptions) error {
	log := newLogger("")
	log.WithFields(logrus.Fields{"dir": opts.serveDir, "addr": opts.addr}).Info("quick-serving directory")

	ctx := shutdownContext()
	if err := hteapot.QuickServe(ctx, opts.addr, opts.serveDir); err != nil {
		return fmt.Errorf("quick-serve: %w", err)
	}
	return nil
}

func runFromConfig(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := newLogger(cfg.LogFile)
	srv, err := hteapot.FromConfig(cfg)
	if err != nil {
		return fmt.Errorf("configuring server: %w", err)
	}
	srv.OnAccess = func(remoteAddr, method, path string, status int, duration time.Duration) {
		log.WithFields(logrus.Fields{
			"remote_addr": remoteAddr,
			"method":      method,
			"path":        path,
			"status":      status,
			"duration":    duration.String(),
		}).Info("request")
	}
	srv.OnError = func(remoteAddr string, err error) {
		log.WithFields(logrus.Fields{"remote_addr": remoteAddr}).Warn(err)
	}

	log.WithFields(logrus.Fields{"host": cfg.Host, "port": cfg.Port}).Info("starting hteapot")
	ctx := shutdownContext()
	if err := srv.Listen(ctx, nil); err != nil {
		return fmt.Errorf("serving: %w", err)
	}
	return nil
}

// shutdownContext returns a context cancelled on SIGINT/SIGTERM, so
// engine.Pool.Run drains in-flight connections before the process exits.
func shutdownContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}

func newLogger(logFile string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stdout)
	if logFile == "" {
		return log
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.WithError(err).Warnf("could not open log file %s, logging to stdout", logFile)
		return log
	}
	log.SetOutput(f)
	return log
}
