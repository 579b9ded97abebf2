package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/lanectl/internal/api"
	"github.com/danmuck/lanectl/internal/config"
	"github.com/danmuck/lanectl/internal/console"
	"github.com/danmuck/lanectl/internal/discovery"
	"github.com/danmuck/lanectl/internal/link"
	"github.com/danmuck/lanectl/internal/logging"
	"github.com/danmuck/lanectl/internal/panel"
	"github.com/danmuck/lanectl/internal/uart"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "lanectl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to lanectl TOML config")
	envFile := flag.String("env", ".env", "dotenv file with LANECTL_* overrides")
	port := flag.String("port", "", "serial port to use instead of USB discovery")
	noConsole := flag.Bool("no-console", false, "disable the stdin console")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load env %s: %w", *envFile, err)
	}
	logging.ConfigureRuntime()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *port != "" {
		cfg.Link.Line.Port = *port
		cfg.Link.Filter.Port = *port
	}
	if *noConsole {
		cfg.Console = false
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return serve(ctx, cfg, os.Stdin, os.Stdout)
}

func serve(ctx context.Context, cfg config.Config, in io.Reader, out io.Writer) error {
	opener, err := uart.NewOpener(cfg.Link.Line.Driver)
	if err != nil {
		return err
	}
	var lister discovery.Lister = discovery.EnumeratorLister{}
	if cfg.Link.Filter.Port != "" {
		lister = discovery.FixedLister{Name: cfg.Link.Filter.Port}
	}

	var p *panel.Panel
	mgr := link.NewManager(cfg.Link, opener, lister, link.WithNotify(func(n link.Notice) {
		if p != nil {
			p.Notify(n)
		}
	}))
	p = panel.New(ctx, mgr)

	log.Info().
		Str("serial", config.LineSummary(cfg)).
		Bool("http", cfg.HTTP.Enabled).
		Bool("console", cfg.Console).
		Msg("lanectl starting")

	g, gctx := errgroup.WithContext(ctx)
	// the first discovery poll attaches and connects any adapter present
	g.Go(func() error {
		return mgr.Run(gctx)
	})
	if cfg.HTTP.Enabled {
		srv := api.New(api.Config{Listen: cfg.HTTP.Listen, CorsOrigins: cfg.HTTP.CorsOrigins}, p, mgr)
		g.Go(func() error {
			return srv.Serve(gctx)
		})
	}
	if cfg.Console {
		cons := console.New(p, mgr, out)
		g.Go(func() error {
			if err := cons.Run(gctx, in); err != nil {
				return err
			}
			// quitting the console ends the process unless the API is serving
			if !cfg.HTTP.Enabled {
				return errConsoleQuit
			}
			return nil
		})
	}

	err = g.Wait()
	p.Wait()
	if errors.Is(err, errConsoleQuit) {
		return nil
	}
	return err
}

var errConsoleQuit = errors.New("lanectl: console closed")
