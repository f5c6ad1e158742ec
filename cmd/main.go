package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

/**
 * Main entry point for the web service and its maintenance commands
 */
func main() {
	app := &cli.Command{
		Name:  "ogc-search-ws",
		Usage: "Bilingual open government search portal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Configuration file path (default config/<ENV>.yaml)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override the configured log level",
			},
		},
		Action: serveAction,
		Commands: []*cli.Command{
			serveCommand(),
			statusChangeCommand(),
			cleanExportCacheCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "ogc-search-ws: %s\n", err.Error())
		os.Exit(1)
	}
}

// setup loads configuration and creates the logger shared by every command
func setup(cmd *cli.Command) (*portalConfig, *zap.SugaredLogger, error) {
	bootLogger, err := newLogger(currentEnv(), cmd.String("log-level"))
	if err != nil {
		return nil, nil, cli.Exit(fmt.Sprintf("failed to create logger: %s", err.Error()), 1)
	}

	cfg, err := loadConfig(cmd.String("config"), bootLogger.Sugar())
	if err != nil {
		return nil, nil, cli.Exit(err.Error(), 1)
	}

	level := cfg.Logging.Level
	if override := cmd.String("log-level"); override != "" {
		level = override
	}

	logger, err := newLogger(currentEnv(), level)
	if err != nil {
		return nil, nil, cli.Exit(fmt.Sprintf("failed to create logger: %s", err.Error()), 1)
	}

	return cfg, logger.Sugar(), nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the search web service",
		Action: serveAction,
	}
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	defer logger.Sync()

	logger.Infof("===> ogc-search-ws starting up <===")

	portal, err := initializePortal(ctx, cfg, logger)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	defer portal.pages.close()

	janitor := newExportJanitor(portal.exports, cfg.Export.JanitorInterval, cfg.Export.JanitorAge)
	janitor.start()
	defer janitor.shutdown()

	gin.SetMode(gin.ReleaseMode)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Service.Port),
		Handler:           portal.newRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)

	go func() {
		logger.Infof("Start service on %s", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) == false {
			return cli.Exit(fmt.Sprintf("server failed: %s", err.Error()), 1)
		}

	case sig := <-sigc:
		logger.Infof("received %s, shutting down", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("graceful shutdown failed: %s", err.Error())
		}
	}

	return nil
}

func cleanExportCacheCommand() *cli.Command {
	return &cli.Command{
		Name:  "clean-export-cache",
		Usage: "Remove cached CSV exports older than a given age",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "older-than",
				Usage: "Minimum age of files to remove (default export.janitor_age)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}

			defer logger.Sync()

			age := cfg.Export.JanitorAge
			if d := cmd.Duration("older-than"); d > 0 {
				age = d
			}

			removed, err := newExportCache(cfg.Export, logger).removeOlderThan(age)
			if err != nil {
				return cli.Exit(fmt.Sprintf("export cleanup failed: %s", err.Error()), 1)
			}

			logger.Infof("[CACHE] removed %d export file(s) older than %s from %s", removed, age, cfg.Export.CacheDir)

			return nil
		},
	}
}
