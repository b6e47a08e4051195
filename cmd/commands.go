// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/linuxfoundation/lfx-v2-log-search-service/cmd/service"
	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/config"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/constants"
	logging "github.com/linuxfoundation/lfx-v2-log-search-service/pkg/log"
	"github.com/urfave/cli/v3"
)

const (
	// gracefulShutdownSeconds should be higher than NATS client
	// request timeout, and lower than the pod or liveness probe's
	// terminationGracePeriodSeconds.
	gracefulShutdownSeconds = 25
)

// setup initializes logging and loads the configuration named by the root flags
func setup(c *cli.Command) (*config.Config, func() error, error) {
	if c.Bool("debug") {
		os.Setenv("LOG_LEVEL", "debug")
	}
	cleanup := logging.InitStructureLogConfig()

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, cleanup, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, cleanup, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the log search HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "port",
				Usage: "Listen port, overrides the configured one",
			},
			&cli.StringFlag{
				Name:  "bind",
				Usage: "Interface to bind on",
				Value: "*",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, cleanup, err := setup(c)
			defer cleanup()
			if err != nil {
				return err
			}
			port := cfg.Port
			if p := c.String("port"); p != "" {
				port = p
			}
			return serve(ctx, cfg, c.String("bind"), port, c.Bool("debug"))
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, bind, port string, dbg bool) error {
	slog.InfoContext(ctx, "Starting log search service",
		"bind", bind,
		"http-port", port,
		"graceful-shutdown-seconds", gracefulShutdownSeconds,
	)

	deps := service.NewDependencies(ctx, cfg)
	if errWarm := deps.Catalog.Warm(ctx, deps.Repo); errWarm != nil {
		slog.WarnContext(ctx, "field catalog warm-up incomplete", "error", errWarm)
	}
	api := service.NewLogSearchAPI(service.NewLogSearch(cfg, deps), deps.Auth)

	// Create channel used by both the signal handler and server goroutines
	// to notify the main goroutine when to stop the server.
	errc := make(chan error)

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(ctx)

	addr := ":" + port
	if bind != "*" {
		addr = bind + ":" + port
	}

	handleHTTPServer(ctx, addr, newRouter(api, dbg), &wg, errc)

	// Wait for signal.
	slog.InfoContext(ctx, "received shutdown signal, stopping servers",
		"signal", <-errc,
	)

	// Send cancellation signal to the goroutines.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownSeconds*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		deps.Close(shutdownCtx)
		close(done)
	}()

	select {
	case <-done:
		slog.InfoContext(ctx, "graceful shutdown completed")
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "graceful shutdown timed out")
	}

	slog.InfoContext(ctx, "exited")
	return nil
}

// oneShotFlags are shared by the commands running a single request from the terminal
func oneShotFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:     "index-set-id",
			Usage:    "Index set to search",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "request",
			Usage: "JSON search request file, - reads stdin",
			Value: "-",
		},
		&cli.StringFlag{
			Name:    "user",
			Usage:   "Username the request runs as",
			Sources: cli.EnvVars("USER"),
			Value:   "cli",
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Run one search and print the result as JSON",
		Flags: append(oneShotFlags(), &cli.StringFlag{
			Name:  "search-type",
			Usage: "Search type; only default searches are recorded in history",
			Value: constants.DefaultSearchType,
		}),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, cleanup, err := setup(c)
			defer cleanup()
			if err != nil {
				return err
			}
			req, err := readRequest(c)
			if err != nil {
				return err
			}

			deps := service.NewDependencies(ctx, cfg)
			defer deps.Close(ctx)
			svc := service.NewLogSearch(cfg, deps)

			ctx = context.WithValue(ctx, constants.PrincipalContextID, c.String("user"))
			started := time.Now()
			result, err := svc.Search(ctx, req, c.String("search-type"))
			if err != nil {
				return err
			}
			if result.HistoryObj != nil {
				if errSave := svc.SaveHistory(ctx, *result.HistoryObj, time.Since(started)); errSave != nil {
					slog.WarnContext(ctx, "failed to save search history", "error", errSave)
				}
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export every matching log line as NDJSON",
		Flags: append(oneShotFlags(), &cli.StringFlag{
			Name:  "page-token",
			Usage: "Resume an export from a previously issued page token",
		}),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, cleanup, err := setup(c)
			defer cleanup()
			if err != nil {
				return err
			}
			req, err := readRequest(c)
			if err != nil {
				return err
			}

			deps := service.NewDependencies(ctx, cfg)
			defer deps.Close(ctx)
			svc := service.NewLogSearch(cfg, deps)

			ctx = context.WithValue(ctx, constants.PrincipalContextID, c.String("user"))
			pages, err := svc.Export(ctx, req, c.String("page-token"))
			if err != nil {
				return err
			}
			return writeLines(os.Stdout, pages)
		},
	}
}

// writeLines prints each exported log line on its own row
func writeLines(w io.Writer, pages iter.Seq2[*model.SearchResult, error]) error {
	enc := json.NewEncoder(w)
	total := 0
	for page, err := range pages {
		if err != nil {
			return err
		}
		for _, line := range page.List {
			if errEnc := enc.Encode(line); errEnc != nil {
				return errEnc
			}
		}
		total += len(page.List)
	}
	slog.Info("export completed", "lines", total)
	return nil
}

func readRequest(c *cli.Command) (model.SearchRequest, error) {
	var req model.SearchRequest

	var r io.Reader = os.Stdin
	if path := c.String("request"); path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return req, fmt.Errorf("failed to open request file: %w", err)
		}
		defer f.Close()
		r = f
	}

	if err := json.NewDecoder(r).Decode(&req); err != nil && err != io.EOF {
		return req, fmt.Errorf("failed to decode request: %w", err)
	}
	req.IndexSetID = int(c.Int("index-set-id"))
	return req, nil
}
