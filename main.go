package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	cli "github.com/urfave/cli/v3"

	"taskboard/config"
	"taskboard/gantt"
	"taskboard/models"
	"taskboard/tasks"
	"taskboard/utilities"
)

func main() {
	app := &cli.Command{
		Name:  "taskboard",
		Usage: "Multi-user task board with a Gantt view",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "dotenv file loaded before reading the environment"},
		},
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
			ganttCmd(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return serve(ctx, cmd)
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the env file named by --env-file and sets up logging.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("env-file"), cmd.IsSet("env-file"))
	if err != nil {
		return nil, err
	}
	level, err := utilities.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	utilities.InitLogger(level)
	return cfg, nil
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server (default)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "port", Usage: "Listen port, overrides SERVER_PORT"},
		},
		Action: serve,
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if port := cmd.String("port"); port != "" {
		cfg.ServerPort = port
	}

	a, err := newApplication(ctx, cfg)
	if err != nil {
		return err
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	a.runSweeper(sweepCtx)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           NewRouter(a.handler(), cfg.StaticDir, cfg.CORSAllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		utilities.LogInfo("Server listening on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"taskboard": func(ctx context.Context) error {
				utilities.LogInfo("Graceful shutdown initiated")
				stopSweep()
				if err := srv.Shutdown(ctx); err != nil {
					return err
				}
				return a.Close()
			},
		},
	)

	select {
	case err := <-serveErr:
		stopSweep()
		_ = a.Close()
		return fmt.Errorf("http server: %w", err)
	case code := <-wait:
		utilities.LogInfo("Server exited with code %d", code)
		if code != 0 {
			return cli.Exit("shutdown did not complete cleanly", code)
		}
		return nil
	}
}

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply database migrations for the configured SQL driver",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.DBDriver == config.DriverFirestore {
				return fmt.Errorf("migrate: DB_DRIVER=firestore has no schema to migrate")
			}
			// openBackend migrates SQL stores as it connects.
			store, err := openBackend(ctx, cfg)
			if err != nil {
				return err
			}
			utilities.LogInfo("Migrations applied for %s", cfg.DBDriver)
			return store.Close()
		},
	}
}

func ganttCmd() *cli.Command {
	return &cli.Command{
		Name:  "gantt",
		Usage: "Print the Gantt chart dataset for every task as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status", Usage: "Only chart tasks with this status"},
			&cli.StringFlag{Name: "priority", Usage: "Only chart tasks with this priority"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := openBackend(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			svc, err := newService(store, cfg)
			if err != nil {
				return err
			}
			list, err := svc.List(ctx, models.Anonymous, tasks.Query{
				Scope:    models.ScopeAll,
				Status:   cmd.String("status"),
				Priority: cmd.String("priority"),
			})
			if err != nil {
				return err
			}

			var out interface{} = map[string]interface{}{"empty": true, "message": "No tasks yet."}
			if ds, ok := gantt.Project(list, svc.Now()); ok {
				out = ds
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}
