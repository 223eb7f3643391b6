package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/it-innoo/blogit"
	"github.com/it-innoo/blogit/logger"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cli.Command {
	return &cli.Command{
		Name:    "blogit",
		Usage:   "Blog list REST backend",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML config file; environment variables override it",
				Sources: cli.EnvVars("BLOGIT_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			serveCmd(),
			statsCmd(),
			useraddCmd(),
			{
				Name:  "version",
				Usage: "Print the version",
				Action: func(_ context.Context, cmd *cli.Command) error {
					fmt.Fprintf(cmd.Root().Writer, "blogit %s\n", version)
					return nil
				},
			},
		},
	}
}

func loadConfig(cmd *cli.Command) (blogit.Config, error) {
	return blogit.LoadConfig(cmd.String("config"))
}

// openStore opens the database the server would use for cfg.
func openStore(cfg blogit.Config) (*blogit.Store, error) {
	return blogit.NewStore(cfg.WithDefaults().DatabaseFile())
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.LogMode)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer log.Sync()

			app := blogit.New(cfg, blogit.WithLogger(log.With("version", version)))
			defer app.Close()
			return app.Run(ctx)
		},
	}
}
