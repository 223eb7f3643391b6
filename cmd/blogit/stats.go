package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/it-innoo/blogit"
)

func statsCmd() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Print aggregate statistics over the stored blogs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"t"},
				Value:   "json",
				Usage:   "output format (json, yaml)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			blogs, err := store.ListBlogs(ctx)
			if err != nil {
				return fmt.Errorf("list blogs: %w", err)
			}
			return writeStats(cmd.Root().Writer, cmd.String("format"), blogit.Summarize(blogs))
		},
	}
}

func writeStats(w io.Writer, format string, stats blogit.Stats) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(stats); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format: %q", format)
	}
}
