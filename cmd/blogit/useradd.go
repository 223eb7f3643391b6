package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/it-innoo/blogit"
)

func useraddCmd() *cli.Command {
	return &cli.Command{
		Name:  "useradd",
		Usage: "Create a user",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Required: true},
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}},
			&cli.StringFlag{
				Name:    "password",
				Aliases: []string{"p"},
				Usage:   "initial password",
				Sources: cli.EnvVars("BLOGIT_PASSWORD"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			u, err := blogit.NewUser(cmd.String("username"), cmd.String("name"), cmd.String("password"))
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			saved, err := store.CreateUser(ctx, u)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.Root().Writer, "created user %s (%s)\n", saved.Username, saved.ID)
			return nil
		},
	}
}
