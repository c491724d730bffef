// Package app wires the command-line interface and assembles the running
// service.
package app

import (
	"github.com/urfave/cli/v2"

	"github.com/GlebZemlyanikin/RowingModel/internal/config"
)

// Get retrieves the rowingmodel app instance.
func Get() *cli.App {
	return &cli.App{
		Name:  "rowingmodel",
		Usage: "Telegram bot that scores rowing race times against reference model tables",
		Authors: []*cli.Author{
			{
				Name: "Gleb Zemlyanikin",
			},
		},
		Version: config.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the config file",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging to stderr",
			},
		},
		Action: runAction,
	}
}
