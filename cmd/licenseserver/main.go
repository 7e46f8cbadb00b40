package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/jathurchan/seatlicense/config"
)

// Version of the licenseserver binary. The version reported to clients
// comes from the config file.
var Version = "dev"

func main() {
	app := &cli.App{
		Name:     "licenseserver",
		Usage:    "Serve per-seat license validation over TCP",
		Version:  Version,
		HelpName: "licenseserver",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to the JSON config file. Created with defaults when missing.",
				Value:   config.DefaultServerConfigPath,
				Aliases: []string{"c"},
				EnvVars: []string{"LICENSE_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to a .env file loaded before reading the environment.",
				Value: ".env",
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the license server (default).",
				Action: serve,
			},
			{
				Name:      "import",
				Usage:     "Copy a JSON license file into a bbolt store.",
				UsageText: "licenseserver import --from licenses.json --to licenses.db",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "from",
						Usage:    "JSON license file to read.",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "to",
						Usage:    "bbolt database to write. Existing licenses in it are replaced.",
						Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					n, err := importLicenses(c.Context, c.String("from"), c.String("to"))
					if err != nil {
						return err
					}
					fmt.Printf("imported %d licenses into %s\n", n, c.String("to"))
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
