package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/jathurchan/seatlicense/client"
	"github.com/jathurchan/seatlicense/config"
	"github.com/jathurchan/seatlicense/logger"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:     "licensectl",
		Usage:    "Validate and manage a license against a license server",
		HelpName: "licensectl",
		Writer:   out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Usage:   "License server address (host:port). Defaults to LICENSE_SERVER_ADDR or 127.0.0.1:4053.",
				Aliases: []string{"s"},
			},
			&cli.StringFlag{
				Name:  "machine-id",
				Usage: "Machine id to send instead of the discovered MAC address.",
			},
			&cli.StringFlag{
				Name:  "session",
				Usage: "File caching the license key. Defaults to the user config directory.",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to a .env file loaded before reading the environment.",
				Value: ".env",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log requests and retries to stderr.",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "version",
				Usage:  "Print the server version.",
				Action: withClient(cmdVersion),
			},
			{
				Name:      "check-version",
				Usage:     "Exit non-zero unless the server reports the expected version.",
				ArgsUsage: "<version>",
				Action:    withClient(cmdCheckVersion),
			},
			{
				Name:      "validate",
				Usage:     "Claim or confirm a seat for this machine.",
				ArgsUsage: "[license-key]",
				Action:    withClient(cmdValidate),
			},
			{
				Name:      "username",
				Usage:     "Print the user the license is issued to.",
				ArgsUsage: "[license-key]",
				Action:    withClient(cmdUserName),
			},
			{
				Name:      "login",
				Usage:     "Validate a license key and cache it for later commands.",
				ArgsUsage: "<license-key>",
				Action:    withClient(cmdLogin),
			},
			{
				Name:   "check",
				Usage:  "Validate the cached license key.",
				Action: withClient(cmdCheck),
			},
			{
				Name:      "logout",
				Usage:     "Release this machine's seat and forget the cached key.",
				ArgsUsage: "[license-key]",
				Action:    withClient(cmdLogout),
			},
			{
				Name:      "raw",
				Usage:     "Send one raw protocol line and print the answer.",
				ArgsUsage: "<line>",
				Action:    withClient(cmdRaw),
			},
			{
				Name:   "machine-id",
				Usage:  "Print the machine id sent with license requests.",
				Action: withClient(cmdMachineID),
			},
		},
	}
}

// env bundles what every command needs.
type env struct {
	ctx     context.Context
	client  client.LicenseClient
	session *client.Session
	out     io.Writer
	args    cli.Args
}

func withClient(fn func(env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.LoadClient(c.String("env-file"))
		if err != nil {
			return err
		}
		if s := c.String("server"); s != "" {
			cfg.Address = s
		}
		if id := c.String("machine-id"); id != "" {
			cfg.MachineID = id
		}

		log := logger.NewNoOpLogger()
		if c.Bool("verbose") {
			log = logger.NewStdLoggerTo(c.App.ErrWriter, 0, "debug")
		}

		lc, err := client.NewClientBuilder(cfg.Address).WithConfig(cfg).WithLogger(log).Build()
		if err != nil {
			return err
		}

		path := c.String("session")
		if path == "" {
			if path, err = client.DefaultSessionPath(); err != nil {
				return err
			}
		}

		err = fn(env{
			ctx:     c.Context,
			client:  lc,
			session: client.NewSession(path),
			out:     c.App.Writer,
			args:    c.Args(),
		})
		return userError(err)
	}
}

// userError leads client failures with the message meant for the person
// at the terminal.
func userError(err error) error {
	var ce *client.ClientError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, client.ErrNoSession):
		return cli.Exit("No cached license key. Run 'licensectl login <license-key>' first.", 2)
	case errors.As(err, &ce):
		return cli.Exit(fmt.Sprintf("%s (%v)", client.UserMessage(err), err), 1)
	default:
		return err
	}
}

// licenseKey takes the key from the first argument or the session cache.
func (e env) licenseKey() (string, error) {
	if key := strings.TrimSpace(e.args.First()); key != "" {
		return key, nil
	}
	return e.session.Load()
}

func cmdVersion(e env) error {
	v, err := e.client.GetVersion(e.ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.out, v)
	return nil
}

func cmdCheckVersion(e env) error {
	expected := e.args.First()
	if expected == "" {
		return cli.Exit("check-version needs the expected version", 2)
	}
	ok, err := e.client.CheckVersion(e.ctx, expected)
	if err != nil {
		return err
	}
	if !ok {
		return cli.Exit("server version does not match "+expected, 1)
	}
	fmt.Fprintln(e.out, "version matches")
	return nil
}

func cmdValidate(e env) error {
	key, err := e.licenseKey()
	if err != nil {
		return err
	}
	if err := e.client.Activate(e.ctx, key); err != nil {
		return err
	}
	fmt.Fprintln(e.out, "license valid")
	return nil
}

func cmdUserName(e env) error {
	key, err := e.licenseKey()
	if err != nil {
		return err
	}
	name, err := e.client.GetUserName(e.ctx, key)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.out, name)
	return nil
}

func cmdLogin(e env) error {
	key := strings.TrimSpace(e.args.First())
	if err := e.client.Activate(e.ctx, key); err != nil {
		return err
	}
	if err := e.session.Save(key); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "license valid, key cached in %s\n", e.session.Path())
	return nil
}

func cmdCheck(e env) error {
	key, err := e.session.Load()
	if err != nil {
		return err
	}
	if err := e.client.Activate(e.ctx, key); err != nil {
		return err
	}
	fmt.Fprintln(e.out, "license valid")
	return nil
}

func cmdLogout(e env) error {
	key, err := e.licenseKey()
	if err != nil {
		return err
	}
	if err := e.client.ClearMacAddress(e.ctx, key); err != nil {
		return err
	}
	if err := e.session.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(e.out, "seat released")
	return nil
}

func cmdRaw(e env) error {
	resp, err := e.client.Send(e.ctx, strings.Join(e.args.Slice(), " "))
	if err != nil {
		return err
	}
	fmt.Fprintln(e.out, resp)
	return nil
}

func cmdMachineID(e env) error {
	fmt.Fprintln(e.out, e.client.MachineID())
	return nil
}
