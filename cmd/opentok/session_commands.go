package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/isqad/opentok-go/opentok"
)

func sessionCommand(cmd *command) *cli.Command {
	return &cli.Command{
		Name:  "session",
		Usage: "manage sessions",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "create a new session and print its id",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "media-mode", Usage: "relayed or routed", Value: string(opentok.MediaModeRelayed)},
					&cli.StringFlag{Name: "archive-mode", Usage: "manual or always", Value: string(opentok.ArchiveModeManual)},
					&cli.StringFlag{Name: "location", Usage: "IPv4 address hint for the media server"},
				},
				Action: func(c *cli.Context) error {
					client, err := cmd.client()
					if err != nil {
						return err
					}

					session, err := client.CreateSession(c.Context, opentok.SessionOptions{
						MediaMode:   opentok.MediaMode(c.String("media-mode")),
						ArchiveMode: opentok.ArchiveMode(c.String("archive-mode")),
						Location:    c.String("location"),
					})
					if err != nil {
						return err
					}

					fmt.Fprintln(c.App.Writer, session.SessionID)
					return nil
				},
			},
		},
	}
}

func tokenCommand(cmd *command) *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "generate and inspect client tokens",
		Subcommands: []*cli.Command{
			{
				Name:      "generate",
				Usage:     "sign a token for a session",
				ArgsUsage: "<session id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "role", Usage: "subscriber, publisher or moderator", Value: string(opentok.RolePublisher)},
					&cli.DurationFlag{Name: "ttl", Usage: "token lifetime, at most 720h", Value: opentok.DefaultTokenLifetime},
					&cli.StringFlag{Name: "data", Usage: "connection data, at most 1000 characters"},
					&cli.StringSliceFlag{Name: "layout-class", Usage: "initial layout class, repeatable"},
				},
				Action: func(c *cli.Context) error {
					client, err := cmd.client()
					if err != nil {
						return err
					}

					token, err := client.GenerateToken(c.Args().First(), opentok.TokenOptions{
						Role:                   opentok.Role(c.String("role")),
						ExpireTime:             time.Now().Add(c.Duration("ttl")),
						Data:                   c.String("data"),
						InitialLayoutClassList: c.StringSlice("layout-class"),
					})
					if err != nil {
						return err
					}

					fmt.Fprintln(c.App.Writer, token)
					return nil
				},
			},
			{
				Name:      "inspect",
				Usage:     "decode a token and print its claims",
				ArgsUsage: "<token>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "verify", Usage: "check the signature against the configured API secret"},
				},
				Action: func(c *cli.Context) error {
					claims, err := opentok.ParseToken(strings.TrimSpace(c.Args().First()))
					if err != nil {
						return err
					}

					if c.Bool("verify") {
						if err := cmd.conf.RequireCredentials(); err != nil {
							return err
						}
						if !claims.Verify(cmd.conf.APISecret) {
							return cli.Exit("signature mismatch", 1)
						}
					}

					return printJSON(c, claims)
				},
			},
		},
	}
}

func signalCommand(cmd *command) *cli.Command {
	return &cli.Command{
		Name:      "signal",
		Usage:     "send a signal to a session or a single connection",
		ArgsUsage: "<session id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "connection", Usage: "connection id, the whole session when empty"},
			&cli.StringFlag{Name: "type", Usage: "signal type"},
			&cli.StringFlag{Name: "data", Usage: "signal data"},
		},
		Action: func(c *cli.Context) error {
			client, err := cmd.client()
			if err != nil {
				return err
			}

			return client.Signal(c.Context, c.Args().First(), opentok.SignalPayload{
				Type: c.String("type"),
				Data: c.String("data"),
			}, c.String("connection"))
		},
	}
}

func streamCommand(cmd *command) *cli.Command {
	return &cli.Command{
		Name:  "stream",
		Usage: "inspect published streams",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				ArgsUsage: "<session id> <stream id>",
				Action: func(c *cli.Context) error {
					client, err := cmd.client()
					if err != nil {
						return err
					}

					stream, err := client.GetStream(c.Context, c.Args().Get(0), c.Args().Get(1))
					if err != nil {
						return err
					}
					return printJSON(c, stream)
				},
			},
			{
				Name:      "list",
				ArgsUsage: "<session id>",
				Action: func(c *cli.Context) error {
					client, err := cmd.client()
					if err != nil {
						return err
					}

					streams, err := client.ListStreams(c.Context, c.Args().First())
					if err != nil {
						return err
					}
					return printJSON(c, streams)
				},
			},
		},
	}
}

func disconnectCommand(cmd *command) *cli.Command {
	return &cli.Command{
		Name:      "disconnect",
		Usage:     "force a connection out of a session",
		ArgsUsage: "<session id> <connection id>",
		Action: func(c *cli.Context) error {
			client, err := cmd.client()
			if err != nil {
				return err
			}

			return client.ForceDisconnect(c.Context, c.Args().Get(0), c.Args().Get(1))
		},
	}
}
