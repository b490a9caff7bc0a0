package main

import (
	"github.com/urfave/cli/v2"

	"github.com/isqad/opentok-go/opentok"
)

func archiveCommand(cmd *command) *cli.Command {
	archiveByID := func(call func(c *cli.Context, client *opentok.Client, id string) (interface{}, error)) cli.ActionFunc {
		return func(c *cli.Context) error {
			client, err := cmd.client()
			if err != nil {
				return err
			}

			v, err := call(c, client, c.Args().First())
			if err != nil || v == nil {
				return err
			}
			return printJSON(c, v)
		}
	}

	return &cli.Command{
		Name:  "archive",
		Usage: "record sessions",
		Subcommands: []*cli.Command{
			{
				Name:      "start",
				ArgsUsage: "<session id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name"},
					&cli.BoolFlag{Name: "no-audio"},
					&cli.BoolFlag{Name: "no-video"},
					&cli.StringFlag{Name: "output-mode", Usage: "composed or individual", Value: string(opentok.OutputModeComposed)},
					&cli.StringFlag{Name: "resolution", Usage: "640x480 or 1280x720"},
				},
				Action: archiveByID(func(c *cli.Context, client *opentok.Client, sessionID string) (interface{}, error) {
					opts := opentok.DefaultArchiveOptions()
					opts.Name = c.String("name")
					opts.HasAudio = !c.Bool("no-audio")
					opts.HasVideo = !c.Bool("no-video")
					opts.OutputMode = opentok.OutputMode(c.String("output-mode"))
					opts.Resolution = c.String("resolution")

					return client.StartArchive(c.Context, sessionID, opts)
				}),
			},
			{
				Name:      "stop",
				ArgsUsage: "<archive id>",
				Action: archiveByID(func(c *cli.Context, client *opentok.Client, id string) (interface{}, error) {
					return client.StopArchive(c.Context, id)
				}),
			},
			{
				Name:      "get",
				ArgsUsage: "<archive id>",
				Action: archiveByID(func(c *cli.Context, client *opentok.Client, id string) (interface{}, error) {
					return client.GetArchive(c.Context, id)
				}),
			},
			{
				Name:      "delete",
				ArgsUsage: "<archive id>",
				Action: archiveByID(func(c *cli.Context, client *opentok.Client, id string) (interface{}, error) {
					return nil, client.DeleteArchive(c.Context, id)
				}),
			},
			{
				Name: "list",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "offset"},
					&cli.IntFlag{Name: "count"},
					&cli.StringFlag{Name: "session", Usage: "only archives of this session"},
				},
				Action: func(c *cli.Context) error {
					client, err := cmd.client()
					if err != nil {
						return err
					}

					archives, err := client.ListArchives(c.Context, opentok.ListArchivesOptions{
						Offset:    c.Int("offset"),
						Count:     c.Int("count"),
						SessionID: c.String("session"),
					})
					if err != nil {
						return err
					}
					return printJSON(c, archives)
				},
			},
		},
	}
}
