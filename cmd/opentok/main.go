package main

import (
	"encoding/json"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"

	"github.com/isqad/opentok-go/internal/config"
	"github.com/isqad/opentok-go/opentok"
)

func main() {
	cmd := &command{}

	app := &cli.App{
		Name:    "opentok",
		Usage:   "OpenTok server side toolbox",
		Version: opentok.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a config file (yaml, json or toml)",
			},
			&cli.StringFlag{
				Name:  "env",
				Usage: "environment: either 'development' or 'production'",
			},
			&cli.StringFlag{
				Name:  "api-key",
				Usage: "project API key, overrides OPENTOK_API_KEY",
			},
			&cli.StringFlag{
				Name:  "api-secret",
				Usage: "project API secret, overrides OPENTOK_API_SECRET",
			},
		},
		Before: cmd.before,
		Commands: []*cli.Command{
			sessionCommand(cmd),
			tokenCommand(cmd),
			signalCommand(cmd),
			streamCommand(cmd),
			disconnectCommand(cmd),
			archiveCommand(cmd),
			serveCommand(cmd),
			relayCommand(cmd),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("")
	}
}

type command struct {
	conf *config.Config
}

func (cmd *command) before(c *cli.Context) error {
	v := viper.New()
	if env := c.String("env"); env != "" {
		v.Set("env", env)
	}
	if key := c.String("api-key"); key != "" {
		v.Set("api_key", key)
	}
	if secret := c.String("api-secret"); secret != "" {
		v.Set("api_secret", secret)
	}

	conf, err := config.Load(v, c.String("config"))
	if err != nil {
		return err
	}
	cmd.conf = conf
	initLogger(conf.Env)

	return nil
}

func initLogger(env config.Environment) {
	cw := zerolog.NewConsoleWriter()
	cw.Out = os.Stderr
	log.Logger = log.Output(cw)

	level := zerolog.InfoLevel

	if env.IsDevelopment() {
		level = zerolog.DebugLevel
	}

	zerolog.SetGlobalLevel(level)
}

func (cmd *command) client() (*opentok.Client, error) {
	if err := cmd.conf.RequireCredentials(); err != nil {
		return nil, err
	}

	return opentok.New(cmd.conf.APIKey, cmd.conf.APISecret,
		opentok.WithAPIURL(cmd.conf.APIURL),
		opentok.WithTimeout(cmd.conf.Timeout),
		opentok.WithLogger(log.Logger),
		opentok.WithUserAgentSuffix("opentok-cli/"+opentok.Version),
	)
}

func printJSON(c *cli.Context, v interface{}) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
