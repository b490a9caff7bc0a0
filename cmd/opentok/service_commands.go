package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/isqad/opentok-go/internal/api"
	"github.com/isqad/opentok-go/internal/relay"
	"github.com/isqad/opentok-go/internal/telemetry"
)

var errNoRelaySource = errors.New("set relay.redis_addr or relay.nats_addr")

func serveCommand(cmd *command) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the token service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "address",
				Usage: "listen IP and port, overrides server.address",
			},
		},
		Action: func(c *cli.Context) error {
			client, err := cmd.client()
			if err != nil {
				return err
			}

			address := cmd.conf.Server.Address
			if c.String("address") != "" {
				address = c.String("address")
			}

			return api.NewApp(api.AppOptions{
				Env:       cmd.conf.Env,
				Address:   address,
				AuthToken: cmd.conf.Server.AuthToken,
				Service:   client,
			}).Start()
		},
	}
}

func relayCommand(cmd *command) *cli.Command {
	return &cli.Command{
		Name:  "relay",
		Usage: "forward signal requests from redis or NATS to the platform",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "metrics-address",
				Usage: "serve /metrics on this address when set",
			},
		},
		Action: func(c *cli.Context) error {
			client, err := cmd.client()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			sources, err := cmd.relaySources(ctx)
			if err != nil {
				return err
			}

			if addr := c.String("metrics-address"); addr != "" {
				go serveMetrics(ctx, addr)
			}

			r := relay.New(client, sources...)
			r.Timeout = cmd.conf.Timeout

			return r.Run(ctx)
		},
		Subcommands: []*cli.Command{
			{
				Name:      "publish",
				Usage:     "push a signal request to the configured relay transport",
				ArgsUsage: "<session id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "connection", Usage: "connection id, the whole session when empty"},
					&cli.StringFlag{Name: "type", Usage: "signal type"},
					&cli.StringFlag{Name: "data", Usage: "signal data"},
				},
				Action: func(c *cli.Context) error {
					msg := &relay.Message{
						SessionID:    c.Args().First(),
						ConnectionID: c.String("connection"),
						Type:         c.String("type"),
						Data:         c.String("data"),
					}
					if err := msg.Validate(); err != nil {
						return err
					}

					return cmd.publish(c.Context, msg)
				},
			},
		},
	}
}

func (cmd *command) relaySources(ctx context.Context) ([]relay.Source, error) {
	conf := cmd.conf.Relay
	sources := []relay.Source{}

	if conf.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr: conf.RedisAddr,
			DB:   conf.RedisDB,
		})
		src, err := relay.SubscribeRedis(ctx, rdb, conf.RedisChannel)
		if err != nil {
			return nil, err
		}
		log.Info().Str("addr", conf.RedisAddr).Str("channel", conf.RedisChannel).Msg("relay subscribed to redis")
		sources = append(sources, src)
	}

	if conf.NatsAddr != "" {
		src, err := relay.SubscribeNats(conf.NatsAddr, conf.NatsSubject, conf.NatsQueue)
		if err != nil {
			for _, s := range sources {
				s.Close()
			}
			return nil, err
		}
		log.Info().Str("addr", conf.NatsAddr).Str("subject", conf.NatsSubject).Msg("relay subscribed to nats")
		sources = append(sources, src)
	}

	if len(sources) == 0 {
		return nil, errNoRelaySource
	}
	return sources, nil
}

func (cmd *command) publish(ctx context.Context, msg *relay.Message) error {
	conf := cmd.conf.Relay

	switch {
	case conf.RedisAddr != "":
		rdb := redis.NewClient(&redis.Options{Addr: conf.RedisAddr, DB: conf.RedisDB})
		defer rdb.Close()

		return relay.PublishRedis(ctx, rdb, conf.RedisChannel, msg)
	case conf.NatsAddr != "":
		nc, err := nats.Connect(conf.NatsAddr)
		if err != nil {
			return err
		}
		defer nc.Close()

		return relay.PublishNats(nc, conf.NatsSubject, msg)
	default:
		return errNoRelaySource
	}
}

func serveMetrics(ctx context.Context, addr string) {
	server := &http.Server{
		Addr:              addr,
		Handler:           telemetry.Handler(),
		ReadHeaderTimeout: 1 * time.Second,
	}

	go func() {
		<-ctx.Done()
		server.Close()
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("metrics server stopped")
	}
}
