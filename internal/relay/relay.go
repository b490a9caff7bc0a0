package relay

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"

	"github.com/isqad/opentok-go/internal/telemetry"
	"github.com/isqad/opentok-go/opentok"
)

const DefaultTimeout = 10 * time.Second

// Signaler is the part of the SDK client the relay needs
type Signaler interface {
	Signal(ctx context.Context, sessionID string, payload opentok.SignalPayload, connectionID string) error
}

// Source delivers raw relay messages until it is closed
type Source interface {
	Name() string
	Messages() <-chan []byte
	Close() error
}

// Relay reads signal requests from its sources and forwards them to the platform
type Relay struct {
	signaler Signaler
	sources  []Source

	Timeout time.Duration
}

func New(signaler Signaler, sources ...Source) *Relay {
	return &Relay{
		signaler: signaler,
		sources:  sources,
		Timeout:  DefaultTimeout,
	}
}

// Run consumes every source until ctx is cancelled or all sources are drained, then closes them
func (r *Relay) Run(ctx context.Context) error {
	log.Info().Int("sources", len(r.sources)).Str("service", "relay").Msg("start")

	wg := &sync.WaitGroup{}
	for _, src := range r.sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			r.consume(ctx, src)
		}(src)
	}
	wg.Wait()

	return r.Close()
}

func (r *Relay) Close() error {
	var result *multierror.Error
	for _, src := range r.sources {
		if err := src.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	log.Info().Str("service", "relay").Msg("stop")

	return result.ErrorOrNil()
}

func (r *Relay) consume(ctx context.Context, src Source) {
	messages := src.Messages()
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-messages:
			if !ok {
				return
			}
			r.forward(ctx, src.Name(), raw)
		}
	}
}

func (r *Relay) forward(ctx context.Context, source string, raw []byte) {
	msg, err := ParseMessage(raw)
	if err != nil {
		log.Error().Err(err).Str("service", "relay").Str("source", source).Msg("drop message")
		telemetry.SignalRelayed(source, "invalid")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	if err := r.signaler.Signal(ctx, msg.SessionID, msg.Payload(), msg.ConnectionID); err != nil {
		log.Error().Err(err).
			Str("service", "relay").
			Str("source", source).
			Str("session_id", msg.SessionID).
			Str("connection_id", msg.ConnectionID).
			Msg("signal failed")
		telemetry.SignalRelayed(source, "failed")
		return
	}

	log.Debug().Str("service", "relay").Str("source", source).Str("session_id", msg.SessionID).Msg("signal relayed")
	telemetry.SignalRelayed(source, "ok")
}
