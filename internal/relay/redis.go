package relay

import (
	"context"
	"sync"

	"github.com/go-redis/redis/v8"
)

type redisBus interface {
	Channel(opts ...redis.ChannelOption) <-chan *redis.Message
	Close() error
}

// RedisSource reads relay messages from a redis pub/sub channel
type RedisSource struct {
	bus      redisBus
	messages chan []byte
	done     chan struct{}
	once     sync.Once
}

func SubscribeRedis(ctx context.Context, rdb *redis.Client, channel string) (*RedisSource, error) {
	pubsub := rdb.Subscribe(ctx, channel)
	// Wait until subscription is created
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	return newRedisSource(pubsub), nil
}

func newRedisSource(bus redisBus) *RedisSource {
	s := &RedisSource{
		bus:      bus,
		messages: make(chan []byte),
		done:     make(chan struct{}),
	}
	go s.pump()

	return s
}

func (s *RedisSource) pump() {
	defer close(s.messages)

	// go-redis drops a message when the channel stays full for 30 seconds
	channel := s.bus.Channel()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-channel:
			if !ok {
				return
			}
			select {
			case s.messages <- []byte(msg.Payload):
			case <-s.done:
				return
			}
		}
	}
}

func (s *RedisSource) Name() string {
	return "redis"
}

func (s *RedisSource) Messages() <-chan []byte {
	return s.messages
}

func (s *RedisSource) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.bus.Close()
	})
	return err
}

// PublishRedis sends msg to channel, used by backends and the CLI to feed a relay
func PublishRedis(ctx context.Context, rdb *redis.Client, channel string, msg *Message) error {
	payload, err := msg.ToJSON()
	if err != nil {
		return err
	}
	return rdb.Publish(ctx, channel, payload).Err()
}
