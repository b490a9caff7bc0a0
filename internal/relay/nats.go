package relay

import (
	"sync"

	"github.com/nats-io/nats.go"
)

const natsPending = 64

// NatsSource reads relay messages from a NATS subject as a member of a queue group, so each
// message is forwarded by exactly one relay instance
type NatsSource struct {
	nc  *nats.Conn
	sub *nats.Subscription

	incoming chan *nats.Msg
	messages chan []byte
	done     chan struct{}
	once     sync.Once
}

func SubscribeNats(addr, subject, queue string) (*NatsSource, error) {
	nc, err := nats.Connect(addr, nats.NoEcho())
	if err != nil {
		return nil, err
	}

	s := &NatsSource{
		nc:       nc,
		incoming: make(chan *nats.Msg, natsPending),
		messages: make(chan []byte),
		done:     make(chan struct{}),
	}

	s.sub, err = nc.ChanQueueSubscribe(subject, queue, s.incoming)
	if err != nil {
		nc.Close()
		return nil, err
	}
	go s.pump()

	return s, nil
}

func (s *NatsSource) pump() {
	defer close(s.messages)

	for {
		select {
		case <-s.done:
			return
		case msg := <-s.incoming:
			select {
			case s.messages <- msg.Data:
			case <-s.done:
				return
			}
		}
	}
}

func (s *NatsSource) Name() string {
	return "nats"
}

func (s *NatsSource) Messages() <-chan []byte {
	return s.messages
}

func (s *NatsSource) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.sub.Unsubscribe()
		s.nc.Close()
	})
	return err
}

// PublishNats sends msg to subject on an established connection
func PublishNats(nc *nats.Conn, subject string, msg *Message) error {
	payload, err := msg.ToJSON()
	if err != nil {
		return err
	}
	if err := nc.Publish(subject, payload); err != nil {
		return err
	}
	return nc.Flush()
}
