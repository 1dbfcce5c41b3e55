package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/rudra1in/facultyapp-sub000/internal/pubsub"
)

// NATSRelay fans events out over a NATS subject.
type NATSRelay struct {
	conn    *nats.Conn
	subject string
}

var _ pubsub.Relay = (*NATSRelay)(nil)

func NewNATSRelay(url, subject string) (*NATSRelay, error) {
	conn, err := nats.Connect(url,
		nats.Name("facultyapp-relay"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(10*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("Disconnected from NATS: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("Reconnected to NATS at %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	log.Info("Connected to NATS relay at %s", conn.ConnectedUrl())
	return &NATSRelay{conn: conn, subject: subject}, nil
}

func (r *NATSRelay) Publish(ctx context.Context, e *pubsub.Event) error {
	data, err := encode(e)
	if err != nil {
		return err
	}
	return r.conn.Publish(r.subject, data)
}

// Start subscribes to the subject and delivers events until ctx is done.
func (r *NATSRelay) Start(ctx context.Context, deliver func(*pubsub.Event)) error {
	sub, err := r.conn.Subscribe(r.subject, func(msg *nats.Msg) {
		if e, ok := decode(msg.Data); ok {
			deliver(e)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", r.subject, err)
	}
	if err := r.conn.Flush(); err != nil {
		sub.Unsubscribe()
		return err
	}

	go func() {
		<-ctx.Done()
		sub.Unsubscribe()
	}()
	return nil
}

func (r *NATSRelay) Close() error {
	r.conn.Close()
	return nil
}
