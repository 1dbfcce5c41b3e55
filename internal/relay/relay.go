// Package relay carries bus events between server instances.
package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rudra1in/facultyapp-sub000/internal/logger"
	"github.com/rudra1in/facultyapp-sub000/internal/pubsub"
)

var log = logger.New("relay")

const (
	DriverNone  = "none"
	DriverRedis = "redis"
	DriverNATS  = "nats"

	DefaultSubject = "facultyapp.events"
)

// Options selects and configures a relay driver.
type Options struct {
	Driver   string
	RedisURL string
	NATSURL  string
	Subject  string
}

// Open connects the configured relay. It returns nil for DriverNone.
func Open(ctx context.Context, opts Options) (pubsub.Relay, error) {
	subject := opts.Subject
	if subject == "" {
		subject = DefaultSubject
	}

	switch opts.Driver {
	case "", DriverNone:
		return nil, nil
	case DriverRedis:
		r, err := NewRedisRelay(ctx, opts.RedisURL, subject)
		if err != nil {
			return nil, err
		}
		return r, nil
	case DriverNATS:
		r, err := NewNATSRelay(opts.NATSURL, subject)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unsupported relay driver: %s", opts.Driver)
	}
}

func encode(e *pubsub.Event) ([]byte, error) {
	return json.Marshal(e)
}

func decode(data []byte) (*pubsub.Event, bool) {
	var e pubsub.Event
	if err := json.Unmarshal(data, &e); err != nil {
		log.Warn("Dropping malformed relay payload: %v", err)
		return nil, false
	}
	if e.Topic == "" {
		log.Warn("Dropping relay event without topic")
		return nil, false
	}
	return &e, true
}
