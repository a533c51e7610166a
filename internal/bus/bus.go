// Package bus carries shipment and scenario events between the API, the
// async worker and external consumers.
package bus

import (
	"errors"
	"fmt"

	"github.com/opensource-finance/harrier/internal/domain"
)

var (
	// ErrClosed is returned by operations on a closed bus.
	ErrClosed = errors.New("bus: closed")

	// ErrTopicRequired is returned for an empty topic.
	ErrTopicRequired = errors.New("bus: topic is required")
)

// New creates a new event bus based on configuration.
// For Community tier: returns ChannelBus.
// For Pro tier: returns NATSBus.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}
