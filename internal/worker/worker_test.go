package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/opensource-finance/harrier/internal/bus"
	"github.com/opensource-finance/harrier/internal/cache"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/engine"
	"github.com/opensource-finance/harrier/internal/i18n"
	"github.com/opensource-finance/harrier/internal/metrics"
)

// fixedScorer returns an assessment at a fixed level.
type fixedScorer struct {
	level domain.Level
	err   error
}

func (f fixedScorer) Score(ctx context.Context, raw map[string]any, lang string) (*domain.Assessment, error) {
	if f.err != nil {
		return nil, f.err
	}
	pol, _ := raw["pol"].(string)
	pod, _ := raw["pod"].(string)
	return &domain.Assessment{
		ID: "a-1",
		Result: &domain.ScoredResult{
			Score: 97,
			Level: f.level,
			Input: domain.Shipment{POL: pol, POD: pod},
		},
	}, nil
}

func collect(t *testing.T, b domain.EventBus, topic string) <-chan *domain.Message {
	t.Helper()
	ch := make(chan *domain.Message, 10)
	if _, err := b.Subscribe(context.Background(), topic, func(ctx context.Context, msg *domain.Message) error {
		ch <- msg
		return nil
	}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	return ch
}

func submit(t *testing.T, b domain.EventBus, msg ShipmentMessage) {
	t.Helper()
	payload, _ := json.Marshal(msg)
	if err := b.Publish(context.Background(), domain.TopicShipmentSubmitted, payload); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
}

func receive(t *testing.T, ch <-chan *domain.Message) ScoredMessage {
	t.Helper()
	select {
	case msg := <-ch:
		var out ScoredMessage
		if err := json.Unmarshal(msg.Payload, &out); err != nil {
			t.Fatalf("invalid payload: %v", err)
		}
		return out
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for message")
	}
	return ScoredMessage{}
}

func TestWorker(t *testing.T) {
	eventBus := bus.NewChannelBus(100)
	defer eventBus.Close()

	e := engine.New(i18n.MustNew())
	worker := NewWorker(eventBus, e, nil, nil)

	t.Run("StartAndStop", func(t *testing.T) {
		if err := worker.Start(Config{WorkerCount: 2}); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if err := worker.Start(Config{}); !errors.Is(err, ErrStarted) {
			t.Errorf("expected ErrStarted, got %v", err)
		}

		stats := worker.GetStats()
		if !stats.Running || stats.Topic != domain.TopicShipmentSubmitted {
			t.Errorf("stats = %+v", stats)
		}
	})

	t.Run("ProcessShipment", func(t *testing.T) {
		scored := collect(t, eventBus, domain.TopicShipmentScored)

		submit(t, eventBus, ShipmentMessage{
			RequestID: "req-001",
			Language:  "vi",
			Shipment: map[string]any{
				"route": "VN_CN", "pol": "VNSGN", "pod": "CNSHA",
				"cargo_value": 50000, "transit_time": 20,
			},
		})

		out := receive(t, scored)
		if out.RequestID != "req-001" {
			t.Errorf("request id = %q", out.RequestID)
		}
		if out.Assessment == nil || out.Assessment.Result == nil {
			t.Fatal("assessment missing")
		}
		if out.Assessment.Result.Language != domain.LanguageVietnamese {
			t.Errorf("language = %s", out.Assessment.Result.Language)
		}
		if out.Assessment.Result.Region != domain.RegionSEA {
			t.Errorf("region = %s", out.Assessment.Result.Region)
		}
	})

	if err := worker.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
	if worker.GetStats().Running {
		t.Error("worker still running after Stop")
	}
}

func TestWorkerAlerts(t *testing.T) {
	eventBus := bus.NewChannelBus(100)
	defer eventBus.Close()

	c := cache.NewLRUCache(100)
	defer c.Close()
	m := metrics.New()

	worker := NewWorker(eventBus, fixedScorer{level: domain.LevelCritical}, c, m)
	if err := worker.Start(Config{WorkerCount: 1}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer worker.Stop()

	alerts := collect(t, eventBus, domain.TopicAlert)

	for i := 1; i <= 2; i++ {
		submit(t, eventBus, ShipmentMessage{Shipment: map[string]any{"pol": "VNSGN", "pod": "USLAX"}})
		out := receive(t, alerts)
		if out.RouteAlerts != int64(i) {
			t.Errorf("route alerts = %d, want %d", out.RouteAlerts, i)
		}
		if out.RequestID == "" {
			t.Error("request id should default to the message id")
		}
	}

	if got := testutil.ToFloat64(m.AlertsTotal); got != 2 {
		t.Errorf("alert counter = %v", got)
	}
}

func TestWorkerNoAlertBelowCritical(t *testing.T) {
	eventBus := bus.NewChannelBus(100)
	defer eventBus.Close()

	worker := NewWorker(eventBus, fixedScorer{level: domain.LevelHigh}, nil, nil)
	if err := worker.Start(Config{WorkerCount: 1}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer worker.Stop()

	scored := collect(t, eventBus, domain.TopicShipmentScored)
	alerts := collect(t, eventBus, domain.TopicAlert)

	submit(t, eventBus, ShipmentMessage{Shipment: map[string]any{"pol": "VNSGN"}})
	receive(t, scored)

	select {
	case <-alerts:
		t.Error("High level should not alert")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRouteKey(t *testing.T) {
	tests := []struct {
		in   domain.Shipment
		want string
	}{
		{domain.Shipment{POL: "VNSGN", POD: "USLAX", Route: "VN_US"}, "VNSGN-USLAX"},
		{domain.Shipment{Route: "VN_US"}, "VN_US"},
		{domain.Shipment{}, "unknown"},
	}
	for _, tt := range tests {
		if got := RouteKey(tt.in); got != tt.want {
			t.Errorf("RouteKey(%+v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestShipmentMessageParsing(t *testing.T) {
	payload := `{"request_id":"req-9","language":"zh","shipment":{"pol":"CNSHA","cargo_value":1000}}`

	var msg ShipmentMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if msg.RequestID != "req-9" || msg.Language != "zh" {
		t.Errorf("parsed = %+v", msg)
	}
	if msg.Shipment["pol"] != "CNSHA" || msg.Shipment["cargo_value"] != float64(1000) {
		t.Errorf("shipment = %v", msg.Shipment)
	}
}

// queueBus records the queue group the worker joins.
type queueBus struct {
	*bus.ChannelBus
	queue string
}

func (q *queueBus) QueueSubscribe(ctx context.Context, topic, queue string, handler domain.MessageHandler) (domain.Subscription, error) {
	q.queue = queue
	return q.ChannelBus.Subscribe(ctx, topic, handler)
}

func TestWorkerQueueGroup(t *testing.T) {
	qb := &queueBus{ChannelBus: bus.NewChannelBus(10)}
	defer qb.Close()

	w := NewWorker(qb, fixedScorer{level: domain.LevelLow}, nil, nil)
	if err := w.Start(Config{WorkerCount: 1}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if qb.queue != QueueGroup {
		t.Errorf("queue group = %q, want %q", qb.queue, QueueGroup)
	}
}
