// Package worker scores shipments submitted on the event bus.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/metrics"
)

// alertWindow is the window of the per-route alert counter.
const alertWindow = 24 * time.Hour

// ErrStarted is returned when Start is called on a running worker.
var ErrStarted = errors.New("worker: already started")

// Scorer scores a raw shipment mapping.
type Scorer interface {
	Score(ctx context.Context, raw map[string]any, lang string) (*domain.Assessment, error)
}

// Worker consumes domain.TopicShipmentSubmitted, scores each shipment and
// publishes domain.TopicShipmentScored and, for Critical results,
// domain.TopicAlert.
type Worker struct {
	bus     domain.EventBus
	scorer  Scorer
	cache   domain.Cache
	metrics *metrics.Metrics

	jobs         chan *domain.Message
	subscription domain.Subscription
	wg           sync.WaitGroup
	mu           sync.Mutex
	ctx          context.Context
	cancel       context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// WorkerCount is the number of concurrent scoring goroutines
	WorkerCount int

	// QueueSize bounds the messages waiting for a goroutine
	QueueSize int
}

// NewWorker creates a new async worker. cache and m may be nil.
func NewWorker(bus domain.EventBus, scorer Scorer, cache domain.Cache, m *metrics.Metrics) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:     bus,
		scorer:  scorer,
		cache:   cache,
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// QueueGroup is the queue group shared by workers on a bus that supports
// load-balanced delivery.
const QueueGroup = "harrier-workers"

type queueSubscriber interface {
	QueueSubscribe(ctx context.Context, topic, queue string, handler domain.MessageHandler) (domain.Subscription, error)
}

// Start subscribes to submitted shipments and starts the scoring goroutines.
func (w *Worker) Start(cfg Config) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.subscription != nil {
		return ErrStarted
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}

	w.jobs = make(chan *domain.Message, cfg.QueueSize)
	for i := 0; i < cfg.WorkerCount; i++ {
		w.wg.Add(1)
		go w.loop(w.jobs)
	}

	var sub domain.Subscription
	var err error
	if qb, ok := w.bus.(queueSubscriber); ok {
		sub, err = qb.QueueSubscribe(w.ctx, domain.TopicShipmentSubmitted, QueueGroup, w.enqueue)
	} else {
		sub, err = w.bus.Subscribe(w.ctx, domain.TopicShipmentSubmitted, w.enqueue)
	}
	if err != nil {
		close(w.jobs)
		w.wg.Wait()
		return err
	}
	w.subscription = sub

	slog.Info("worker started",
		"topic", domain.TopicShipmentSubmitted,
		"worker_count", cfg.WorkerCount,
	)
	return nil
}

// enqueue hands a message to the scoring goroutines, waiting while the
// queue is full.
func (w *Worker) enqueue(ctx context.Context, msg *domain.Message) error {
	select {
	case w.jobs <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop(jobs <-chan *domain.Message) {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case msg, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(w.ctx, msg); err != nil {
				slog.Error("failed to process shipment",
					"message_id", msg.ID,
					"error", err,
				)
			}
		}
	}
}

// ShipmentMessage is the payload of domain.TopicShipmentSubmitted.
type ShipmentMessage struct {
	RequestID string         `json:"request_id"`
	Language  string         `json:"language,omitempty"`
	Shipment  map[string]any `json:"shipment"`
}

// ScoredMessage is the payload of domain.TopicShipmentScored and
// domain.TopicAlert.
type ScoredMessage struct {
	RequestID  string             `json:"request_id"`
	Assessment *domain.Assessment `json:"assessment"`
	// RouteAlerts is the number of alerts on the route in the last day;
	// only set on alert messages
	RouteAlerts int64 `json:"route_alerts,omitempty"`
}

// process scores one submitted shipment.
func (w *Worker) process(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var in ShipmentMessage
	if err := json.Unmarshal(msg.Payload, &in); err != nil {
		return err
	}
	if in.RequestID == "" {
		in.RequestID = msg.ID
	}

	slog.Debug("processing shipment", "request_id", in.RequestID)

	a, err := w.scorer.Score(ctx, in.Shipment, in.Language)
	if err != nil {
		return err
	}

	out := ScoredMessage{RequestID: in.RequestID, Assessment: a}
	payload, err := json.Marshal(out)
	if err != nil {
		return err
	}
	if err := w.bus.Publish(ctx, domain.TopicShipmentScored, payload); err != nil {
		slog.Error("failed to publish scored shipment",
			"request_id", in.RequestID,
			"error", err,
		)
	}

	if ShouldAlert(a) {
		w.alert(ctx, out)
	}

	slog.Info("shipment processed",
		"request_id", in.RequestID,
		"assessment_id", a.ID,
		"level", a.Result.Level,
		"score", a.Result.Score,
		"cached", a.Cached,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (w *Worker) alert(ctx context.Context, out ScoredMessage) {
	route := RouteKey(out.Assessment.Result.Input)
	if w.cache != nil {
		n, err := w.cache.IncrementCounter(ctx, domain.CacheNamespaceAlerts, route, alertWindow)
		if err != nil {
			slog.Warn("failed to count route alert", "route", route, "error", err)
		}
		out.RouteAlerts = n
	}
	w.metrics.ObserveAlert()

	payload, err := json.Marshal(out)
	if err != nil {
		slog.Error("failed to encode alert", "request_id", out.RequestID, "error", err)
		return
	}
	if err := w.bus.Publish(ctx, domain.TopicAlert, payload); err != nil {
		slog.Error("failed to publish alert",
			"request_id", out.RequestID,
			"error", err,
		)
	}
}

// ShouldAlert reports whether an assessment warrants an alert.
func ShouldAlert(a *domain.Assessment) bool {
	return a != nil && a.Result != nil && a.Result.Level == domain.LevelCritical
}

// RouteKey identifies a lane for alert counting: POL-POD when known, else
// the route label.
func RouteKey(s domain.Shipment) string {
	if s.POL != "" || s.POD != "" {
		return s.POL + "-" + s.POD
	}
	if s.Route != "" {
		return s.Route
	}
	return "unknown"
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.subscription != nil {
		if err := w.subscription.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", w.subscription.Topic(),
				"error", err,
			)
		}
		w.subscription = nil
	}
	w.cancel()
	w.wg.Wait()

	slog.Info("worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	Running bool   `json:"running"`
	Topic   string `json:"topic"`
	Queued  int    `json:"queued"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Stats{
		Running: w.subscription != nil,
		Topic:   domain.TopicShipmentSubmitted,
		Queued:  len(w.jobs),
	}
}
