package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vatwatch/vatwatch/internal/websocket"
	"github.com/vatwatch/vatwatch/pkg/logger"
)

// ErrPollInProgress is returned when a poll cycle is requested while a
// previous one is still outstanding. Overlap is an operator error, not
// something to queue.
var ErrPollInProgress = errors.New("feed poll already in progress")

// Consumer receives successfully parsed feed results. Reconciliation runs
// entirely inside Apply, which the service calls from a single goroutine, so
// one cycle always completes before the next begins.
type Consumer interface {
	Apply(result *Result)
}

// Broadcaster pushes feed status transitions to connected clients. Nil
// disables status push.
type Broadcaster interface {
	Broadcast(message *websocket.Message)
}

// Service drives the periodic fetch → parse → reconcile cycle
type Service struct {
	client      *Client
	parser      *Parser
	consumer    Consumer
	interval    time.Duration
	broadcaster Broadcaster
	logger      *logger.Logger

	mu        sync.RWMutex
	loading   bool
	status    Status
	summary   string
	lastCycle time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewService creates a new feed polling service
func NewService(client *Client, parser *Parser, consumer Consumer, interval time.Duration, broadcaster Broadcaster, log *logger.Logger) *Service {
	return &Service{
		client:      client,
		parser:      parser,
		consumer:    consumer,
		interval:    interval,
		broadcaster: broadcaster,
		logger:      log.Named("feed"),
		status:      StatusInit,
		summary:     "never successfully read",
		stopCh:      make(chan struct{}),
	}
}

// Start starts the polling loop
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("Starting feed service",
		logger.Duration("fetch_interval", s.interval),
	)

	// Initial poll
	if err := s.Poll(ctx); err != nil {
		s.logger.Error("Initial feed poll failed", logger.Error(err))
	}

	s.wg.Add(1)
	go s.pollLoop(ctx)

	return nil
}

// Stop stops the polling loop
func (s *Service) Stop() {
	s.logger.Info("Stopping feed service")
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("Feed service stopped")
}

// pollLoop re-arms the timer only after the previous cycle has completed,
// guaranteeing at most one in-flight cycle
func (s *Service) pollLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Poll(ctx); err != nil {
				s.logger.Error("Feed poll failed", logger.Error(err))
			}
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Poll runs one fetch → parse → reconcile cycle. It never panics across the
// cycle boundary; failures are classified into the feed status. A call while
// another cycle is outstanding returns ErrPollInProgress.
func (s *Service) Poll(ctx context.Context) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		s.logger.Warn("Poll requested while previous cycle still outstanding")
		return ErrPollInProgress
	}
	s.loading = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	raw, err := s.client.Fetch(ctx)
	if err != nil {
		s.setStatus(StatusReadFailed, fmt.Sprintf("feed unreachable: %v", err))
		return err
	}

	result, err := s.parser.Parse(raw)
	if err != nil {
		// Structural failure: tracked state is left untouched
		s.setStatus(StatusParsingFailed, fmt.Sprintf("payload invalid: %v", err))
		return err
	}

	if result.Status == StatusNoNewData {
		// Normal, expected outcome of polling a feed with a fixed server-side
		// update cadence
		s.setStatus(StatusNoNewData, fmt.Sprintf("no new data since %s", result.UpdatedAt.Format(time.RFC3339)))
		return nil
	}

	s.consumer.Apply(result)

	s.setStatus(StatusOk, fmt.Sprintf("parsed %d flights, %d stations (%d clients connected)",
		len(result.Flights), len(result.ATCUnits), result.ConnectedClients))

	s.logger.Debug("Poll cycle completed",
		logger.Int("flights", len(result.Flights)),
		logger.Int("atc_units", len(result.ATCUnits)),
		logger.Time("feed_update", result.UpdatedAt),
	)

	return nil
}

// Status returns the current status, its human-readable summary, and the
// completion time of the last cycle
func (s *Service) Status() (Status, string, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status, s.summary, s.lastCycle
}

func (s *Service) setStatus(status Status, summary string) {
	s.mu.Lock()
	changed := status != s.status
	s.status = status
	s.summary = summary
	s.lastCycle = time.Now().UTC()
	s.mu.Unlock()

	if changed && s.broadcaster != nil {
		s.broadcaster.Broadcast(&websocket.Message{
			Type: websocket.MessageTypeStatusUpdate,
			Data: map[string]any{
				"status": status.String(),
				"detail": summary,
			},
		})
	}
}
