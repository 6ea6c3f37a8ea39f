package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vatwatch/vatwatch/internal/websocket"
	"github.com/vatwatch/vatwatch/pkg/logger"
)

type recordingConsumer struct {
	applied atomic.Int32
	last    atomic.Pointer[Result]
}

func (c *recordingConsumer) Apply(result *Result) {
	c.applied.Add(1)
	c.last.Store(result)
}

func newFeedServer(t *testing.T, payloads ...string) *httptest.Server {
	t.Helper()
	var calls atomic.Int32
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1)) - 1
		if n >= len(payloads) {
			n = len(payloads) - 1
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(payloads[n]))
	}))
}

func newTestService(consumer Consumer, url string) *Service {
	client := NewClient(url, 5*time.Second, logger.NewNop())
	parser := NewParser(16, logger.NewNop())
	return NewService(client, parser, consumer, time.Hour, nil, logger.NewNop())
}

func TestServicePollOk(t *testing.T) {
	srv := newFeedServer(t, payload("20240115120000", pilotLine("ABC123", nil)))
	defer srv.Close()

	consumer := &recordingConsumer{}
	s := newTestService(consumer, srv.URL)

	require.NoError(t, s.Poll(context.Background()))

	status, summary, lastCycle := s.Status()
	assert.Equal(t, StatusOk, status)
	assert.Contains(t, summary, "1 flights")
	assert.False(t, lastCycle.IsZero())

	assert.Equal(t, int32(1), consumer.applied.Load())
	result := consumer.last.Load()
	require.NotNil(t, result)
	assert.Len(t, result.Flights, 1)
}

func TestServicePollNoNewDataSkipsConsumer(t *testing.T) {
	p := payload("20240115120000", pilotLine("ABC123", nil))
	srv := newFeedServer(t, p, p)
	defer srv.Close()

	consumer := &recordingConsumer{}
	s := newTestService(consumer, srv.URL)

	require.NoError(t, s.Poll(context.Background()))
	require.NoError(t, s.Poll(context.Background()))

	// The repeated payload is not applied to the tracked state
	assert.Equal(t, int32(1), consumer.applied.Load())

	status, _, _ := s.Status()
	assert.Equal(t, StatusNoNewData, status)
}

func TestServicePollReadFailed(t *testing.T) {
	srv := newFeedServer(t, "ignored")
	srv.Close() // connection refused from here on

	consumer := &recordingConsumer{}
	s := newTestService(consumer, srv.URL)

	assert.Error(t, s.Poll(context.Background()))

	status, _, _ := s.Status()
	assert.Equal(t, StatusReadFailed, status)
	assert.Equal(t, int32(0), consumer.applied.Load())
}

func TestServicePollHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := newTestService(&recordingConsumer{}, srv.URL)

	assert.Error(t, s.Poll(context.Background()))
	status, _, _ := s.Status()
	assert.Equal(t, StatusReadFailed, status)
}

func TestServicePollParsingFailed(t *testing.T) {
	srv := newFeedServer(t, "!GENERAL:\nVERSION = 8\n") // no UPDATE field
	defer srv.Close()

	consumer := &recordingConsumer{}
	s := newTestService(consumer, srv.URL)

	assert.Error(t, s.Poll(context.Background()))

	status, _, _ := s.Status()
	assert.Equal(t, StatusParsingFailed, status)
	assert.Equal(t, int32(0), consumer.applied.Load())
}

func TestServiceInitialStatus(t *testing.T) {
	s := newTestService(&recordingConsumer{}, "http://127.0.0.1:0")

	status, summary, lastCycle := s.Status()
	assert.Equal(t, StatusInit, status)
	assert.NotEmpty(t, summary)
	assert.True(t, lastCycle.IsZero())
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []*websocket.Message
}

func (b *recordingBroadcaster) Broadcast(message *websocket.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, message)
}

func (b *recordingBroadcaster) all() []*websocket.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*websocket.Message(nil), b.messages...)
}

func TestServiceBroadcastsStatusTransitions(t *testing.T) {
	p1 := payload("20240115120000", pilotLine("ABC123", nil))
	srv := newFeedServer(t, p1, p1, p1)
	defer srv.Close()

	broadcaster := &recordingBroadcaster{}
	client := NewClient(srv.URL, 5*time.Second, logger.NewNop())
	parser := NewParser(16, logger.NewNop())
	s := NewService(client, parser, &recordingConsumer{}, time.Hour, broadcaster, logger.NewNop())

	// Init -> Ok
	require.NoError(t, s.Poll(context.Background()))
	// Ok -> NoNewData
	require.NoError(t, s.Poll(context.Background()))
	// NoNewData again: no transition, no message
	require.NoError(t, s.Poll(context.Background()))

	messages := broadcaster.all()
	require.Len(t, messages, 2)
	assert.Equal(t, websocket.MessageTypeStatusUpdate, messages[0].Type)
	assert.Equal(t, StatusOk.String(), messages[0].Data["status"])
	assert.Equal(t, StatusNoNewData.String(), messages[1].Data["status"])
	assert.NotEmpty(t, messages[1].Data["detail"])
}

type blockingConsumer struct {
	entered chan struct{}
	release chan struct{}
}

func (c *blockingConsumer) Apply(result *Result) {
	close(c.entered)
	<-c.release
}

func TestServicePollOverlapRejected(t *testing.T) {
	srv := newFeedServer(t, payload("20240115120000", pilotLine("ABC123", nil)))
	defer srv.Close()

	consumer := &blockingConsumer{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := newTestService(consumer, srv.URL)

	done := make(chan error, 1)
	go func() { done <- s.Poll(context.Background()) }()

	<-consumer.entered

	// A second poll while the first is still applying is refused
	err := s.Poll(context.Background())
	assert.ErrorIs(t, err, ErrPollInProgress)

	close(consumer.release)
	require.NoError(t, <-done)

	// With the first cycle complete, polling works again
	assert.NoError(t, s.Poll(context.Background()))
}
