package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"gatherhall/internal/platform/config"
	"gatherhall/internal/vetting/models"
	id "gatherhall/pkg/domain"
)

// recordingSender fails the first failures attempts, then succeeds.
type recordingSender struct {
	mu       sync.Mutex
	failures int
	sent     []Message
	attempts int
	done     chan struct{}
}

func newRecordingSender(failures int) *recordingSender {
	return &recordingSender{failures: failures, done: make(chan struct{}, 16)}
}

func (r *recordingSender) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
	if r.attempts <= r.failures {
		return errors.New("smtp unavailable")
	}
	r.sent = append(r.sent, msg)
	r.done <- struct{}{}
	return nil
}

func (r *recordingSender) sentMessages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.sent...)
}

func (r *recordingSender) attemptCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

type DispatcherSuite struct {
	suite.Suite
	app *models.Application
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) SetupTest() {
	s.app = &models.Application{
		ID:        id.NewApplicationID(),
		SceneName: "RavenWing",
		Email:     "jane@example.org",
	}
}

func (s *DispatcherSuite) newDispatcher(sender Sender, cfg config.NotifyConfig) *Dispatcher {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDispatcher(sender, logger, nil, cfg)
}

func (s *DispatcherSuite) TestDeliversRenderedMessage() {
	sender := newRecordingSender(0)
	d := s.newDispatcher(sender, config.NotifyConfig{QueueSize: 8})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Dispatch(ctx, s.app, models.StatusApproved)

	select {
	case <-sender.done:
	case <-time.After(2 * time.Second):
		s.FailNow("notification was not delivered")
	}

	sent := sender.sentMessages()
	s.Require().Len(sent, 1)
	s.Equal(s.app.ID, sent[0].ApplicationID)
	s.Equal("jane@example.org", sent[0].Recipient)
	s.Equal(models.StatusApproved, sent[0].NewStatus)
	s.Contains(sent[0].Body, "RavenWing", "applicant name substituted into the body")
	s.NotContains(sent[0].Body, "{{applicant_name}}")
}

func (s *DispatcherSuite) TestRetriesThenSucceeds() {
	sender := newRecordingSender(2)
	d := s.newDispatcher(sender, config.NotifyConfig{
		QueueSize:  8,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Dispatch(ctx, s.app, models.StatusOnHold)

	select {
	case <-sender.done:
	case <-time.After(2 * time.Second):
		s.FailNow("notification was not delivered after retries")
	}

	s.Equal(3, sender.attemptCount(), "two failures then success")
	s.Len(sender.sentMessages(), 1)
}

func (s *DispatcherSuite) TestStatusesOutsideDispatchSubsetAreSkipped() {
	sender := newRecordingSender(0)
	d := s.newDispatcher(sender, config.NotifyConfig{QueueSize: 8})

	d.Dispatch(context.Background(), s.app, models.StatusUnderReview)
	d.Dispatch(context.Background(), s.app, models.StatusWithdrawn)

	s.Equal(0, sender.attemptCount())
	s.Empty(d.inbox, "nothing enqueued for non-notifying statuses")
}

func (s *DispatcherSuite) TestFullQueueDropsWithoutBlocking() {
	sender := newRecordingSender(0)
	d := s.newDispatcher(sender, config.NotifyConfig{QueueSize: 1})

	// No Run loop consuming: the second dispatch must not block.
	done := make(chan struct{})
	go func() {
		d.Dispatch(context.Background(), s.app, models.StatusApproved)
		d.Dispatch(context.Background(), s.app, models.StatusDenied)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		s.FailNow("Dispatch blocked on a full queue")
	}
	s.Len(d.inbox, 1)
}

func TestTemplates(t *testing.T) {
	t.Run("dispatch subset has templates", func(t *testing.T) {
		for _, status := range []models.Status{
			models.StatusInterviewApproved,
			models.StatusFinalReview,
			models.StatusApproved,
			models.StatusOnHold,
			models.StatusDenied,
		} {
			_, ok := TemplateFor(status)
			assert.True(t, ok, "expected template for %s", status)
		}
	})

	t.Run("submission and withdrawal do not notify", func(t *testing.T) {
		_, ok := TemplateFor(models.StatusUnderReview)
		assert.False(t, ok)
		_, ok = TemplateFor(models.StatusWithdrawn)
		assert.False(t, ok)
	})

	t.Run("render substitutes the applicant name", func(t *testing.T) {
		tmpl, ok := TemplateFor(models.StatusApproved)
		require.True(t, ok)
		_, body := tmpl.Render("Raven")
		assert.Contains(t, body, "Hi Raven,")
	})
}

func TestDisplayName(t *testing.T) {
	withScene := &models.Application{SceneName: "Raven", Email: "jane.doe@example.org"}
	assert.Equal(t, "Raven", DisplayName(withScene))

	withoutScene := &models.Application{Email: "jane.doe@example.org"}
	assert.Equal(t, "Jane", DisplayName(withoutScene))
}
