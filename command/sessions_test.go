package command_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/assesscore/catalog"
	"github.com/probelab/assesscore/command"
	"github.com/probelab/assesscore/domain"
	"github.com/probelab/assesscore/eventstore"
	"github.com/probelab/assesscore/eventstore/memoryengine"
	"github.com/probelab/assesscore/projection"
	"github.com/probelab/assesscore/projection/memorystore"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func newProjectionStores() projection.Stores {
	return projection.Stores{
		Sessions:     memorystore.NewSessionStore(),
		LicensePools: memorystore.NewLicensePoolStore(),
		Companies:    memorystore.NewCompanyStore(),
		Products:     memorystore.NewProductStore(),
		Participants: memorystore.NewParticipantStore(),
	}
}

func newThreePageCatalog(tenantID string) *catalog.MemoryCatalog {
	return catalog.NewMemoryCatalog(catalog.Template{
		TemplateID: "tmpl-1",
		TenantID:   tenantID,
		Name:       "Leadership 360",
		PageCount:  3,
		Questions: []catalog.Question{
			{QuestionID: "q1", Page: 1, Text: "How do you rate yourself?"},
			{QuestionID: "q2", Page: 2, Text: "How do others rate you?"},
			{QuestionID: "q3", Page: 3, Text: "Anything else?"},
		},
	})
}

type sessionRig struct {
	handler  *command.SessionHandler
	events   *memoryengine.EventStore
	stores   projection.Stores
	clock    *testClock
	tenantID string
}

func newSessionRig(t *testing.T) *sessionRig {
	t.Helper()

	tenantID := uuid.NewString()
	events := memoryengine.NewEventStore()
	stores := newProjectionStores()
	clock := newTestClock()

	handler, err := command.NewSessionHandler(
		events, stores, newThreePageCatalog(tenantID),
		command.WithClock(clock.Now),
		command.WithRetry(command.WithBaseDelay(time.Millisecond)),
	)
	require.NoError(t, err)

	return &sessionRig{
		handler:  handler,
		events:   events,
		stores:   stores,
		clock:    clock,
		tenantID: tenantID,
	}
}

func (r *sessionRig) createSession(t *testing.T) command.CreatedSession {
	t.Helper()

	created, err := r.handler.CreateSession(context.Background(), command.CreateSessionCommand{
		TenantID:       r.tenantID,
		ParticipantID:  uuid.NewString(),
		TemplateID:     "tmpl-1",
		ExpiresInHours: 72,
	})
	require.NoError(t, err)

	return created
}

func Test_SessionHandler_CreateSession(t *testing.T) {
	// arrange
	rig := newSessionRig(t)

	// act
	created := rig.createSession(t)

	// assert
	assert.NotEmpty(t, created.SessionID)
	assert.Len(t, created.Token, 21)

	doc, err := rig.stores.Sessions.GetSession(context.Background(), created.SessionID, rig.tenantID)
	assert.NoError(t, err)
	assert.Equal(t, domain.SessionStatusPending, doc.Status)
	assert.Equal(t, 0, doc.CurrentPage)
	assert.Equal(t, created.Token, doc.Token)

	byToken, err := rig.stores.Sessions.GetByToken(context.Background(), created.Token, rig.tenantID)
	assert.NoError(t, err)
	assert.Equal(t, created.SessionID, byToken.SessionID)
}

func Test_SessionHandler_CreateSession_FailsForUnknownTemplate(t *testing.T) {
	// arrange
	rig := newSessionRig(t)

	// act
	_, err := rig.handler.CreateSession(context.Background(), command.CreateSessionCommand{
		TenantID:       rig.tenantID,
		ParticipantID:  uuid.NewString(),
		TemplateID:     "no-such-template",
		ExpiresInHours: 72,
	})

	// assert - nothing was written
	assert.ErrorIs(t, err, catalog.ErrTemplateNotFound)
	all, err := rig.events.AllEventsAfterSequence(context.Background(), 0, 10)
	assert.NoError(t, err)
	assert.Empty(t, all)
}

func Test_SessionHandler_FullFlow_CompletesPastLastPage(t *testing.T) {
	// arrange
	rig := newSessionRig(t)
	ctx := context.Background()
	created := rig.createSession(t)

	// act - the participant works through the whole 3-page template by token
	require.NoError(t, rig.handler.StartSession(ctx, command.StartSessionCommand{
		Token: created.Token, TenantID: rig.tenantID,
	}))

	require.NoError(t, rig.handler.RecordResponse(ctx, command.RecordResponseCommand{
		Token: created.Token, TenantID: rig.tenantID, QuestionID: "q1", Value: 2,
	}))
	require.NoError(t, rig.handler.RecordResponse(ctx, command.RecordResponseCommand{
		Token: created.Token, TenantID: rig.tenantID, QuestionID: "q1", Value: 5,
	}))

	for i := 0; i < 3; i++ {
		require.NoError(t, rig.handler.CompletePage(ctx, command.CompletePageCommand{
			Token: created.Token, TenantID: rig.tenantID,
		}))
	}

	// assert - the last page completion also completed the session
	doc, err := rig.stores.Sessions.GetSession(ctx, created.SessionID, rig.tenantID)
	assert.NoError(t, err)
	assert.Equal(t, domain.SessionStatusCompleted, doc.Status)
	assert.Equal(t, 3, doc.CurrentPage)
	assert.NotNil(t, doc.CompletedAt)
	assert.Equal(t, float64(5), toFloat(doc.Responses["q1"].Value))

	// a completed session rejects further pages
	err = rig.handler.CompletePage(ctx, command.CompletePageCommand{
		Token: created.Token, TenantID: rig.tenantID,
	})
	assert.ErrorContains(t, err, "Cannot complete page in completed status")
}

// toFloat normalizes numeric response values; decoding JSON turns ints into
// float64.
func toFloat(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return -1
	}
}

func Test_SessionHandler_StartSession_UnknownToken(t *testing.T) {
	// arrange
	rig := newSessionRig(t)

	// act
	err := rig.handler.StartSession(context.Background(), command.StartSessionCommand{
		Token: "bogus-token", TenantID: rig.tenantID,
	})

	// assert
	assert.ErrorIs(t, err, command.ErrSessionNotFound)
	assert.ErrorContains(t, err, "Session not found")
}

func Test_SessionHandler_StartSession_FailsAfterExpiry(t *testing.T) {
	// arrange
	rig := newSessionRig(t)
	created := rig.createSession(t)

	// act - 73 hours later
	rig.clock.Advance(73 * time.Hour)
	err := rig.handler.StartSession(context.Background(), command.StartSessionCommand{
		Token: created.Token, TenantID: rig.tenantID,
	})

	// assert
	assert.ErrorContains(t, err, "Session has expired")
	assert.True(t, domain.IsDomainError(err))
}

func Test_SessionHandler_TokenIsTenantScoped(t *testing.T) {
	// arrange
	rig := newSessionRig(t)
	created := rig.createSession(t)

	// act - the right token in the wrong tenant resolves nothing
	err := rig.handler.StartSession(context.Background(), command.StartSessionCommand{
		Token: created.Token, TenantID: uuid.NewString(),
	})

	// assert
	assert.ErrorIs(t, err, command.ErrSessionNotFound)
}

// conflictingStore wraps a real store and fails the first n appends with a
// version conflict, simulating a concurrent writer.
type conflictingStore struct {
	eventstore.Store

	mu        sync.Mutex
	remaining int
	conflicts int
}

func (s *conflictingStore) Append(ctx context.Context, event eventstore.StoredEvent) error {
	s.mu.Lock()
	if s.remaining > 0 {
		s.remaining--
		s.conflicts++
		s.mu.Unlock()

		return eventstore.ErrVersionConflict
	}
	s.mu.Unlock()

	return s.Store.Append(ctx, event)
}

func Test_SessionHandler_RetriesWholeCommandOnVersionConflict(t *testing.T) {
	// arrange
	tenantID := uuid.NewString()
	inner := memoryengine.NewEventStore()
	store := &conflictingStore{Store: inner, remaining: 2}
	stores := newProjectionStores()
	clock := newTestClock()

	handler, err := command.NewSessionHandler(
		store, stores, newThreePageCatalog(tenantID),
		command.WithClock(clock.Now),
		command.WithRetry(command.WithBaseDelay(time.Millisecond), command.WithJitterFactor(0)),
	)
	require.NoError(t, err)

	// act
	created, err := handler.CreateSession(context.Background(), command.CreateSessionCommand{
		TenantID:       tenantID,
		ParticipantID:  uuid.NewString(),
		TemplateID:     "tmpl-1",
		ExpiresInHours: 72,
	})

	// assert - the command succeeded after two simulated conflicts and the
	// event actually written carries the final attempt's id
	assert.NoError(t, err)
	assert.Equal(t, 2, store.conflicts)

	history, err := inner.Events(context.Background(), created.SessionID, tenantID)
	assert.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Equal(t, int64(1), history[0].Version)
}

func Test_SessionHandler_RetryExhaustionSurfacesConflict(t *testing.T) {
	// arrange
	tenantID := uuid.NewString()
	store := &conflictingStore{Store: memoryengine.NewEventStore(), remaining: 100}
	clock := newTestClock()

	handler, err := command.NewSessionHandler(
		store, newProjectionStores(), newThreePageCatalog(tenantID),
		command.WithClock(clock.Now),
		command.WithRetry(
			command.WithMaxAttempts(3),
			command.WithBaseDelay(time.Millisecond),
			command.WithJitterFactor(0),
		),
	)
	require.NoError(t, err)

	// act
	_, err = handler.CreateSession(context.Background(), command.CreateSessionCommand{
		TenantID:       tenantID,
		ParticipantID:  uuid.NewString(),
		TemplateID:     "tmpl-1",
		ExpiresInHours: 72,
	})

	// assert
	assert.ErrorIs(t, err, eventstore.ErrVersionConflict)
	assert.Equal(t, 3, store.conflicts)
}

func Test_SessionHandler_SuspendAndExpire(t *testing.T) {
	// arrange
	rig := newSessionRig(t)
	ctx := context.Background()

	suspended := rig.createSession(t)
	expired := rig.createSession(t)

	// act
	require.NoError(t, rig.handler.SuspendSession(ctx, command.SuspendSessionCommand{
		SessionID: suspended.SessionID, TenantID: rig.tenantID, Reason: "cheating suspected",
	}))
	require.NoError(t, rig.handler.ExpireSession(ctx, command.ExpireSessionCommand{
		SessionID: expired.SessionID, TenantID: rig.tenantID,
	}))

	// assert
	suspendedDoc, err := rig.stores.Sessions.GetSession(ctx, suspended.SessionID, rig.tenantID)
	assert.NoError(t, err)
	assert.Equal(t, domain.SessionStatusSuspended, suspendedDoc.Status)
	assert.Equal(t, "cheating suspected", suspendedDoc.SuspendedReason)

	expiredDoc, err := rig.stores.Sessions.GetSession(ctx, expired.SessionID, rig.tenantID)
	assert.NoError(t, err)
	assert.Equal(t, domain.SessionStatusExpired, expiredDoc.Status)
}
