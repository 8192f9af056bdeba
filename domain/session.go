package domain

import (
	"time"
)

// SessionStatus is the lifecycle state of an assessment session.
type SessionStatus string

const (
	// SessionStatusPending means the session was created but not started.
	SessionStatusPending SessionStatus = "pending"
	// SessionStatusActive means the participant is working on the assessment.
	SessionStatusActive SessionStatus = "active"
	// SessionStatusCompleted is the terminal success state.
	SessionStatusCompleted SessionStatus = "completed"
	// SessionStatusExpired is the terminal state for sessions past expiresAt.
	SessionStatusExpired SessionStatus = "expired"
	// SessionStatusSuspended is the terminal state for manual interventions.
	SessionStatusSuspended SessionStatus = "suspended"
)

// Session event type identifiers.
const (
	SessionCreatedEventType   = "SessionCreated"
	SessionStartedEventType   = "SessionStarted"
	ResponseRecordedEventType = "ResponseRecorded"
	PageCompletedEventType    = "PageCompleted"
	SessionCompletedEventType = "SessionCompleted"
	SessionExpiredEventType   = "SessionExpired"
	SessionSuspendedEventType = "SessionSuspended"
)

// SessionCreated records the creation of an assessment session.
type SessionCreated struct {
	ParticipantID string
	TemplateID    string
	Token         string
	ExpiresAt     time.Time
}

func (SessionCreated) IsEventType() string     { return SessionCreatedEventType }
func (SessionCreated) IsAggregateType() string { return AggregateTypeSession }

// SessionStarted records the transition from pending to active.
type SessionStarted struct {
	StartedAt time.Time
}

func (SessionStarted) IsEventType() string     { return SessionStartedEventType }
func (SessionStarted) IsAggregateType() string { return AggregateTypeSession }

// ResponseRecorded records one answer. Re-answering the same question emits a
// new event; the latest value wins during replay and in the projection.
type ResponseRecorded struct {
	QuestionID string
	Value      any
	AnsweredAt time.Time
}

func (ResponseRecorded) IsEventType() string     { return ResponseRecordedEventType }
func (ResponseRecorded) IsAggregateType() string { return AggregateTypeSession }

// PageCompleted records that the participant moved past a page. Page is the
// page the participant is on after the move.
type PageCompleted struct {
	Page int
}

func (PageCompleted) IsEventType() string     { return PageCompletedEventType }
func (PageCompleted) IsAggregateType() string { return AggregateTypeSession }

// SessionCompleted records the terminal success transition. FinalPage, when
// positive, pins currentPage to the template's page count; the command
// handler sets it when page completion ran past the last page.
type SessionCompleted struct {
	CompletedAt time.Time
	FinalPage   int
}

func (SessionCompleted) IsEventType() string     { return SessionCompletedEventType }
func (SessionCompleted) IsAggregateType() string { return AggregateTypeSession }

// SessionExpired records the transition into the expired terminal state.
type SessionExpired struct {
	ExpiredAt time.Time
}

func (SessionExpired) IsEventType() string     { return SessionExpiredEventType }
func (SessionExpired) IsAggregateType() string { return AggregateTypeSession }

// SessionSuspended records the transition into the suspended terminal state.
type SessionSuspended struct {
	Reason      string
	SuspendedAt time.Time
}

func (SessionSuspended) IsEventType() string     { return SessionSuspendedEventType }
func (SessionSuspended) IsAggregateType() string { return AggregateTypeSession }

// Session is the aggregate for one participant's run through an assessment.
//
// State machine: pending -> active -> completed, with alternate exits
// pending|active -> expired and pending|active -> suspended. Responses and
// page completion are only legal while active.
type Session struct {
	Root

	status        SessionStatus
	participantID string
	templateID    string
	token         string
	expiresAt     time.Time
	currentPage   int
	responses     map[string]any
}

// NewSession returns a fresh Session ready for replay.
func NewSession() *Session {
	return &Session{responses: make(map[string]any)}
}

// LoadSessionFromHistory replays persisted events into a fresh Session.
func LoadSessionFromHistory(history Events) (*Session, error) {
	s := NewSession()
	if err := replay(s, history); err != nil {
		return nil, err
	}

	return s, nil
}

// Create raises the creation event. The session expires expiresInHours after
// now; it starts out pending on page 0.
func (s *Session) Create(
	sessionID string,
	tenantID string,
	participantID string,
	templateID string,
	token string,
	expiresInHours int,
	now time.Time,
	metadata Metadata,
) error {

	if s.exists() {
		return NewError("Session already exists")
	}

	if expiresInHours <= 0 {
		return NewError("Expiry hours must be positive")
	}

	return raise(s, sessionID, tenantID, SessionCreated{
		ParticipantID: participantID,
		TemplateID:    templateID,
		Token:         token,
		ExpiresAt:     now.Add(time.Duration(expiresInHours) * time.Hour),
	}, now, metadata)
}

// Start transitions the session from pending to active and puts the
// participant on page 1. Expiry is checked before status so a stale session
// fails the same way regardless of its current state.
func (s *Session) Start(now time.Time, metadata Metadata) error {
	if !s.exists() {
		return NewError("Session does not exist")
	}

	if now.After(s.expiresAt) {
		return NewError("Session has expired")
	}

	if s.status != SessionStatusPending {
		return Errorf("Cannot start session in %s status", s.status)
	}

	return raise(s, s.id, s.tenantID, SessionStarted{StartedAt: now}, now, metadata)
}

// RecordResponse stores the participant's answer to one question.
func (s *Session) RecordResponse(questionID string, value any, now time.Time, metadata Metadata) error {
	if !s.exists() {
		return NewError("Session does not exist")
	}

	if s.status != SessionStatusActive {
		return Errorf("Cannot record response in %s status", s.status)
	}

	return raise(s, s.id, s.tenantID, ResponseRecorded{
		QuestionID: questionID,
		Value:      value,
		AnsweredAt: now,
	}, now, metadata)
}

// CompletePage moves the participant one page forward. Whether the new page
// is past the end of the template is decided by the command handler, which
// knows the template's page count; the aggregate deliberately does not.
func (s *Session) CompletePage(now time.Time, metadata Metadata) error {
	if !s.exists() {
		return NewError("Session does not exist")
	}

	if s.status != SessionStatusActive {
		return Errorf("Cannot complete page in %s status", s.status)
	}

	return raise(s, s.id, s.tenantID, PageCompleted{Page: s.currentPage + 1}, now, metadata)
}

// Complete transitions the session into the completed terminal state.
// finalPage > 0 pins currentPage (used when page completion ran past the last
// page); 0 leaves currentPage untouched.
func (s *Session) Complete(finalPage int, now time.Time, metadata Metadata) error {
	if !s.exists() {
		return NewError("Session does not exist")
	}

	if s.status != SessionStatusActive {
		return Errorf("Cannot complete session in %s status", s.status)
	}

	return raise(s, s.id, s.tenantID, SessionCompleted{
		CompletedAt: now,
		FinalPage:   finalPage,
	}, now, metadata)
}

// Expire transitions a pending or active session into the expired state.
func (s *Session) Expire(now time.Time, metadata Metadata) error {
	if !s.exists() {
		return NewError("Session does not exist")
	}

	if s.status != SessionStatusPending && s.status != SessionStatusActive {
		return Errorf("Cannot expire session in %s status", s.status)
	}

	return raise(s, s.id, s.tenantID, SessionExpired{ExpiredAt: now}, now, metadata)
}

// Suspend transitions a pending or active session into the suspended state.
func (s *Session) Suspend(reason string, now time.Time, metadata Metadata) error {
	if !s.exists() {
		return NewError("Session does not exist")
	}

	if s.status != SessionStatusPending && s.status != SessionStatusActive {
		return Errorf("Cannot suspend session in %s status", s.status)
	}

	return raise(s, s.id, s.tenantID, SessionSuspended{
		Reason:      reason,
		SuspendedAt: now,
	}, now, metadata)
}

// Status returns the current lifecycle state.
func (s *Session) Status() SessionStatus {
	return s.status
}

// TemplateID returns the assessment template this session runs against.
func (s *Session) TemplateID() string {
	return s.templateID
}

// Token returns the access token issued at creation.
func (s *Session) Token() string {
	return s.token
}

// ExpiresAt returns the expiry deadline.
func (s *Session) ExpiresAt() time.Time {
	return s.expiresAt
}

// CurrentPage returns the page the participant is on, 0 before start.
func (s *Session) CurrentPage() int {
	return s.currentPage
}

// Response returns the latest recorded value for a question.
func (s *Session) Response(questionID string) (any, bool) {
	value, ok := s.responses[questionID]
	return value, ok
}

func (s *Session) root() *Root {
	return &s.Root
}

func (s *Session) apply(event Event) error {
	switch payload := event.Payload.(type) {
	case SessionCreated:
		s.status = SessionStatusPending
		s.participantID = payload.ParticipantID
		s.templateID = payload.TemplateID
		s.token = payload.Token
		s.expiresAt = payload.ExpiresAt
		s.currentPage = 0
		if s.responses == nil {
			s.responses = make(map[string]any)
		}

	case SessionStarted:
		s.status = SessionStatusActive
		s.currentPage = 1

	case ResponseRecorded:
		s.responses[payload.QuestionID] = payload.Value

	case PageCompleted:
		s.currentPage = payload.Page

	case SessionCompleted:
		s.status = SessionStatusCompleted
		if payload.FinalPage > 0 {
			s.currentPage = payload.FinalPage
		}

	case SessionExpired:
		s.status = SessionStatusExpired

	case SessionSuspended:
		s.status = SessionStatusSuspended

	default:
		return Errorf("unhandled event type %s for Session", event.EventType)
	}

	return nil
}
