package domain

import (
	"regexp"
	"strings"
	"time"
)

// emailPattern is deliberately loose: some non-whitespace, an @, some
// non-whitespace, a dot, some non-whitespace. Real validation happens when
// mail is actually sent.
var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// Participant event type identifiers.
const (
	ParticipantRegisteredEventType  = "ParticipantRegistered"
	ParticipantUpdatedEventType     = "ParticipantUpdated"
	SessionAssignedEventType        = "SessionAssigned"
	ParticipantDeactivatedEventType = "ParticipantDeactivated"
)

// ParticipantRegistered records the registration of a participant. Email is
// stored lower-cased.
type ParticipantRegistered struct {
	Email     string
	FirstName string
	LastName  string
	CompanyID string
}

func (ParticipantRegistered) IsEventType() string     { return ParticipantRegisteredEventType }
func (ParticipantRegistered) IsAggregateType() string { return AggregateTypeParticipant }

// ParticipantUpdated records changes to participant details. Empty fields are
// unchanged.
type ParticipantUpdated struct {
	Email     string
	FirstName string
	LastName  string
}

func (ParticipantUpdated) IsEventType() string     { return ParticipantUpdatedEventType }
func (ParticipantUpdated) IsAggregateType() string { return AggregateTypeParticipant }

// SessionAssigned records an assessment session being assigned to the
// participant.
type SessionAssigned struct {
	SessionID  string
	AssignedAt time.Time
}

func (SessionAssigned) IsEventType() string     { return SessionAssignedEventType }
func (SessionAssigned) IsAggregateType() string { return AggregateTypeParticipant }

// ParticipantDeactivated records the transition into the deactivated terminal
// state.
type ParticipantDeactivated struct {
	Reason        string
	DeactivatedAt time.Time
}

func (ParticipantDeactivated) IsEventType() string     { return ParticipantDeactivatedEventType }
func (ParticipantDeactivated) IsAggregateType() string { return AggregateTypeParticipant }

// Participant is the aggregate for one person taking assessments. Deactivated
// participants keep their history but reject updates and new assignments.
type Participant struct {
	Root

	email       string
	firstName   string
	lastName    string
	companyID   string
	sessionIDs  []string
	deactivated bool
}

// NewParticipant returns a fresh Participant ready for replay.
func NewParticipant() *Participant {
	return &Participant{}
}

// LoadParticipantFromHistory replays persisted events into a fresh Participant.
func LoadParticipantFromHistory(history Events) (*Participant, error) {
	p := NewParticipant()
	if err := replay(p, history); err != nil {
		return nil, err
	}

	return p, nil
}

// Register raises the registration event. The email is validated and stored
// lower-cased so lookups are case-insensitive.
func (p *Participant) Register(
	participantID string,
	tenantID string,
	email string,
	firstName string,
	lastName string,
	companyID string,
	now time.Time,
	metadata Metadata,
) error {

	if p.exists() {
		return NewError("Participant already exists")
	}

	email = strings.ToLower(email)
	if !emailPattern.MatchString(email) {
		return NewError("Invalid email format")
	}

	return raise(p, participantID, tenantID, ParticipantRegistered{
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		CompanyID: companyID,
	}, now, metadata)
}

// Update changes participant details. Empty fields are left unchanged; a
// non-empty email is validated and lower-cased.
func (p *Participant) Update(email string, firstName string, lastName string, now time.Time, metadata Metadata) error {
	if !p.exists() {
		return NewError("Participant does not exist")
	}

	if p.deactivated {
		return NewError("Participant is deactivated")
	}

	if email != "" {
		email = strings.ToLower(email)
		if !emailPattern.MatchString(email) {
			return NewError("Invalid email format")
		}
	}

	return raise(p, p.id, p.tenantID, ParticipantUpdated{
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
	}, now, metadata)
}

// AssignSession records a session assignment. The same session is only
// assigned once.
func (p *Participant) AssignSession(sessionID string, now time.Time, metadata Metadata) error {
	if !p.exists() {
		return NewError("Participant does not exist")
	}

	if p.deactivated {
		return NewError("Participant is deactivated")
	}

	for _, assigned := range p.sessionIDs {
		if assigned == sessionID {
			return NewError("Session already assigned to participant")
		}
	}

	return raise(p, p.id, p.tenantID, SessionAssigned{
		SessionID:  sessionID,
		AssignedAt: now,
	}, now, metadata)
}

// Deactivate transitions the participant into the deactivated terminal state.
func (p *Participant) Deactivate(reason string, now time.Time, metadata Metadata) error {
	if !p.exists() {
		return NewError("Participant does not exist")
	}

	if p.deactivated {
		return NewError("Participant is deactivated")
	}

	return raise(p, p.id, p.tenantID, ParticipantDeactivated{
		Reason:        reason,
		DeactivatedAt: now,
	}, now, metadata)
}

// Email returns the lower-cased email address.
func (p *Participant) Email() string {
	return p.email
}

// FullName returns first and last name joined with a space.
func (p *Participant) FullName() string {
	return strings.TrimSpace(p.firstName + " " + p.lastName)
}

// CompanyID returns the company the participant belongs to.
func (p *Participant) CompanyID() string {
	return p.companyID
}

// SessionIDs returns the assigned sessions in assignment order.
func (p *Participant) SessionIDs() []string {
	ids := make([]string, len(p.sessionIDs))
	copy(ids, p.sessionIDs)
	return ids
}

// IsDeactivated reports whether the participant is in the terminal state.
func (p *Participant) IsDeactivated() bool {
	return p.deactivated
}

func (p *Participant) root() *Root {
	return &p.Root
}

func (p *Participant) apply(event Event) error {
	switch payload := event.Payload.(type) {
	case ParticipantRegistered:
		p.email = payload.Email
		p.firstName = payload.FirstName
		p.lastName = payload.LastName
		p.companyID = payload.CompanyID

	case ParticipantUpdated:
		if payload.Email != "" {
			p.email = payload.Email
		}
		if payload.FirstName != "" {
			p.firstName = payload.FirstName
		}
		if payload.LastName != "" {
			p.lastName = payload.LastName
		}

	case SessionAssigned:
		p.sessionIDs = append(p.sessionIDs, payload.SessionID)

	case ParticipantDeactivated:
		p.deactivated = true

	default:
		return Errorf("unhandled event type %s for Participant", event.EventType)
	}

	return nil
}
