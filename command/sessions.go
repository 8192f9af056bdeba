package command

import (
	"context"
	"errors"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/probelab/assesscore/catalog"
	"github.com/probelab/assesscore/domain"
	"github.com/probelab/assesscore/eventstore"
	"github.com/probelab/assesscore/projection"
)

// ErrSessionNotFound is returned when a token does not resolve to a session.
var ErrSessionNotFound = domain.NewError("Session not found")

const sessionTokenLength = 21

// SessionHandler handles all session commands.
type SessionHandler struct {
	events  eventstore.Store
	stores  projection.Stores
	catalog catalog.TemplateCatalog
	config  handlerConfig
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(
	events eventstore.Store,
	stores projection.Stores,
	templateCatalog catalog.TemplateCatalog,
	options ...Option,
) (*SessionHandler, error) {

	config := defaultHandlerConfig()
	for _, option := range options {
		if err := option(&config); err != nil {
			return nil, err
		}
	}

	return &SessionHandler{
		events:  events,
		stores:  stores,
		catalog: templateCatalog,
		config:  config,
	}, nil
}

// CreateSessionCommand creates a new assessment session for a participant.
// SessionID is optional; a fresh one is generated when empty.
type CreateSessionCommand struct {
	SessionID      string
	TenantID       string
	ParticipantID  string
	TemplateID     string
	ExpiresInHours int
	Metadata       domain.Metadata
}

// CreatedSession is the result of CreateSession: the id under which the
// session was stored and the access token issued for the participant.
type CreatedSession struct {
	SessionID string
	Token     string
}

// CreateSession creates the session and issues its access token. The template
// must exist in the catalog; an unknown template fails before any event is
// written.
func (h *SessionHandler) CreateSession(ctx context.Context, cmd CreateSessionCommand) (CreatedSession, error) {
	if _, err := h.catalog.Template(ctx, cmd.TemplateID, cmd.TenantID); err != nil {
		return CreatedSession{}, err
	}

	sessionID := newAggregateID(cmd.SessionID)

	var result CreatedSession

	err := h.config.run(ctx, "CreateSession", func(ctx context.Context) error {
		token, err := gonanoid.New(sessionTokenLength)
		if err != nil {
			return fmt.Errorf("generating session token: %w", err)
		}

		history, err := loadHistory(ctx, h.events, sessionID, cmd.TenantID)
		if err != nil {
			return err
		}

		session, err := domain.LoadSessionFromHistory(history)
		if err != nil {
			return err
		}

		if err := session.Create(
			sessionID, cmd.TenantID, cmd.ParticipantID, cmd.TemplateID,
			token, cmd.ExpiresInHours, h.config.now(), cmd.Metadata,
		); err != nil {
			return err
		}

		if err := commit(ctx, h.config, h.events, h.stores, session); err != nil {
			return err
		}

		result = CreatedSession{SessionID: sessionID, Token: token}

		return nil
	})
	if err != nil {
		return CreatedSession{}, err
	}

	return result, nil
}

// StartSessionCommand starts a pending session. Either SessionID or Token
// must be set; participant-facing callers only hold the token.
type StartSessionCommand struct {
	SessionID string
	Token     string
	TenantID  string
	Metadata  domain.Metadata
}

// StartSession transitions the session from pending to active.
func (h *SessionHandler) StartSession(ctx context.Context, cmd StartSessionCommand) error {
	return h.config.run(ctx, "StartSession", func(ctx context.Context) error {
		session, err := h.loadSession(ctx, cmd.SessionID, cmd.Token, cmd.TenantID)
		if err != nil {
			return err
		}

		if err := session.Start(h.config.now(), cmd.Metadata); err != nil {
			return err
		}

		return commit(ctx, h.config, h.events, h.stores, session)
	})
}

// RecordResponseCommand records one answer in an active session.
type RecordResponseCommand struct {
	SessionID  string
	Token      string
	TenantID   string
	QuestionID string
	Value      any
	Metadata   domain.Metadata
}

// RecordResponse stores the participant's answer to one question. Re-answering
// emits a new event; the projection keeps only the latest value.
func (h *SessionHandler) RecordResponse(ctx context.Context, cmd RecordResponseCommand) error {
	return h.config.run(ctx, "RecordResponse", func(ctx context.Context) error {
		session, err := h.loadSession(ctx, cmd.SessionID, cmd.Token, cmd.TenantID)
		if err != nil {
			return err
		}

		if err := session.RecordResponse(cmd.QuestionID, cmd.Value, h.config.now(), cmd.Metadata); err != nil {
			return err
		}

		return commit(ctx, h.config, h.events, h.stores, session)
	})
}

// CompletePageCommand moves the participant one page forward.
type CompletePageCommand struct {
	SessionID string
	Token     string
	TenantID  string
	Metadata  domain.Metadata
}

// CompletePage advances the session one page. When the new page runs past the
// template's last page, the session is completed in the same command with its
// current page pinned to the template's page count.
func (h *SessionHandler) CompletePage(ctx context.Context, cmd CompletePageCommand) error {
	return h.config.run(ctx, "CompletePage", func(ctx context.Context) error {
		session, err := h.loadSession(ctx, cmd.SessionID, cmd.Token, cmd.TenantID)
		if err != nil {
			return err
		}

		now := h.config.now()

		if err := session.CompletePage(now, cmd.Metadata); err != nil {
			return err
		}

		template, err := h.catalog.Template(ctx, session.TemplateID(), session.TenantID())
		if err != nil {
			return err
		}

		if session.CurrentPage() > template.PageCount {
			if err := session.Complete(template.PageCount, now, cmd.Metadata); err != nil {
				return err
			}
		}

		return commit(ctx, h.config, h.events, h.stores, session)
	})
}

// CompleteSessionCommand completes an active session directly, without
// walking the remaining pages.
type CompleteSessionCommand struct {
	SessionID string
	Token     string
	TenantID  string
	Metadata  domain.Metadata
}

// CompleteSession transitions the session into the completed terminal state.
func (h *SessionHandler) CompleteSession(ctx context.Context, cmd CompleteSessionCommand) error {
	return h.config.run(ctx, "CompleteSession", func(ctx context.Context) error {
		session, err := h.loadSession(ctx, cmd.SessionID, cmd.Token, cmd.TenantID)
		if err != nil {
			return err
		}

		if err := session.Complete(0, h.config.now(), cmd.Metadata); err != nil {
			return err
		}

		return commit(ctx, h.config, h.events, h.stores, session)
	})
}

// ExpireSessionCommand expires a stale session. This is an operator/scheduler
// command addressed by session id.
type ExpireSessionCommand struct {
	SessionID string
	TenantID  string
	Metadata  domain.Metadata
}

// ExpireSession transitions a pending or active session into the expired state.
func (h *SessionHandler) ExpireSession(ctx context.Context, cmd ExpireSessionCommand) error {
	return h.config.run(ctx, "ExpireSession", func(ctx context.Context) error {
		session, err := h.loadSession(ctx, cmd.SessionID, "", cmd.TenantID)
		if err != nil {
			return err
		}

		if err := session.Expire(h.config.now(), cmd.Metadata); err != nil {
			return err
		}

		return commit(ctx, h.config, h.events, h.stores, session)
	})
}

// SuspendSessionCommand suspends a session for manual intervention.
type SuspendSessionCommand struct {
	SessionID string
	TenantID  string
	Reason    string
	Metadata  domain.Metadata
}

// SuspendSession transitions a pending or active session into the suspended
// state.
func (h *SessionHandler) SuspendSession(ctx context.Context, cmd SuspendSessionCommand) error {
	return h.config.run(ctx, "SuspendSession", func(ctx context.Context) error {
		session, err := h.loadSession(ctx, cmd.SessionID, "", cmd.TenantID)
		if err != nil {
			return err
		}

		if err := session.Suspend(cmd.Reason, h.config.now(), cmd.Metadata); err != nil {
			return err
		}

		return commit(ctx, h.config, h.events, h.stores, session)
	})
}

// loadSession resolves the session id (directly or via token lookup in the
// projection, since tokens are not event store keys), then loads and replays
// the full history.
func (h *SessionHandler) loadSession(ctx context.Context, sessionID string, token string, tenantID string) (*domain.Session, error) {
	if sessionID == "" {
		doc, err := h.stores.Sessions.GetByToken(ctx, token, tenantID)
		if err != nil {
			if errors.Is(err, projection.ErrDocumentNotFound) {
				return nil, ErrSessionNotFound
			}

			return nil, err
		}

		sessionID = doc.SessionID
	}

	history, err := loadHistory(ctx, h.events, sessionID, tenantID)
	if err != nil {
		return nil, err
	}

	return domain.LoadSessionFromHistory(history)
}
