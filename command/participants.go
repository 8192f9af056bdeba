package command

import (
	"context"

	"github.com/probelab/assesscore/domain"
	"github.com/probelab/assesscore/eventstore"
	"github.com/probelab/assesscore/projection"
)

// ParticipantHandler handles all participant commands.
type ParticipantHandler struct {
	events eventstore.Store
	stores projection.Stores
	config handlerConfig
}

// NewParticipantHandler constructs a ParticipantHandler.
func NewParticipantHandler(
	events eventstore.Store,
	stores projection.Stores,
	options ...Option,
) (*ParticipantHandler, error) {

	config := defaultHandlerConfig()
	for _, option := range options {
		if err := option(&config); err != nil {
			return nil, err
		}
	}

	return &ParticipantHandler{
		events: events,
		stores: stores,
		config: config,
	}, nil
}

// RegisterParticipantCommand registers a participant under a company.
type RegisterParticipantCommand struct {
	ParticipantID string
	TenantID      string
	Email         string
	FirstName     string
	LastName      string
	CompanyID     string
	Metadata      domain.Metadata
}

// RegisterParticipant registers the participant and returns their id.
func (h *ParticipantHandler) RegisterParticipant(ctx context.Context, cmd RegisterParticipantCommand) (string, error) {
	participantID := newAggregateID(cmd.ParticipantID)

	err := h.config.run(ctx, "RegisterParticipant", func(ctx context.Context) error {
		participant, err := h.loadParticipant(ctx, participantID, cmd.TenantID)
		if err != nil {
			return err
		}

		if err := participant.Register(
			participantID, cmd.TenantID, cmd.Email, cmd.FirstName, cmd.LastName,
			cmd.CompanyID, h.config.now(), cmd.Metadata,
		); err != nil {
			return err
		}

		return commit(ctx, h.config, h.events, h.stores, participant)
	})
	if err != nil {
		return "", err
	}

	return participantID, nil
}

// UpdateParticipantCommand changes participant details; empty fields stay
// unchanged.
type UpdateParticipantCommand struct {
	ParticipantID string
	TenantID      string
	Email         string
	FirstName     string
	LastName      string
	Metadata      domain.Metadata
}

// UpdateParticipant updates the participant's details.
func (h *ParticipantHandler) UpdateParticipant(ctx context.Context, cmd UpdateParticipantCommand) error {
	return h.config.run(ctx, "UpdateParticipant", func(ctx context.Context) error {
		participant, err := h.loadParticipant(ctx, cmd.ParticipantID, cmd.TenantID)
		if err != nil {
			return err
		}

		if err := participant.Update(cmd.Email, cmd.FirstName, cmd.LastName, h.config.now(), cmd.Metadata); err != nil {
			return err
		}

		return commit(ctx, h.config, h.events, h.stores, participant)
	})
}

// AssignSessionCommand records a session assignment on the participant.
type AssignSessionCommand struct {
	ParticipantID string
	TenantID      string
	SessionID     string
	Metadata      domain.Metadata
}

// AssignSession assigns a session to the participant.
func (h *ParticipantHandler) AssignSession(ctx context.Context, cmd AssignSessionCommand) error {
	return h.config.run(ctx, "AssignSession", func(ctx context.Context) error {
		participant, err := h.loadParticipant(ctx, cmd.ParticipantID, cmd.TenantID)
		if err != nil {
			return err
		}

		if err := participant.AssignSession(cmd.SessionID, h.config.now(), cmd.Metadata); err != nil {
			return err
		}

		return commit(ctx, h.config, h.events, h.stores, participant)
	})
}

// DeactivateParticipantCommand deactivates the participant, terminally.
type DeactivateParticipantCommand struct {
	ParticipantID string
	TenantID      string
	Reason        string
	Metadata      domain.Metadata
}

// DeactivateParticipant transitions the participant into the deactivated
// state.
func (h *ParticipantHandler) DeactivateParticipant(ctx context.Context, cmd DeactivateParticipantCommand) error {
	return h.config.run(ctx, "DeactivateParticipant", func(ctx context.Context) error {
		participant, err := h.loadParticipant(ctx, cmd.ParticipantID, cmd.TenantID)
		if err != nil {
			return err
		}

		if err := participant.Deactivate(cmd.Reason, h.config.now(), cmd.Metadata); err != nil {
			return err
		}

		return commit(ctx, h.config, h.events, h.stores, participant)
	})
}

func (h *ParticipantHandler) loadParticipant(ctx context.Context, participantID string, tenantID string) (*domain.Participant, error) {
	history, err := loadHistory(ctx, h.events, participantID, tenantID)
	if err != nil {
		return nil, err
	}

	return domain.LoadParticipantFromHistory(history)
}
