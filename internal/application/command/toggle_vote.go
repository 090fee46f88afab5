package command

import (
	"context"
	"errors"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/expedition"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// TOGGLE EMERGENCY VOTE COMMAND
// Переключает голос участника за экстренное возвращение. Достижение кворума
// (строгое большинство) немедленно возвращает экспедицию в той же транзакции.
// ══════════════════════════════════════════════════════════════════════════════

// ToggleEmergencyVoteCommand содержит данные переключения голоса.
type ToggleEmergencyVoteCommand struct {
	ExpeditionID  string
	CharacterID   string
	CorrelationID string
}

// Validate проверяет корректность команды.
func (c ToggleEmergencyVoteCommand) Validate() error {
	if c.ExpeditionID == "" {
		return errors.New("toggle_vote: expedition_id is required")
	}
	if c.CharacterID == "" {
		return errors.New("toggle_vote: character_id is required")
	}
	return nil
}

// ToggleEmergencyVoteResult содержит итог голосования.
type ToggleEmergencyVoteResult struct {
	ExpeditionID string
	Vote         expedition.VoteResult

	// Returned - кворум достигнут и экспедиция возвращена этим же вызовом.
	Returned bool

	Events []shared.Event
}

// ToggleEmergencyVoteHandler обрабатывает ToggleEmergencyVoteCommand.
type ToggleEmergencyVoteHandler struct {
	expeditions    expedition.Store
	eventPublisher shared.EventPublisher
	clock          Clock
}

// NewToggleEmergencyVoteHandler создаёт новый обработчик.
func NewToggleEmergencyVoteHandler(
	expeditions expedition.Store,
	eventPublisher shared.EventPublisher,
	clock Clock,
) *ToggleEmergencyVoteHandler {
	return &ToggleEmergencyVoteHandler{
		expeditions:    expeditions,
		eventPublisher: eventPublisher,
		clock:          defaultClock(clock),
	}
}

// Handle выполняет переключение голоса.
func (h *ToggleEmergencyVoteHandler) Handle(ctx context.Context, cmd ToggleEmergencyVoteCommand) (*ToggleEmergencyVoteResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("expedition", "ToggleVote", shared.ErrValidation, err.Error(), err)
	}

	expeditionID, err := shared.NewExpeditionID(cmd.ExpeditionID)
	if err != nil {
		return nil, err
	}
	characterID, err := shared.NewCharacterID(cmd.CharacterID)
	if err != nil {
		return nil, err
	}

	now := h.clock()
	result := &ToggleEmergencyVoteResult{ExpeditionID: expeditionID.String()}
	var name, townID string

	err = h.expeditions.WithinTx(ctx, func(tx expedition.Tx) error {
		exp, err := tx.Get(ctx, expeditionID)
		if err != nil {
			return err
		}
		vote, err := exp.ToggleVote(characterID, now)
		if err != nil {
			return err
		}
		result.Vote = vote
		name = exp.Name
		townID = exp.TownID.String()

		if err := tx.SetVote(ctx, expeditionID, characterID, vote.Voted); err != nil {
			return err
		}

		// Кворум возвращает экспедицию немедленно, в этой же транзакции.
		if vote.ThresholdReached {
			result.Returned = true
			return finishReturn(ctx, tx, exp, now, shared.ReturnReasonEmergency)
		}
		return tx.Save(ctx, exp)
	})
	if err != nil {
		return nil, err
	}

	toggled := shared.NewEmergencyVoteToggledEvent(
		expeditionID.String(), characterID.String(),
		result.Vote.Voted, result.Vote.TotalVotes, result.Vote.MembersCount, result.Vote.ThresholdReached,
	)
	if cmd.CorrelationID != "" {
		toggled.BaseEvent = toggled.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, toggled)
	if result.Returned {
		result.Events = append(result.Events,
			shared.NewExpeditionReturnedEvent(expeditionID.String(), name, townID, shared.ReturnReasonEmergency))
	}
	for _, e := range result.Events {
		_ = h.eventPublisher.Publish(e)
	}

	return result, nil
}
