package command

import (
	"context"
	"errors"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/expedition"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SET DIRECTION COMMAND
// Фиксирует направление текущего дня от имени участника. Первый выбор дня
// побеждает; в последний день пути выбор закрыт.
// ══════════════════════════════════════════════════════════════════════════════

// SetDirectionCommand содержит данные выбора направления.
type SetDirectionCommand struct {
	ExpeditionID  string
	CharacterID   string
	Direction     string
	CorrelationID string
}

// Validate проверяет корректность команды.
func (c SetDirectionCommand) Validate() error {
	if c.ExpeditionID == "" {
		return errors.New("set_direction: expedition_id is required")
	}
	if c.CharacterID == "" {
		return errors.New("set_direction: character_id is required")
	}
	if c.Direction == "" {
		return errors.New("set_direction: direction is required")
	}
	return nil
}

// SetDirectionResult содержит результат выбора.
type SetDirectionResult struct {
	ExpeditionID string
	Direction    expedition.Direction
	Events       []shared.Event
}

// SetDirectionHandler обрабатывает SetDirectionCommand.
type SetDirectionHandler struct {
	expeditions    expedition.Store
	eventPublisher shared.EventPublisher
	clock          Clock
}

// NewSetDirectionHandler создаёт новый обработчик.
func NewSetDirectionHandler(
	expeditions expedition.Store,
	eventPublisher shared.EventPublisher,
	clock Clock,
) *SetDirectionHandler {
	return &SetDirectionHandler{
		expeditions:    expeditions,
		eventPublisher: eventPublisher,
		clock:          defaultClock(clock),
	}
}

// Handle выполняет выбор направления.
func (h *SetDirectionHandler) Handle(ctx context.Context, cmd SetDirectionCommand) (*SetDirectionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("expedition", "SetDirection", shared.ErrValidation, err.Error(), err)
	}

	expeditionID, err := shared.NewExpeditionID(cmd.ExpeditionID)
	if err != nil {
		return nil, err
	}
	characterID, err := shared.NewCharacterID(cmd.CharacterID)
	if err != nil {
		return nil, err
	}
	direction, err := expedition.ParseDirection(cmd.Direction)
	if err != nil {
		return nil, err
	}

	now := h.clock()

	err = h.expeditions.WithinTx(ctx, func(tx expedition.Tx) error {
		exp, err := tx.Get(ctx, expeditionID)
		if err != nil {
			return err
		}
		if err := exp.SetDirection(direction, characterID, now); err != nil {
			return err
		}
		return tx.Save(ctx, exp)
	})
	if err != nil {
		return nil, err
	}

	event := shared.NewDirectionSetEvent(expeditionID.String(), direction.String(), characterID.String())
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.eventPublisher.Publish(event)

	return &SetDirectionResult{
		ExpeditionID: expeditionID.String(),
		Direction:    direction,
		Events:       []shared.Event{event},
	}, nil
}
