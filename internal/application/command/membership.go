package command

import (
	"context"
	"errors"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/character"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/expedition"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// JOIN / LEAVE EXPEDITION COMMANDS
// Обычное членство открыто только в PLANNING. Выход последнего участника в
// PLANNING распускает экспедицию: ресурсы сливаются обратно в город, статус
// становится RETURNED.
// ══════════════════════════════════════════════════════════════════════════════

// JoinExpeditionCommand содержит данные для вступления.
type JoinExpeditionCommand struct {
	ExpeditionID  string
	CharacterID   string
	CorrelationID string
}

// Validate проверяет корректность команды.
func (c JoinExpeditionCommand) Validate() error {
	if c.ExpeditionID == "" {
		return errors.New("join_expedition: expedition_id is required")
	}
	if c.CharacterID == "" {
		return errors.New("join_expedition: character_id is required")
	}
	return nil
}

// JoinExpeditionResult содержит результат вступления.
type JoinExpeditionResult struct {
	ExpeditionID string
	MembersCount int
	Events       []shared.Event
}

// JoinExpeditionHandler обрабатывает JoinExpeditionCommand.
type JoinExpeditionHandler struct {
	expeditions    expedition.Store
	characters     character.Store
	eventPublisher shared.EventPublisher
	clock          Clock
}

// NewJoinExpeditionHandler создаёт новый обработчик.
func NewJoinExpeditionHandler(
	expeditions expedition.Store,
	characters character.Store,
	eventPublisher shared.EventPublisher,
	clock Clock,
) *JoinExpeditionHandler {
	return &JoinExpeditionHandler{
		expeditions:    expeditions,
		characters:     characters,
		eventPublisher: eventPublisher,
		clock:          defaultClock(clock),
	}
}

// Handle выполняет команду вступления.
func (h *JoinExpeditionHandler) Handle(ctx context.Context, cmd JoinExpeditionCommand) (*JoinExpeditionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("expedition", "Join", shared.ErrValidation, err.Error(), err)
	}

	expeditionID, err := shared.NewExpeditionID(cmd.ExpeditionID)
	if err != nil {
		return nil, err
	}
	characterID, err := shared.NewCharacterID(cmd.CharacterID)
	if err != nil {
		return nil, err
	}

	if err := character.EnsureEligible(ctx, h.characters, characterID); err != nil {
		return nil, err
	}

	now := h.clock()
	var membersCount int

	err = h.expeditions.WithinTx(ctx, func(tx expedition.Tx) error {
		exp, err := tx.Get(ctx, expeditionID)
		if err != nil {
			return err
		}
		busy, err := tx.HasActiveMembership(ctx, characterID, expeditionID)
		if err != nil {
			return err
		}
		if busy {
			return shared.ErrAlreadyOnExpedition
		}
		if err := exp.AddMember(characterID, now, false); err != nil {
			return err
		}
		if err := tx.AddMember(ctx, expeditionID, characterID, now); err != nil {
			return err
		}
		membersCount = exp.MembersCount()
		return tx.Save(ctx, exp)
	})
	if err != nil {
		return nil, err
	}

	event := shared.NewMemberJoinedEvent(expeditionID.String(), characterID.String(), false)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.eventPublisher.Publish(event)

	return &JoinExpeditionResult{
		ExpeditionID: expeditionID.String(),
		MembersCount: membersCount,
		Events:       []shared.Event{event},
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LEAVE EXPEDITION
// ══════════════════════════════════════════════════════════════════════════════

// LeaveExpeditionCommand содержит данные для выхода из экспедиции.
type LeaveExpeditionCommand struct {
	ExpeditionID  string
	CharacterID   string
	CorrelationID string
}

// Validate проверяет корректность команды.
func (c LeaveExpeditionCommand) Validate() error {
	if c.ExpeditionID == "" {
		return errors.New("leave_expedition: expedition_id is required")
	}
	if c.CharacterID == "" {
		return errors.New("leave_expedition: character_id is required")
	}
	return nil
}

// LeaveExpeditionResult содержит результат выхода.
type LeaveExpeditionResult struct {
	ExpeditionID string
	MembersCount int

	// Terminated - экспедиция распущена, потому что вышел последний участник.
	Terminated bool

	Events []shared.Event
}

// LeaveExpeditionHandler обрабатывает LeaveExpeditionCommand.
type LeaveExpeditionHandler struct {
	expeditions    expedition.Store
	eventPublisher shared.EventPublisher
	clock          Clock
}

// NewLeaveExpeditionHandler создаёт новый обработчик.
func NewLeaveExpeditionHandler(
	expeditions expedition.Store,
	eventPublisher shared.EventPublisher,
	clock Clock,
) *LeaveExpeditionHandler {
	return &LeaveExpeditionHandler{
		expeditions:    expeditions,
		eventPublisher: eventPublisher,
		clock:          defaultClock(clock),
	}
}

// Handle выполняет команду выхода. Проверка жизнеспособности персонажа здесь
// не нужна: мёртвый персонаж тоже должен уметь покинуть планирование.
func (h *LeaveExpeditionHandler) Handle(ctx context.Context, cmd LeaveExpeditionCommand) (*LeaveExpeditionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("expedition", "Leave", shared.ErrValidation, err.Error(), err)
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
	result := &LeaveExpeditionResult{ExpeditionID: expeditionID.String()}
	var townID shared.TownID
	var name string

	err = h.expeditions.WithinTx(ctx, func(tx expedition.Tx) error {
		exp, err := tx.Get(ctx, expeditionID)
		if err != nil {
			return err
		}
		if err := exp.RemoveMember(characterID, now, false); err != nil {
			return err
		}
		if err := tx.RemoveMember(ctx, expeditionID, characterID); err != nil {
			return err
		}

		townID = exp.TownID
		name = exp.Name
		result.MembersCount = exp.MembersCount()

		// Роспуск: последний участник ушёл во время планирования.
		if exp.MembersCount() == 0 && exp.Status == expedition.StatusPlanning {
			result.Terminated = true
			return finishReturn(ctx, tx, exp, now, shared.ReturnReasonAbandoned)
		}
		return tx.Save(ctx, exp)
	})
	if err != nil {
		return nil, err
	}

	left := shared.NewMemberLeftEvent(expeditionID.String(), characterID.String(), false, result.Terminated)
	if cmd.CorrelationID != "" {
		left.BaseEvent = left.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, left)
	if result.Terminated {
		result.Events = append(result.Events,
			shared.NewExpeditionReturnedEvent(expeditionID.String(), name, townID.String(), shared.ReturnReasonAbandoned))
	}
	for _, e := range result.Events {
		_ = h.eventPublisher.Publish(e)
	}

	return result, nil
}
