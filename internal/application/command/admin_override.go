package command

import (
	"context"
	"errors"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/expedition"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN OVERRIDES
// Административные операции обходят игровые ограничения, но не таблицу
// переходов: RETURNED остаётся неизменяемым даже для админа.
// ══════════════════════════════════════════════════════════════════════════════

// ForceReturnCommand принудительно возвращает экспедицию.
type ForceReturnCommand struct {
	ExpeditionID  string
	CorrelationID string
}

// Validate проверяет корректность команды.
func (c ForceReturnCommand) Validate() error {
	if c.ExpeditionID == "" {
		return errors.New("force_return: expedition_id is required")
	}
	return nil
}

// ForceReturnResult содержит результат принудительного возвращения.
type ForceReturnResult struct {
	ExpeditionID string
	Status       expedition.Status
	Events       []shared.Event
}

// ForceReturnHandler обрабатывает ForceReturnCommand.
type ForceReturnHandler struct {
	expeditions    expedition.Store
	eventPublisher shared.EventPublisher
	clock          Clock
}

// NewForceReturnHandler создаёт новый обработчик.
func NewForceReturnHandler(
	expeditions expedition.Store,
	eventPublisher shared.EventPublisher,
	clock Clock,
) *ForceReturnHandler {
	return &ForceReturnHandler{
		expeditions:    expeditions,
		eventPublisher: eventPublisher,
		clock:          defaultClock(clock),
	}
}

// Handle выполняет принудительное возвращение из любого активного статуса.
// Слияние ресурсов и удаление голосов - в той же транзакции, что и смена
// статуса.
func (h *ForceReturnHandler) Handle(ctx context.Context, cmd ForceReturnCommand) (*ForceReturnResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("expedition", "ForceReturn", shared.ErrValidation, err.Error(), err)
	}

	expeditionID, err := shared.NewExpeditionID(cmd.ExpeditionID)
	if err != nil {
		return nil, err
	}

	now := h.clock()
	result := &ForceReturnResult{ExpeditionID: expeditionID.String()}
	var name, townID string

	err = h.expeditions.WithinTx(ctx, func(tx expedition.Tx) error {
		exp, err := tx.Get(ctx, expeditionID)
		if err != nil {
			return err
		}
		name = exp.Name
		townID = exp.TownID.String()
		if err := finishReturn(ctx, tx, exp, now, shared.ReturnReasonAdmin); err != nil {
			return err
		}
		result.Status = exp.Status
		return nil
	})
	if err != nil {
		return nil, err
	}

	returned := shared.NewExpeditionReturnedEvent(expeditionID.String(), name, townID, shared.ReturnReasonAdmin)
	if cmd.CorrelationID != "" {
		returned.BaseEvent = returned.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, returned)
	_ = h.eventPublisher.Publish(returned)

	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MODIFY EXPEDITION
// ══════════════════════════════════════════════════════════════════════════════

// ModifyExpeditionCommand изменяет имя и/или длительность экспедиции.
type ModifyExpeditionCommand struct {
	ExpeditionID string

	// Name - новое имя; пустая строка означает "не менять".
	Name string

	// DurationDays - новая длительность; 0 означает "не менять".
	DurationDays int

	// RecomputeReturnAt - пересчитать срок возвращения от времени выхода.
	// Без этого флага изменение длительности вышедшей экспедиции срок
	// не трогает.
	RecomputeReturnAt bool

	CorrelationID string
}

// Validate проверяет корректность команды.
func (c ModifyExpeditionCommand) Validate() error {
	if c.ExpeditionID == "" {
		return errors.New("modify_expedition: expedition_id is required")
	}
	if c.Name == "" && c.DurationDays == 0 {
		return errors.New("modify_expedition: nothing to change")
	}
	if c.DurationDays < 0 {
		return errors.New("modify_expedition: duration cannot be negative")
	}
	return nil
}

// ModifyExpeditionResult содержит результат изменения.
type ModifyExpeditionResult struct {
	ExpeditionID string
	Name         string
	DurationDays int
}

// ModifyExpeditionHandler обрабатывает ModifyExpeditionCommand.
type ModifyExpeditionHandler struct {
	expeditions expedition.Store
	clock       Clock
}

// NewModifyExpeditionHandler создаёт новый обработчик.
func NewModifyExpeditionHandler(expeditions expedition.Store, clock Clock) *ModifyExpeditionHandler {
	return &ModifyExpeditionHandler{
		expeditions: expeditions,
		clock:       defaultClock(clock),
	}
}

// Handle выполняет изменение экспедиции.
func (h *ModifyExpeditionHandler) Handle(ctx context.Context, cmd ModifyExpeditionCommand) (*ModifyExpeditionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("expedition", "Modify", shared.ErrValidation, err.Error(), err)
	}

	expeditionID, err := shared.NewExpeditionID(cmd.ExpeditionID)
	if err != nil {
		return nil, err
	}

	now := h.clock()
	result := &ModifyExpeditionResult{ExpeditionID: expeditionID.String()}

	err = h.expeditions.WithinTx(ctx, func(tx expedition.Tx) error {
		exp, err := tx.Get(ctx, expeditionID)
		if err != nil {
			return err
		}
		if exp.Status == expedition.StatusReturned {
			return shared.ErrExpeditionReturned
		}
		if cmd.Name != "" {
			exp.Name = cmd.Name
			exp.UpdatedAt = now
		}
		if cmd.DurationDays != 0 {
			duration, err := shared.NewDurationDays(cmd.DurationDays)
			if err != nil {
				return err
			}
			if err := exp.ModifyDuration(duration, cmd.RecomputeReturnAt, now); err != nil {
				return err
			}
		}
		result.Name = exp.Name
		result.DurationDays = exp.Duration.Int()
		return tx.Save(ctx, exp)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN MEMBERSHIP
// ══════════════════════════════════════════════════════════════════════════════

// AdminMemberCommand добавляет или убирает участника в обход статусных
// ограничений (кроме RETURNED).
type AdminMemberCommand struct {
	ExpeditionID  string
	CharacterID   string
	CorrelationID string
}

// Validate проверяет корректность команды.
func (c AdminMemberCommand) Validate() error {
	if c.ExpeditionID == "" {
		return errors.New("admin_member: expedition_id is required")
	}
	if c.CharacterID == "" {
		return errors.New("admin_member: character_id is required")
	}
	return nil
}

// AdminMemberResult содержит результат административного изменения состава.
type AdminMemberResult struct {
	ExpeditionID string
	MembersCount int

	// Terminated - экспедиция распущена после удаления последнего участника
	// в PLANNING.
	Terminated bool

	// Returned - удаление сместило кворум: оставшиеся голоса стали строгим
	// большинством, и экспедиция возвращена этим же вызовом.
	Returned bool

	Events []shared.Event
}

// AdminMemberHandler обрабатывает административные изменения состава.
type AdminMemberHandler struct {
	expeditions    expedition.Store
	eventPublisher shared.EventPublisher
	clock          Clock
}

// NewAdminMemberHandler создаёт новый обработчик.
func NewAdminMemberHandler(
	expeditions expedition.Store,
	eventPublisher shared.EventPublisher,
	clock Clock,
) *AdminMemberHandler {
	return &AdminMemberHandler{
		expeditions:    expeditions,
		eventPublisher: eventPublisher,
		clock:          defaultClock(clock),
	}
}

// HandleAdd добавляет участника в любом активном статусе.
func (h *AdminMemberHandler) HandleAdd(ctx context.Context, cmd AdminMemberCommand) (*AdminMemberResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("expedition", "AdminAddMember", shared.ErrValidation, err.Error(), err)
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
	result := &AdminMemberResult{ExpeditionID: expeditionID.String()}

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
		if err := exp.AddMember(characterID, now, true); err != nil {
			return err
		}
		if err := tx.AddMember(ctx, expeditionID, characterID, now); err != nil {
			return err
		}
		result.MembersCount = exp.MembersCount()
		return tx.Save(ctx, exp)
	})
	if err != nil {
		return nil, err
	}

	event := shared.NewMemberJoinedEvent(expeditionID.String(), characterID.String(), true)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, event)
	_ = h.eventPublisher.Publish(event)

	return result, nil
}

// HandleRemove убирает участника в любом активном статусе. Голос участника
// снимается вместе с ним.
func (h *AdminMemberHandler) HandleRemove(ctx context.Context, cmd AdminMemberCommand) (*AdminMemberResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("expedition", "AdminRemoveMember", shared.ErrValidation, err.Error(), err)
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
	result := &AdminMemberResult{ExpeditionID: expeditionID.String()}
	var name, townID string

	err = h.expeditions.WithinTx(ctx, func(tx expedition.Tx) error {
		exp, err := tx.Get(ctx, expeditionID)
		if err != nil {
			return err
		}
		if err := exp.RemoveMember(characterID, now, true); err != nil {
			return err
		}
		if err := tx.RemoveMember(ctx, expeditionID, characterID); err != nil {
			return err
		}
		if err := tx.SetVote(ctx, expeditionID, characterID, false); err != nil {
			return err
		}
		name = exp.Name
		townID = exp.TownID.String()
		result.MembersCount = exp.MembersCount()

		if exp.MembersCount() == 0 && exp.Status == expedition.StatusPlanning {
			result.Terminated = true
			return finishReturn(ctx, tx, exp, now, shared.ReturnReasonAbandoned)
		}
		// Удаление не-голосовавшего уменьшает знаменатель кворума: если
		// оставшиеся голоса стали строгим большинством, экспедиция
		// возвращается немедленно, как при решающем голосе.
		if exp.Status == expedition.StatusDeparted && exp.QuorumReached() {
			result.Returned = true
			return finishReturn(ctx, tx, exp, now, shared.ReturnReasonEmergency)
		}
		return tx.Save(ctx, exp)
	})
	if err != nil {
		return nil, err
	}

	left := shared.NewMemberLeftEvent(expeditionID.String(), characterID.String(), true, result.Terminated)
	if cmd.CorrelationID != "" {
		left.BaseEvent = left.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, left)
	if result.Terminated {
		result.Events = append(result.Events,
			shared.NewExpeditionReturnedEvent(expeditionID.String(), name, townID, shared.ReturnReasonAbandoned))
	}
	if result.Returned {
		result.Events = append(result.Events,
			shared.NewExpeditionReturnedEvent(expeditionID.String(), name, townID, shared.ReturnReasonEmergency))
	}
	for _, e := range result.Events {
		_ = h.eventPublisher.Publish(e)
	}

	return result, nil
}
