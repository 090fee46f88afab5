package command

import (
	"context"
	"errors"
	"time"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/expedition"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/resource"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
	"github.com/bourgade-rp/bourgade-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ЖИЗНЕННЫЙ ЦИКЛ: LOCK / DEPART / RETURN
// Эти команды вызываются планировщиком (плановые тики) и админкой (force).
// Возвращение всегда атомарно: смена статуса, слияние ресурсов в город и
// удаление голосов происходят в одной транзакции.
// ══════════════════════════════════════════════════════════════════════════════

// finishReturn завершает экспедицию внутри открытой транзакции: переводит
// статус в RETURNED, сливает остатки запаса в город и удаляет голоса.
func finishReturn(ctx context.Context, tx expedition.Tx, exp *expedition.Expedition, now time.Time, reason shared.ReturnReason) error {
	if err := exp.Return(now, reason); err != nil {
		return err
	}
	from := resource.ExpeditionLocation(exp.ID)
	to := resource.TownLocation(exp.TownID)
	if err := tx.Stocks().MergeInto(ctx, from, to); err != nil {
		return err
	}
	if err := tx.ClearVotes(ctx, exp.ID); err != nil {
		return err
	}
	if err := tx.ReleaseMembers(ctx, exp.ID); err != nil {
		return err
	}
	return tx.Save(ctx, exp)
}

// ══════════════════════════════════════════════════════════════════════════════
// LOCK
// ══════════════════════════════════════════════════════════════════════════════

// LockExpeditionCommand замораживает экспедицию перед выходом.
type LockExpeditionCommand struct {
	ExpeditionID string

	// Force - административный лок без проверки времени создания.
	Force bool

	CorrelationID string
}

// Validate проверяет корректность команды.
func (c LockExpeditionCommand) Validate() error {
	if c.ExpeditionID == "" {
		return errors.New("lock_expedition: expedition_id is required")
	}
	return nil
}

// LockExpeditionResult содержит результат лока.
type LockExpeditionResult struct {
	ExpeditionID string
	Status       expedition.Status

	// Terminated - экспедиция была пуста на момент лока и распущена.
	Terminated bool

	Events []shared.Event
}

// LockExpeditionHandler обрабатывает LockExpeditionCommand.
type LockExpeditionHandler struct {
	expeditions    expedition.Store
	eventPublisher shared.EventPublisher
	location       *time.Location
	clock          Clock
}

// NewLockExpeditionHandler создаёт новый обработчик. location - игровой
// часовой пояс; nil означает пояс по умолчанию.
func NewLockExpeditionHandler(
	expeditions expedition.Store,
	eventPublisher shared.EventPublisher,
	location *time.Location,
	clock Clock,
) *LockExpeditionHandler {
	if location == nil {
		location = timeutil.GameLocation()
	}
	return &LockExpeditionHandler{
		expeditions:    expeditions,
		eventPublisher: eventPublisher,
		location:       location,
		clock:          defaultClock(clock),
	}
}

// Handle выполняет лок. Плановый лок применяется только к экспедициям,
// созданным до начала текущих игровых суток; пустая экспедиция на моменте
// лока распускается вместо заморозки.
func (h *LockExpeditionHandler) Handle(ctx context.Context, cmd LockExpeditionCommand) (*LockExpeditionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("expedition", "Lock", shared.ErrValidation, err.Error(), err)
	}

	expeditionID, err := shared.NewExpeditionID(cmd.ExpeditionID)
	if err != nil {
		return nil, err
	}

	now := h.clock()
	cutoff := timeutil.StartOfDay(now, h.location)
	result := &LockExpeditionResult{ExpeditionID: expeditionID.String()}
	var name, townID string
	var memberCount int

	err = h.expeditions.WithinTx(ctx, func(tx expedition.Tx) error {
		exp, err := tx.Get(ctx, expeditionID)
		if err != nil {
			return err
		}
		name = exp.Name
		townID = exp.TownID.String()
		memberCount = exp.MembersCount()

		if exp.MembersCount() == 0 {
			result.Terminated = true
			if err := finishReturn(ctx, tx, exp, now, shared.ReturnReasonAbandoned); err != nil {
				return err
			}
			result.Status = exp.Status
			return nil
		}

		if err := exp.Lock(now, cutoff, cmd.Force); err != nil {
			return err
		}
		result.Status = exp.Status
		return tx.Save(ctx, exp)
	})
	if err != nil {
		return nil, err
	}

	if result.Terminated {
		result.Events = append(result.Events,
			shared.NewExpeditionReturnedEvent(expeditionID.String(), name, townID, shared.ReturnReasonAbandoned))
	} else {
		locked := shared.NewExpeditionLockedEvent(expeditionID.String(), name, memberCount, cmd.Force)
		if cmd.CorrelationID != "" {
			locked.BaseEvent = locked.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		result.Events = append(result.Events, locked)
	}
	for _, e := range result.Events {
		_ = h.eventPublisher.Publish(e)
	}

	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPART
// ══════════════════════════════════════════════════════════════════════════════

// DepartExpeditionCommand выводит заблокированную экспедицию в путь.
type DepartExpeditionCommand struct {
	ExpeditionID  string
	CorrelationID string
}

// Validate проверяет корректность команды.
func (c DepartExpeditionCommand) Validate() error {
	if c.ExpeditionID == "" {
		return errors.New("depart_expedition: expedition_id is required")
	}
	return nil
}

// DepartExpeditionResult содержит результат выхода.
type DepartExpeditionResult struct {
	ExpeditionID string
	Status       expedition.Status
	ReturnAt     time.Time
	Events       []shared.Event
}

// DepartExpeditionHandler обрабатывает DepartExpeditionCommand.
type DepartExpeditionHandler struct {
	expeditions    expedition.Store
	eventPublisher shared.EventPublisher
	clock          Clock
}

// NewDepartExpeditionHandler создаёт новый обработчик.
func NewDepartExpeditionHandler(
	expeditions expedition.Store,
	eventPublisher shared.EventPublisher,
	clock Clock,
) *DepartExpeditionHandler {
	return &DepartExpeditionHandler{
		expeditions:    expeditions,
		eventPublisher: eventPublisher,
		clock:          defaultClock(clock),
	}
}

// Handle выполняет выход экспедиции.
func (h *DepartExpeditionHandler) Handle(ctx context.Context, cmd DepartExpeditionCommand) (*DepartExpeditionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("expedition", "Depart", shared.ErrValidation, err.Error(), err)
	}

	expeditionID, err := shared.NewExpeditionID(cmd.ExpeditionID)
	if err != nil {
		return nil, err
	}

	now := h.clock()
	result := &DepartExpeditionResult{ExpeditionID: expeditionID.String()}
	var name string

	err = h.expeditions.WithinTx(ctx, func(tx expedition.Tx) error {
		exp, err := tx.Get(ctx, expeditionID)
		if err != nil {
			return err
		}
		if err := exp.Depart(now); err != nil {
			return err
		}
		name = exp.Name
		result.Status = exp.Status
		result.ReturnAt = *exp.ReturnAt
		return tx.Save(ctx, exp)
	})
	if err != nil {
		return nil, err
	}

	departed := shared.NewExpeditionDepartedEvent(expeditionID.String(), name, result.ReturnAt)
	if cmd.CorrelationID != "" {
		departed.BaseEvent = departed.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, departed)
	_ = h.eventPublisher.Publish(departed)

	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RETURN (плановый, по истечении срока)
// ══════════════════════════════════════════════════════════════════════════════

// ReturnExpeditionCommand возвращает экспедицию, у которой истёк срок.
type ReturnExpeditionCommand struct {
	ExpeditionID  string
	CorrelationID string
}

// Validate проверяет корректность команды.
func (c ReturnExpeditionCommand) Validate() error {
	if c.ExpeditionID == "" {
		return errors.New("return_expedition: expedition_id is required")
	}
	return nil
}

// ReturnExpeditionResult содержит результат возвращения.
type ReturnExpeditionResult struct {
	ExpeditionID string
	Status       expedition.Status
	Reason       shared.ReturnReason

	// Skipped - срок ещё не истёк, возвращение не выполнено.
	Skipped bool

	Events []shared.Event
}

// ReturnExpeditionHandler обрабатывает ReturnExpeditionCommand.
type ReturnExpeditionHandler struct {
	expeditions    expedition.Store
	eventPublisher shared.EventPublisher
	clock          Clock
}

// NewReturnExpeditionHandler создаёт новый обработчик.
func NewReturnExpeditionHandler(
	expeditions expedition.Store,
	eventPublisher shared.EventPublisher,
	clock Clock,
) *ReturnExpeditionHandler {
	return &ReturnExpeditionHandler{
		expeditions:    expeditions,
		eventPublisher: eventPublisher,
		clock:          defaultClock(clock),
	}
}

// Handle выполняет плановое возвращение. Экспедиция с неистёкшим сроком
// пропускается без ошибки - метла идёт по списку кандидатов и кандидат мог
// вернуться между выборкой и обработкой.
func (h *ReturnExpeditionHandler) Handle(ctx context.Context, cmd ReturnExpeditionCommand) (*ReturnExpeditionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("expedition", "Return", shared.ErrValidation, err.Error(), err)
	}

	expeditionID, err := shared.NewExpeditionID(cmd.ExpeditionID)
	if err != nil {
		return nil, err
	}

	now := h.clock()
	result := &ReturnExpeditionResult{ExpeditionID: expeditionID.String(), Reason: shared.ReturnReasonExpired}
	var name, townID string

	err = h.expeditions.WithinTx(ctx, func(tx expedition.Tx) error {
		exp, err := tx.Get(ctx, expeditionID)
		if err != nil {
			return err
		}
		if !exp.DueForReturn(now) {
			result.Skipped = true
			result.Status = exp.Status
			return nil
		}
		name = exp.Name
		townID = exp.TownID.String()
		if err := finishReturn(ctx, tx, exp, now, shared.ReturnReasonExpired); err != nil {
			return err
		}
		result.Status = exp.Status
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.Skipped {
		returned := shared.NewExpeditionReturnedEvent(expeditionID.String(), name, townID, shared.ReturnReasonExpired)
		if cmd.CorrelationID != "" {
			returned.BaseEvent = returned.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		result.Events = append(result.Events, returned)
		_ = h.eventPublisher.Publish(returned)
	}

	return result, nil
}
