package command

import (
	"context"
	"errors"
	"time"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/expedition"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
	"github.com/bourgade-rp/bourgade-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROLLOVER DAY COMMAND
// Суточный перенос: выбранное направление (или UNKNOWN) уходит в маршрут,
// новый день открывается с чистым выбором. Идемпотентно - в маршруте ровно
// столько записей, сколько игровых суток прошло с выхода.
// ══════════════════════════════════════════════════════════════════════════════

// RolloverDayCommand переносит день одной экспедиции.
type RolloverDayCommand struct {
	ExpeditionID  string
	CorrelationID string
}

// Validate проверяет корректность команды.
func (c RolloverDayCommand) Validate() error {
	if c.ExpeditionID == "" {
		return errors.New("rollover_day: expedition_id is required")
	}
	return nil
}

// RolloverDayResult содержит результат переноса.
type RolloverDayResult struct {
	ExpeditionID string

	// Rolled - перенос состоялся (false при повторном тике того же дня).
	Rolled bool

	Direction  expedition.Direction
	PathLength int
	Events     []shared.Event
}

// RolloverDayHandler обрабатывает RolloverDayCommand.
type RolloverDayHandler struct {
	expeditions    expedition.Store
	eventPublisher shared.EventPublisher
	location       *time.Location
	clock          Clock
}

// NewRolloverDayHandler создаёт новый обработчик.
func NewRolloverDayHandler(
	expeditions expedition.Store,
	eventPublisher shared.EventPublisher,
	location *time.Location,
	clock Clock,
) *RolloverDayHandler {
	if location == nil {
		location = timeutil.GameLocation()
	}
	return &RolloverDayHandler{
		expeditions:    expeditions,
		eventPublisher: eventPublisher,
		location:       location,
		clock:          defaultClock(clock),
	}
}

// Handle выполняет суточный перенос.
func (h *RolloverDayHandler) Handle(ctx context.Context, cmd RolloverDayCommand) (*RolloverDayResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("expedition", "RolloverDay", shared.ErrValidation, err.Error(), err)
	}

	expeditionID, err := shared.NewExpeditionID(cmd.ExpeditionID)
	if err != nil {
		return nil, err
	}

	now := h.clock()
	result := &RolloverDayResult{ExpeditionID: expeditionID.String()}

	err = h.expeditions.WithinTx(ctx, func(tx expedition.Tx) error {
		exp, err := tx.Get(ctx, expeditionID)
		if err != nil {
			return err
		}
		direction, rolled, err := exp.RolloverDay(now, h.location)
		if err != nil {
			return err
		}
		if !rolled {
			return nil
		}
		result.Rolled = true
		result.Direction = direction
		result.PathLength = len(exp.Path)
		return tx.Save(ctx, exp)
	})
	if err != nil {
		return nil, err
	}

	if result.Rolled {
		event := shared.NewDayRolledEvent(expeditionID.String(), result.Direction.String(), result.PathLength)
		if cmd.CorrelationID != "" {
			event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		result.Events = append(result.Events, event)
		_ = h.eventPublisher.Publish(event)
	}

	return result, nil
}
