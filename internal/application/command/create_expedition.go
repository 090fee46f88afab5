// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/character"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/expedition"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/resource"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/town"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE EXPEDITION COMMAND
// Создаёт экспедицию в статусе PLANNING. Инициатор сразу становится первым
// участником - экспедиция без участников существует только мгновение между
// выходом последнего и автоматическим роспуском.
// ══════════════════════════════════════════════════════════════════════════════

// ResourceGrant - стартовая закладка ресурсов: списывается со склада города
// в запас экспедиции в момент создания.
type ResourceGrant struct {
	// ResourceType - имя типа ресурса из каталога, например "Vivres".
	ResourceType string

	Quantity int
}

// CreateExpeditionCommand содержит данные для создания экспедиции.
type CreateExpeditionCommand struct {
	// Name - отображаемое имя экспедиции.
	Name string

	// TownID - город, из которого выходит экспедиция.
	TownID string

	// DurationDays - длительность похода в днях.
	DurationDays int

	// CreatedBy - персонаж-инициатор, он же первый участник.
	CreatedBy string

	// InitialResources - стартовая закладка. Переносится со склада города в
	// той же транзакции, что и вставка: не хватает ресурсов - экспедиция не
	// создаётся вовсе.
	InitialResources []ResourceGrant

	// CorrelationID для трассировки.
	CorrelationID string
}

// Validate проверяет корректность команды.
func (c CreateExpeditionCommand) Validate() error {
	if c.Name == "" {
		return errors.New("create_expedition: name is required")
	}
	if c.TownID == "" {
		return errors.New("create_expedition: town_id is required")
	}
	if c.CreatedBy == "" {
		return errors.New("create_expedition: created_by is required")
	}
	if c.DurationDays < shared.MinDurationDays.Int() || c.DurationDays > shared.MaxDurationDays.Int() {
		return fmt.Errorf("create_expedition: duration must be between %d and %d days",
			shared.MinDurationDays, shared.MaxDurationDays)
	}
	for _, grant := range c.InitialResources {
		if grant.ResourceType == "" {
			return errors.New("create_expedition: initial resource type is required")
		}
		if grant.Quantity <= 0 {
			return errors.New("create_expedition: initial resource quantity must be positive")
		}
	}
	return nil
}

// CreateExpeditionResult содержит результат создания.
type CreateExpeditionResult struct {
	ExpeditionID string
	Status       expedition.Status
	Events       []shared.Event
}

// CreateExpeditionHandler обрабатывает CreateExpeditionCommand.
type CreateExpeditionHandler struct {
	expeditions    expedition.Store
	towns          town.Store
	characters     character.Store
	types          resource.TypeRegistry
	eventPublisher shared.EventPublisher
	clock          Clock
}

// NewCreateExpeditionHandler создаёт новый обработчик.
func NewCreateExpeditionHandler(
	expeditions expedition.Store,
	towns town.Store,
	characters character.Store,
	types resource.TypeRegistry,
	eventPublisher shared.EventPublisher,
	clock Clock,
) *CreateExpeditionHandler {
	return &CreateExpeditionHandler{
		expeditions:    expeditions,
		towns:          towns,
		characters:     characters,
		types:          types,
		eventPublisher: eventPublisher,
		clock:          defaultClock(clock),
	}
}

// Handle выполняет команду создания экспедиции.
func (h *CreateExpeditionHandler) Handle(ctx context.Context, cmd CreateExpeditionCommand) (*CreateExpeditionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("expedition", "Create", shared.ErrValidation, err.Error(), err)
	}

	townID, err := shared.NewTownID(cmd.TownID)
	if err != nil {
		return nil, err
	}
	creatorID, err := shared.NewCharacterID(cmd.CreatedBy)
	if err != nil {
		return nil, err
	}
	duration, err := shared.NewDurationDays(cmd.DurationDays)
	if err != nil {
		return nil, err
	}

	exists, err := h.towns.Exists(ctx, townID)
	if err != nil {
		return nil, fmt.Errorf("create_expedition: town lookup: %w", err)
	}
	if !exists {
		return nil, shared.ErrTownNotFound
	}

	if err := character.EnsureEligible(ctx, h.characters, creatorID); err != nil {
		return nil, err
	}

	// Типы стартовой закладки резолвятся до транзакции: неизвестный тип -
	// ошибка NotFound без открытия транзакции.
	type resolvedGrant struct {
		typeID int
		name   string
		qty    shared.Quantity
	}
	grants := make([]resolvedGrant, 0, len(cmd.InitialResources))
	for _, grant := range cmd.InitialResources {
		resType, err := h.types.TypeByName(ctx, grant.ResourceType)
		if err != nil {
			return nil, err
		}
		qty, err := shared.NewQuantity(grant.Quantity)
		if err != nil {
			return nil, err
		}
		grants = append(grants, resolvedGrant{typeID: resType.ID, name: resType.Name, qty: qty})
	}

	now := h.clock()
	id := shared.ExpeditionID(uuid.New().String())

	exp, err := expedition.NewExpedition(id, cmd.Name, townID, duration, creatorID, now)
	if err != nil {
		return nil, err
	}
	if err := exp.AddMember(creatorID, now, false); err != nil {
		return nil, err
	}

	err = h.expeditions.WithinTx(ctx, func(tx expedition.Tx) error {
		// Правило "одна активная экспедиция на персонажа" проверяется внутри
		// транзакции, чтобы параллельные создания не обошли его.
		busy, err := tx.HasActiveMembership(ctx, creatorID, id)
		if err != nil {
			return err
		}
		if busy {
			return shared.ErrAlreadyOnExpedition
		}
		if err := tx.Insert(ctx, exp); err != nil {
			return err
		}
		if err := tx.AddMember(ctx, id, creatorID, now); err != nil {
			return err
		}

		// Стартовая закладка в той же транзакции: недостача на складе
		// откатывает и вставку экспедиции.
		townLoc := resource.TownLocation(townID)
		expLoc := resource.ExpeditionLocation(id)
		ledger := tx.Stocks()
		for _, grant := range grants {
			if err := ledger.Transfer(ctx, townLoc, expLoc, grant.typeID, grant.qty); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &CreateExpeditionResult{
		ExpeditionID: id.String(),
		Status:       exp.Status,
		Events:       make([]shared.Event, 0, 2+len(grants)),
	}

	created := shared.NewExpeditionCreatedEvent(id.String(), cmd.Name, townID.String(), duration.Int(), creatorID.String())
	if cmd.CorrelationID != "" {
		created.BaseEvent = created.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	joined := shared.NewMemberJoinedEvent(id.String(), creatorID.String(), false)

	result.Events = append(result.Events, created, joined)
	for _, grant := range grants {
		result.Events = append(result.Events,
			shared.NewResourceTransferredEvent(id.String(), grant.name, grant.qty.Int(), string(resource.ToExpedition)))
	}
	for _, e := range result.Events {
		_ = h.eventPublisher.Publish(e)
	}

	return result, nil
}
