package command

import (
	"context"
	"errors"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/expedition"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/resource"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// TRANSFER RESOURCE COMMAND
// Перекладывает ресурсы между складом города и запасом экспедиции. Игрокам
// доступно только в PLANNING и только участникам; админ может перекладывать
// в любом активном статусе. После возвращения запас экспедиции не существует.
// ══════════════════════════════════════════════════════════════════════════════

// TransferResourceCommand содержит данные перекладки.
type TransferResourceCommand struct {
	ExpeditionID string

	// CharacterID - инициатор. Для админских перекладок может быть пуст.
	CharacterID string

	// ResourceType - имя типа ресурса из каталога, например "Vivres".
	ResourceType string

	Quantity int

	// Direction - "toExpedition" или "toTown" (допускаются старые алиасы
	// "from_town"/"to_town").
	Direction string

	// AsAdmin - перекладка от имени администратора.
	AsAdmin bool

	CorrelationID string
}

// Validate проверяет корректность команды.
func (c TransferResourceCommand) Validate() error {
	if c.ExpeditionID == "" {
		return errors.New("transfer_resource: expedition_id is required")
	}
	if !c.AsAdmin && c.CharacterID == "" {
		return errors.New("transfer_resource: character_id is required")
	}
	if c.ResourceType == "" {
		return errors.New("transfer_resource: resource_type is required")
	}
	if c.Quantity < 0 {
		return errors.New("transfer_resource: quantity cannot be negative")
	}
	if c.Direction == "" {
		return errors.New("transfer_resource: direction is required")
	}
	return nil
}

// TransferResourceResult содержит результат перекладки.
type TransferResourceResult struct {
	ExpeditionID string
	ResourceType string
	Quantity     int
	Direction    resource.TransferDirection

	// TownBalance и ExpeditionBalance - остатки после перекладки.
	TownBalance       int
	ExpeditionBalance int

	Events []shared.Event
}

// TransferResourceHandler обрабатывает TransferResourceCommand.
type TransferResourceHandler struct {
	expeditions    expedition.Store
	types          resource.TypeRegistry
	eventPublisher shared.EventPublisher
	clock          Clock
}

// NewTransferResourceHandler создаёт новый обработчик.
func NewTransferResourceHandler(
	expeditions expedition.Store,
	types resource.TypeRegistry,
	eventPublisher shared.EventPublisher,
	clock Clock,
) *TransferResourceHandler {
	return &TransferResourceHandler{
		expeditions:    expeditions,
		types:          types,
		eventPublisher: eventPublisher,
		clock:          defaultClock(clock),
	}
}

// Handle выполняет перекладку ресурсов.
func (h *TransferResourceHandler) Handle(ctx context.Context, cmd TransferResourceCommand) (*TransferResourceResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("resource", "Transfer", shared.ErrValidation, err.Error(), err)
	}

	expeditionID, err := shared.NewExpeditionID(cmd.ExpeditionID)
	if err != nil {
		return nil, err
	}
	direction, err := resource.ParseTransferDirection(cmd.Direction)
	if err != nil {
		return nil, err
	}
	qty, err := shared.NewQuantity(cmd.Quantity)
	if err != nil {
		return nil, err
	}

	resType, err := h.types.TypeByName(ctx, cmd.ResourceType)
	if err != nil {
		return nil, err
	}

	result := &TransferResourceResult{
		ExpeditionID: expeditionID.String(),
		ResourceType: resType.Name,
		Quantity:     qty.Int(),
		Direction:    direction,
	}

	err = h.expeditions.WithinTx(ctx, func(tx expedition.Tx) error {
		exp, err := tx.Get(ctx, expeditionID)
		if err != nil {
			return err
		}
		if err := h.checkTransferAllowed(exp, cmd); err != nil {
			return err
		}

		townLoc := resource.TownLocation(exp.TownID)
		expLoc := resource.ExpeditionLocation(exp.ID)
		from, to := townLoc, expLoc
		if direction == resource.ToTown {
			from, to = expLoc, townLoc
		}

		ledger := tx.Stocks()
		// Нулевая перекладка - no-op: правила доступа те же, балансы не
		// трогаются.
		if qty.Int() > 0 {
			if err := ledger.Transfer(ctx, from, to, resType.ID, qty); err != nil {
				return err
			}
		}

		townBal, err := ledger.Balance(ctx, townLoc, resType.ID)
		if err != nil {
			return err
		}
		expBal, err := ledger.Balance(ctx, expLoc, resType.ID)
		if err != nil {
			return err
		}
		result.TownBalance = townBal.Int()
		result.ExpeditionBalance = expBal.Int()
		return nil
	})
	if err != nil {
		return nil, err
	}

	// No-op не публикуется: событие перекладки описывает перемещение.
	if qty.Int() > 0 {
		event := shared.NewResourceTransferredEvent(expeditionID.String(), resType.Name, qty.Int(), string(direction))
		if cmd.CorrelationID != "" {
			event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		result.Events = append(result.Events, event)
		_ = h.eventPublisher.Publish(event)
	}

	return result, nil
}

// checkTransferAllowed применяет статусные правила перекладки.
func (h *TransferResourceHandler) checkTransferAllowed(exp *expedition.Expedition, cmd TransferResourceCommand) error {
	if exp.Status == expedition.StatusReturned {
		return shared.ErrExpeditionReturned
	}
	if cmd.AsAdmin {
		return nil
	}
	if exp.Status != expedition.StatusPlanning {
		return shared.ErrExpeditionLocked
	}
	if !exp.IsMember(shared.CharacterID(cmd.CharacterID)) {
		return shared.ErrCharacterNotMember
	}
	return nil
}
