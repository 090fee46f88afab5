package expedition

import (
	"context"
	"time"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/resource"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ПОРТЫ ХРАНИЛИЩА
// ══════════════════════════════════════════════════════════════════════════════

// Store - порт чтения и транзакционного доступа к экспедициям.
// Реализация передаётся явно через конструкторы; глобальных клиентов нет.
type Store interface {
	// GetByID загружает экспедицию с участниками и голосами.
	// Возвращает ошибку NotFound, если записи нет.
	GetByID(ctx context.Context, id shared.ExpeditionID) (*Expedition, error)

	// ListByTown возвращает экспедиции города, новые первыми.
	ListByTown(ctx context.Context, townID shared.TownID, includeReturned bool) ([]*Expedition, error)

	// ListAll возвращает все экспедиции (админ-обзор).
	ListAll(ctx context.Context, includeReturned bool) ([]*Expedition, error)

	// ListActiveForCharacter возвращает активные экспедиции персонажа
	// (LOCKED и DEPARTED).
	ListActiveForCharacter(ctx context.Context, characterID shared.CharacterID) ([]*Expedition, error)

	// ListPlanningCreatedBefore возвращает id PLANNING-экспедиций, созданных
	// до cutoff - кандидаты на плановый лок.
	ListPlanningCreatedBefore(ctx context.Context, cutoff time.Time) ([]shared.ExpeditionID, error)

	// ListByStatus возвращает id экспедиций в заданном статусе.
	ListByStatus(ctx context.Context, status Status) ([]shared.ExpeditionID, error)

	// ListDepartedDue возвращает id DEPARTED-экспедиций с истёкшим сроком.
	ListDepartedDue(ctx context.Context, now time.Time) ([]shared.ExpeditionID, error)

	// WithinTx выполняет fn в одной атомарной транзакции: либо видимы все
	// изменения, либо никакие. Ошибка fn откатывает транзакцию целиком.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx - операции, доступные внутри транзакции. Запись экспедиции принадлежит
// транзакции на всё её время (row lock при Get), поэтому межэкспедиционных
// блокировок не требуется.
type Tx interface {
	// Get загружает экспедицию под блокировкой записи.
	Get(ctx context.Context, id shared.ExpeditionID) (*Expedition, error)

	// Insert сохраняет новую экспедицию.
	Insert(ctx context.Context, e *Expedition) error

	// Save сохраняет скалярные поля и маршрут агрегата.
	Save(ctx context.Context, e *Expedition) error

	// AddMember создаёт строку участия. Уникальный индекс БД - последний
	// арбитр гонок: нарушение отображается в ошибку AlreadyExists.
	AddMember(ctx context.Context, id shared.ExpeditionID, characterID shared.CharacterID, joinedAt time.Time) error

	// RemoveMember удаляет строку участия.
	RemoveMember(ctx context.Context, id shared.ExpeditionID, characterID shared.CharacterID) error

	// ReleaseMembers снимает признак активности со всех строк участия при
	// возвращении: состав остаётся в истории, а персонажи освобождаются для
	// новых экспедиций.
	ReleaseMembers(ctx context.Context, id shared.ExpeditionID) error

	// HasActiveMembership проверяет, состоит ли персонаж в какой-либо другой
	// невернувшейся экспедиции.
	HasActiveMembership(ctx context.Context, characterID shared.CharacterID, exclude shared.ExpeditionID) (bool, error)

	// SetVote выставляет или снимает голос участника.
	SetVote(ctx context.Context, id shared.ExpeditionID, characterID shared.CharacterID, voted bool) error

	// ClearVotes удаляет все голоса экспедиции (при возвращении).
	ClearVotes(ctx context.Context, id shared.ExpeditionID) error

	// Stocks возвращает реестр ресурсов, привязанный к этой же транзакции.
	Stocks() resource.Ledger
}
