package expedition

import (
	"sort"
	"time"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// УЧАСТНИКИ
// ══════════════════════════════════════════════════════════════════════════════

// Member - участие персонажа в экспедиции.
type Member struct {
	CharacterID shared.CharacterID
	JoinedAt    time.Time
}

// IsMember проверяет участие персонажа.
func (e *Expedition) IsMember(characterID shared.CharacterID) bool {
	for _, m := range e.Members {
		if m.CharacterID == characterID {
			return true
		}
	}
	return false
}

// MembersCount возвращает число участников.
func (e *Expedition) MembersCount() int {
	return len(e.Members)
}

// MembersOrdered возвращает участников в порядке присоединения.
func (e *Expedition) MembersOrdered() []Member {
	out := make([]Member, len(e.Members))
	copy(out, e.Members)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

// AddMember добавляет участника. Обычное вступление открыто только в
// PLANNING; админ может добавить в любом активном статусе, но не после
// возвращения. Проверка "один персонаж - одна активная экспедиция" требует
// чтения соседних записей и выполняется слоем приложения внутри транзакции.
func (e *Expedition) AddMember(characterID shared.CharacterID, now time.Time, byAdmin bool) error {
	if e.Status == StatusReturned {
		return shared.ErrExpeditionReturned
	}
	if !byAdmin && e.Status != StatusPlanning {
		return shared.ErrExpeditionLocked
	}
	if e.IsMember(characterID) {
		return shared.ErrAlreadyMember
	}
	e.Members = append(e.Members, Member{CharacterID: characterID, JoinedAt: now})
	e.UpdatedAt = now
	return nil
}

// RemoveMember убирает участника. Те же правила статусов, что и AddMember.
// Голос удаляемого участника снимается вместе с ним.
func (e *Expedition) RemoveMember(characterID shared.CharacterID, now time.Time, byAdmin bool) error {
	if e.Status == StatusReturned {
		return shared.ErrExpeditionReturned
	}
	if !byAdmin && e.Status != StatusPlanning {
		return shared.ErrExpeditionLocked
	}
	idx := -1
	for i, m := range e.Members {
		if m.CharacterID == characterID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return shared.ErrCharacterNotMember
	}
	e.Members = append(e.Members[:idx], e.Members[idx+1:]...)
	e.removeVote(characterID)
	e.UpdatedAt = now
	return nil
}
