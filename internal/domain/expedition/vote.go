package expedition

import (
	"time"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ГОЛОСОВАНИЕ ЗА ЭКСТРЕННОЕ ВОЗВРАЩЕНИЕ
// ══════════════════════════════════════════════════════════════════════════════

// VoteResult - итог переключения голоса.
type VoteResult struct {
	Voted            bool `json:"voted"`
	TotalVotes       int  `json:"totalVotes"`
	MembersCount     int  `json:"membersCount"`
	ThresholdReached bool `json:"thresholdReached"`
}

// HasVoted проверяет, голосовал ли участник.
func (e *Expedition) HasVoted(characterID shared.CharacterID) bool {
	for _, v := range e.Votes {
		if v == characterID {
			return true
		}
	}
	return false
}

// QuorumReached - строгое большинство текущих участников: votes > members/2.
// Ничья кворумом не считается.
func (e *Expedition) QuorumReached() bool {
	return len(e.Votes)*2 > len(e.Members)
}

// ToggleVote переключает голос участника за экстренное возвращение.
// Доступно только в пути; кворум сам по себе возвращение не запускает -
// его замечает следующая проверка состояния (тик или немедленный вызов).
func (e *Expedition) ToggleVote(characterID shared.CharacterID, now time.Time) (VoteResult, error) {
	if e.Status != StatusDeparted {
		return VoteResult{}, shared.ErrVoteNotOpen
	}
	if !e.IsMember(characterID) {
		return VoteResult{}, shared.ErrCharacterNotMember
	}

	voted := !e.HasVoted(characterID)
	if voted {
		e.Votes = append(e.Votes, characterID)
	} else {
		e.removeVote(characterID)
	}
	e.UpdatedAt = now

	return VoteResult{
		Voted:            voted,
		TotalVotes:       len(e.Votes),
		MembersCount:     len(e.Members),
		ThresholdReached: e.QuorumReached(),
	}, nil
}

func (e *Expedition) removeVote(characterID shared.CharacterID) {
	for i, v := range e.Votes {
		if v == characterID {
			e.Votes = append(e.Votes[:i], e.Votes[i+1:]...)
			return
		}
	}
}
