// Package jobs содержит плановые задания жизненного цикла экспедиций:
// полуночный лок, утренний выход, ежедневный перенос направления и метлу
// возвращений. Каждое задание - тонкая обёртка над командой приложения:
// выборка кандидатов плюс цикл с подсчётом результатов.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bourgade-rp/bourgade-hub/internal/application/command"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/expedition"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
	"github.com/bourgade-rp/bourgade-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// LOCK EXPEDITIONS JOB
// ══════════════════════════════════════════════════════════════════════════════

// LockExpeditionsJob замораживает все PLANNING-экспедиции, созданные до начала
// текущих игровых суток. Запускается ежедневно в полночь игрового времени.
type LockExpeditionsJob struct {
	expeditions expedition.Store
	lock        *command.LockExpeditionHandler
	logger      *slog.Logger
	location    *time.Location
	clock       command.Clock
	timeout     time.Duration
}

// NewLockExpeditionsJob создаёт новое задание.
func NewLockExpeditionsJob(
	expeditions expedition.Store,
	lock *command.LockExpeditionHandler,
	logger *slog.Logger,
	location *time.Location,
	clock command.Clock,
) *LockExpeditionsJob {
	if logger == nil {
		logger = slog.Default()
	}
	if location == nil {
		location = timeutil.GameLocation()
	}
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &LockExpeditionsJob{
		expeditions: expeditions,
		lock:        lock,
		logger:      logger,
		location:    location,
		clock:       clock,
		timeout:     5 * time.Minute,
	}
}

// Name implements scheduler.Job.
func (j *LockExpeditionsJob) Name() string {
	return "lock_expeditions"
}

// Description implements scheduler.Job.
func (j *LockExpeditionsJob) Description() string {
	return "locks planning expeditions at game midnight"
}

// Run замораживает кандидатов по одному. Ошибка одного кандидата не
// останавливает обход: экспедиция могла измениться между выборкой и локом.
func (j *LockExpeditionsJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	now := j.clock()
	cutoff := timeutil.StartOfDay(now, j.location)

	ids, err := j.expeditions.ListPlanningCreatedBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		j.logger.Debug("no expeditions due for lock")
		return nil
	}

	var locked, terminated, failed int
	for _, id := range ids {
		result, err := j.lock.Handle(ctx, command.LockExpeditionCommand{ExpeditionID: id.String()})
		switch {
		case err == nil && result.Terminated:
			terminated++
		case err == nil:
			locked++
		case errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrStateTransition):
			// Кандидат успел измениться - пропускаем.
		default:
			failed++
			j.logger.Error("lock failed", "expedition_id", id.String(), "error", err)
		}
	}

	j.logger.Info("lock sweep finished",
		"candidates", len(ids),
		"locked", locked,
		"terminated", terminated,
		"failed", failed,
	)
	return nil
}
