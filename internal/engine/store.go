package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/momentum-hub/progression-engine/internal/domain/session"
	"github.com/momentum-hub/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SINGLE-WRITER STORE
// ══════════════════════════════════════════════════════════════════════════════

// Mutator - мутация состояния внутри транзакции store. Получает копию
// состояния; вернула ошибку - копия выбрасывается, оригинал не тронут.
type Mutator func(st *State, now time.Time) error

// Reader - read-only доступ к состоянию под блокировкой.
type Reader func(st *State)

// Store сериализует все мутации состояния через один мьютекс: обработчики
// команд и фоновые задачи никогда не видят частично изменённое состояние.
//
// Дисциплина fail-closed: Dispatch клонирует состояние, передаёт копию
// мутатору и подменяет оригинал только при nil-ошибке.
type Store struct {
	mu     sync.Mutex
	state  *State
	clock  shared.Clock
	logger *slog.Logger
	closed bool
}

// NewStore создаёт store поверх начального состояния.
func NewStore(initial *State, clock shared.Clock, logger *slog.Logger) *Store {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		state:  initial,
		clock:  clock,
		logger: logger,
	}
}

// Dispatch выполняет мутацию атомарно. Имя команды попадает в логи.
func (s *Store) Dispatch(ctx context.Context, command string, fn Mutator) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return shared.ErrStoreClosed
	}

	now := s.clock.Now()
	next := s.state.Clone()

	if err := fn(next, now); err != nil {
		s.logger.Warn("command rejected",
			slog.String("command", command),
			slog.String("error", err.Error()),
		)
		return err
	}

	next.UpdatedAt = now
	s.state = next

	s.logger.Debug("command applied", slog.String("command", command))
	return nil
}

// View выполняет read-only доступ. Reader получает живое состояние и не
// должен его мутировать или удерживать ссылки после возврата.
func (s *Store) View(fn Reader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

// Snapshot возвращает глубокую копию текущего состояния. Безопасна для
// сериализации вне блокировки.
func (s *Store) Snapshot() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Restore подменяет состояние восстановленным снапшотом.
func (s *Store) Restore(st *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return shared.ErrStoreClosed
	}
	s.state = st.Clone()
	return nil
}

// Clock возвращает источник времени store.
func (s *Store) Clock() shared.Clock {
	return s.clock
}

// Close принудительно закрывает открытую сессию, чтобы накопленное время
// не потерялось, и запрещает дальнейшие мутации. Идемпотентен.
func (s *Store) Close() *State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.state.Clone()
	}

	now := s.clock.Now()
	next := s.state.Clone()
	if dur, stopped := session.Stop(&next.Session, now); stopped {
		s.logger.Info("open session force-stopped on shutdown",
			slog.Duration("duration", dur),
		)
		next.UpdatedAt = now
		s.state = next
	}

	s.closed = true
	return s.state.Clone()
}
