package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"BileePlatform/pkg/logger"
	"BileePlatform/pkg/metrics"
)

// Store хранит сессии по идентификатору из cookie дашборда
type Store struct {
	refresher Refresher
	idle      time.Duration
	logger    logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
	onEvict  []func(id string)
}

type entry struct {
	session  *Session
	lastSeen time.Time
}

// NewStore создает хранилище сессий с таймаутом простоя idle
func NewStore(refresher Refresher, idle time.Duration, log logger.Logger, m *metrics.Metrics) *Store {
	return &Store{
		refresher: refresher,
		idle:      idle,
		logger:    log,
		metrics:   m,
		now:       time.Now,
		sessions:  make(map[string]*entry),
	}
}

// NewID генерирует идентификатор сессии
func NewID() string {
	return uuid.NewString()
}

// Touch создает или обновляет сессию данными текущего запроса
func (s *Store) Touch(id, token, cookie string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		e = &entry{session: New(s.refresher, token, cookie)}
		s.sessions[id] = e
		s.reportLocked()
	} else {
		e.session.Update(token, cookie)
	}
	e.lastSeen = s.now()
	return e.session
}

// Get возвращает сессию по идентификатору
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = s.now()
	return e.session, true
}

// OnEvict регистрирует обработчик удаления сессии. Обработчики вызываются
// вне блокировки хранилища после Delete и Evict.
func (s *Store) OnEvict(fn func(id string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvict = append(s.onEvict, fn)
}

// Delete очищает и удаляет сессию
func (s *Store) Delete(id string) {
	s.mu.Lock()
	e, ok := s.sessions[id]
	if ok {
		e.session.Clear()
		delete(s.sessions, id)
		s.reportLocked()
	}
	callbacks := s.onEvict
	s.mu.Unlock()

	if ok {
		notify(callbacks, []string{id})
	}
}

// Len возвращает количество активных сессий
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Evict удаляет сессии, простаивающие дольше таймаута. Возвращает число удаленных.
func (s *Store) Evict() int {
	s.mu.Lock()
	now := s.now()
	var removed []string
	for id, e := range s.sessions {
		if now.Sub(e.lastSeen) > s.idle {
			e.session.Clear()
			delete(s.sessions, id)
			removed = append(removed, id)
		}
	}
	if len(removed) > 0 {
		s.reportLocked()
	}
	callbacks := s.onEvict
	s.mu.Unlock()

	notify(callbacks, removed)
	return len(removed)
}

func notify(callbacks []func(id string), ids []string) {
	for _, id := range ids {
		for _, fn := range callbacks {
			fn(id)
		}
	}
}

// Run периодически вытесняет простаивающие сессии до отмены контекста
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Evict(); n > 0 {
				s.logger.Debug("вытеснены неактивные сессии", logger.Int("count", n))
			}
		}
	}
}

func (s *Store) reportLocked() {
	if s.metrics != nil {
		s.metrics.ActiveSessions.Set(float64(len(s.sessions)))
	}
}
