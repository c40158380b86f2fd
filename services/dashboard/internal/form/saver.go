package form

import (
	"context"
	"sync"
	"time"

	"BileePlatform/pkg/config"
	"BileePlatform/pkg/logger"
)

// State состояние индикатора автосохранения
type State int

const (
	Idle State = iota
	Loading
	Finished
)

// String возвращает имя состояния
func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Finished:
		return "finished"
	default:
		return "idle"
	}
}

// MarshalText кодирует состояние строкой в JSON
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SaveFunc сохраняет значение поля
type SaveFunc[T any] func(ctx context.Context, value T) error

// SaverConfig задержки и число попыток автосохранения
type SaverConfig struct {
	ValidateDelay time.Duration
	SaveDelay     time.Duration
	ResetDelay    time.Duration
	MaxAttempts   int
}

// SaverConfigFrom переводит секцию autosave конфигурации в задержки
func SaverConfigFrom(cfg config.AutosaveConfig) SaverConfig {
	return SaverConfig{
		ValidateDelay: config.MustDuration(cfg.ValidateDelay),
		SaveDelay:     config.MustDuration(cfg.SaveDelay),
		ResetDelay:    config.MustDuration(cfg.ResetDelay),
		MaxAttempts:   cfg.MaxAttempts,
	}
}

// Status снимок состояния поля
type Status[T any] struct {
	Value   T     `json:"value"`
	Invalid bool  `json:"invalid"`
	State   State `json:"state"`
}

// DebouncedSaver сохраняет поле после паузы в редактировании.
//
// Каждое изменение увеличивает номер поколения. Сохранения выполняются по одному
// в порядке поступления. Сохранение устаревшего поколения прекращает повторы,
// и его результат не влияет на индикатор.
type DebouncedSaver[T any] struct {
	cfg       SaverConfig
	valid     func(T) bool
	logger    logger.Logger
	onOutcome func(outcome string)

	ctx    context.Context
	cancel context.CancelFunc
	saveMu sync.Mutex

	mu            sync.Mutex
	save          SaveFunc[T]
	value         T
	invalid       bool
	state         State
	gen           uint64
	closed        bool
	validateTimer *time.Timer
	saveTimer     *time.Timer
	resetTimer    *time.Timer
}

// SaverOption настраивает DebouncedSaver
type SaverOption[T any] func(*DebouncedSaver[T])

// WithOutcome задает обработчик результата сохранения (success, retry, failure)
func WithOutcome[T any](fn func(outcome string)) SaverOption[T] {
	return func(s *DebouncedSaver[T]) { s.onOutcome = fn }
}

// NewDebouncedSaver создает автосохранение поля с начальным значением
func NewDebouncedSaver[T any](cfg SaverConfig, initial T, valid func(T) bool, save SaveFunc[T], log logger.Logger, opts ...SaverOption[T]) *DebouncedSaver[T] {
	if valid == nil {
		valid = func(T) bool { return true }
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &DebouncedSaver[T]{
		cfg:       cfg,
		valid:     valid,
		logger:    log,
		onOutcome: func(string) {},
		ctx:       ctx,
		cancel:    cancel,
		save:      save,
		value:     initial,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set записывает новое значение и перезапускает таймеры проверки и сохранения
func (s *DebouncedSaver[T]) Set(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.value = v
	s.gen++
	gen := s.gen
	if s.invalid && s.valid(v) {
		s.invalid = false
	}

	stopTimer(s.validateTimer)
	s.validateTimer = time.AfterFunc(s.cfg.ValidateDelay, func() { s.validate(gen) })
	stopTimer(s.saveTimer)
	s.saveTimer = time.AfterFunc(s.cfg.SaveDelay, func() { s.flush(gen) })
}

func (s *DebouncedSaver[T]) validate(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen || s.closed {
		return
	}
	s.invalid = !s.valid(s.value)
}

func (s *DebouncedSaver[T]) flush(gen uint64) {
	s.mu.Lock()
	if s.gen != gen || s.closed {
		s.mu.Unlock()
		return
	}
	if !s.valid(s.value) {
		s.invalid = true
		s.state = Idle
		s.mu.Unlock()
		return
	}
	value := s.value
	save := s.save
	s.state = Loading
	stopTimer(s.resetTimer)
	s.mu.Unlock()

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if s.superseded(gen) {
			return
		}

		err := save(s.ctx, value)
		if err == nil {
			s.finish(gen)
			return
		}

		s.onOutcome("retry")
		s.logger.Warn("ошибка автосохранения поля",
			logger.Int("attempt", attempt),
			logger.Int("max_attempts", s.cfg.MaxAttempts),
			logger.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		s.state = Idle
		s.invalid = true
		s.onOutcome("failure")
	}
}

func (s *DebouncedSaver[T]) finish(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen || s.closed {
		return
	}
	s.state = Finished
	s.onOutcome("success")
	s.resetTimer = time.AfterFunc(s.cfg.ResetDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.state == Finished {
			s.state = Idle
		}
	})
}

func (s *DebouncedSaver[T]) superseded(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen != gen || s.closed
}

// Reset останавливает таймеры и задает новое значение без сохранения
// (переключение проекта). save == nil оставляет прежнюю функцию сохранения.
// Запрос, уже отправленный upstream, не прерывается, его результат отбрасывается.
func (s *DebouncedSaver[T]) Reset(value T, save SaveFunc[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimersLocked()
	s.gen++
	s.value = value
	s.invalid = false
	s.state = Idle
	if save != nil {
		s.save = save
	}
}

// Close останавливает таймеры и отменяет текущее сохранение
func (s *DebouncedSaver[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.gen++
	s.stopTimersLocked()
	s.cancel()
}

// Value возвращает текущее значение
func (s *DebouncedSaver[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Invalid сообщает, помечено ли поле ошибочным
func (s *DebouncedSaver[T]) Invalid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invalid
}

// State возвращает состояние индикатора
func (s *DebouncedSaver[T]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status возвращает согласованный снимок значения, ошибки и состояния
func (s *DebouncedSaver[T]) Status() Status[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status[T]{Value: s.value, Invalid: s.invalid, State: s.state}
}

func (s *DebouncedSaver[T]) stopTimersLocked() {
	stopTimer(s.validateTimer)
	stopTimer(s.saveTimer)
	stopTimer(s.resetTimer)
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}
