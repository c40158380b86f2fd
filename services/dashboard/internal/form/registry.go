package form

import "sync"

// Key идентифицирует автосохраняемое поле мерчанта
type Key struct {
	SessionID string
	ProjectID int64
	Field     string
}

// Registry хранит автосохранения полей по сессии, проекту и имени поля
type Registry[T any] struct {
	mu     sync.Mutex
	savers map[Key]*DebouncedSaver[T]
}

// NewRegistry создает пустой реестр
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{savers: make(map[Key]*DebouncedSaver[T])}
}

// GetOrCreate возвращает автосохранение поля, создавая его при первом обращении
func (r *Registry[T]) GetOrCreate(key Key, create func() *DebouncedSaver[T]) *DebouncedSaver[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.savers[key]; ok {
		return s
	}
	s := create()
	r.savers[key] = s
	return s
}

// Get возвращает автосохранение поля
func (r *Registry[T]) Get(key Key) (*DebouncedSaver[T], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.savers[key]
	return s, ok
}

// DropProject закрывает автосохранения проекта (после удаления проекта)
func (r *Registry[T]) DropProject(projectID int64) {
	r.drop(func(k Key) bool { return k.ProjectID == projectID })
}

// DropSession закрывает автосохранения сессии
func (r *Registry[T]) DropSession(sessionID string) {
	r.drop(func(k Key) bool { return k.SessionID == sessionID })
}

// Close закрывает все автосохранения
func (r *Registry[T]) Close() {
	r.drop(func(Key) bool { return true })
}

// Len возвращает количество полей в реестре
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.savers)
}

func (r *Registry[T]) drop(match func(Key) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for k, s := range r.savers {
		if match(k) {
			s.Close()
			delete(r.savers, k)
		}
	}
}
