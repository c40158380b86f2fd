package form

// Field значение поля формы с предикатом валидности.
// Флаг ошибки выставляется при потере фокуса или явно, а снимается
// только когда новое значение проходит проверку.
// Field не синхронизирован: он принадлежит одному запросу.
type Field[T comparable] struct {
	value   T
	initial T
	valid   func(T) bool
	invalid bool
	message string
}

// NewField создает поле с начальным значением. valid == nil принимает любое значение.
func NewField[T comparable](initial T, valid func(T) bool) *Field[T] {
	if valid == nil {
		valid = func(T) bool { return true }
	}
	return &Field[T]{value: initial, initial: initial, valid: valid}
}

// Value возвращает текущее значение
func (f *Field[T]) Value() T {
	return f.value
}

// Set записывает значение и снимает ошибку, если значение валидно
func (f *Field[T]) Set(v T) {
	f.value = v
	if f.invalid && f.valid(v) {
		f.invalid = false
		f.message = ""
	}
}

// FocusOut проверяет значение, как при уходе фокуса с поля
func (f *Field[T]) FocusOut() {
	f.invalid = !f.valid(f.value)
}

// Invalidate помечает поле ошибочным с сообщением для пользователя
func (f *Field[T]) Invalidate(message string) {
	f.invalid = true
	f.message = message
}

// Invalid сообщает, выставлен ли флаг ошибки
func (f *Field[T]) Invalid() bool {
	return f.invalid
}

// Message возвращает сообщение об ошибке
func (f *Field[T]) Message() string {
	if !f.invalid {
		return ""
	}
	return f.message
}

// IsValid сообщает, что значение проходит проверку и поле не помечено ошибочным
func (f *Field[T]) IsValid() bool {
	return f.valid(f.value) && !f.invalid
}

// Filled сообщает, что значение отличается от нулевого
func (f *Field[T]) Filled() bool {
	var zero T
	return f.value != zero
}

// Reset возвращает начальное значение и снимает ошибку
func (f *Field[T]) Reset() {
	f.value = f.initial
	f.invalid = false
	f.message = ""
}

// Filler поле, про которое известно, заполнено ли оно
type Filler interface {
	Filled() bool
}

// AreFieldsFilled разрешает отправку формы, когда все поля заполнены
func AreFieldsFilled(fields ...Filler) bool {
	for _, f := range fields {
		if !f.Filled() {
			return false
		}
	}
	return true
}

// Validator поле, про которое известно, валидно ли оно
type Validator interface {
	IsValid() bool
}

// AllValid сообщает, что все поля валидны
func AllValid(fields ...Validator) bool {
	for _, f := range fields {
		if !f.IsValid() {
			return false
		}
	}
	return true
}
