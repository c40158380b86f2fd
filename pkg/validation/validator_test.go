package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestIsValidEmail проверяет валидацию почты
func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		value string
		valid bool
	}{
		{"a@b.co", true},
		{"merchant.name-1@mail.example.ru", true},
		{"not-an-email", false},
		{"a@b", false},
		{"", false},
		{"a b@c.ru", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidEmail(tt.value))
		})
	}
}

// TestIsValidURL проверяет валидацию ссылок
func TestIsValidURL(t *testing.T) {
	tests := []struct {
		value string
		valid bool
	}{
		{"https://example.com/x", true},
		{"http://www.t.me/support_bot?start=1", true},
		{"ftp:/bad", false},
		{"example.com", false},
		{"https://nodot", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidURL(tt.value))
		})
	}
}

// TestIsValidPath проверяет валидацию пути магазина
func TestIsValidPath(t *testing.T) {
	assert.True(t, IsValidPath("my-shop_1"))
	assert.True(t, IsValidPath("abc"))
	assert.False(t, IsValidPath("ab"))
	assert.False(t, IsValidPath("path with space"))
	assert.False(t, IsValidPath("магазин"))
	assert.False(t, IsValidPath("a234567890123456789012345678901"))
}

// TestAnalyzePassword проверяет анализ сложности пароля
func TestAnalyzePassword(t *testing.T) {
	a := AnalyzePassword("Abcdef1!")
	assert.Equal(t, PasswordAnalysis{
		Secure: true, HasLength: true, HasLowercase: true, HasUppercase: true, HasDigit: true, HasSymbols: true,
	}, a)

	a = AnalyzePassword("abcdefgh")
	assert.False(t, a.Secure)
	assert.True(t, a.HasLength)
	assert.True(t, a.HasLowercase)
	assert.False(t, a.HasUppercase)
	assert.False(t, a.HasDigit)
	assert.False(t, a.HasSymbols)

	a = AnalyzePassword("Ab1!")
	assert.False(t, a.Secure)
	assert.False(t, a.HasLength)

	// Кириллица не считается буквами из набора
	a = AnalyzePassword("Пароль1!")
	assert.False(t, a.HasLowercase)
	assert.True(t, a.HasSymbols)
}

// TestValidator_ValidateStringLength проверяет длину строки в символах
func TestValidator_ValidateStringLength(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.ValidateStringLength("Оплата", "footer", 6, 100))
	assert.Error(t, v.ValidateStringLength("Опла", "footer", 6, 100))
	assert.Error(t, v.ValidateStringLength("abcdef", "name", 1, 3))
}

// TestValidator_ValidateURL проверяет серверную проверку ссылок
func TestValidator_ValidateURL(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.ValidateURL("https://pay.example.com/r", []string{"http", "https"}))
	assert.Error(t, v.ValidateURL("", nil))
	assert.Error(t, v.ValidateURL("ftp://x.ru", []string{"https"}))
	assert.Error(t, v.ValidateURL("https://", nil))
	assert.Error(t, v.ValidateURL("https://a b.ru", nil))
}

// TestValidator_ValidateEnum проверяет допустимые значения
func TestValidator_ValidateEnum(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.ValidateEnum("methods", []string{"bot", "methods"}, "tab"))
	assert.Error(t, v.ValidateEnum("", []string{"bot"}, "tab"))
	assert.Error(t, v.ValidateEnum("x", []string{"bot"}, "tab"))
}
