package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	urlRegex   = regexp.MustCompile(`^https?://(?:www\.)?[-a-zA-Z0-9@:%._+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b(?:[-a-zA-Z0-9()@:%_+.~#?&/=]*)$`)
	emailRegex = regexp.MustCompile(`^[\w\-.]+@([\w-]+\.)+[\w-]+$`)
	pathRegex  = regexp.MustCompile(`^[A-Za-z0-9_-]{3,30}$`)
)

// passwordSymbols допустимые спецсимволы пароля
const passwordSymbols = "-#!$@£%^&*()_+|~=`{}[]:\";'<>?,./\\ "

// IsValidURL проверяет http(s) адрес (ссылка поддержки, webhook)
func IsValidURL(value string) bool {
	return urlRegex.MatchString(value)
}

// IsValidEmail проверяет адрес почты
func IsValidEmail(value string) bool {
	return emailRegex.MatchString(value)
}

// IsValidPath проверяет путь магазина: 3-30 символов из латиницы, цифр, '-' и '_'
func IsValidPath(value string) bool {
	return pathRegex.MatchString(value)
}

// PasswordAnalysis результат проверки сложности пароля
type PasswordAnalysis struct {
	Secure       bool `json:"secure"`
	HasLength    bool `json:"has_length"`
	HasLowercase bool `json:"has_lowercase"`
	HasUppercase bool `json:"has_uppercase"`
	HasDigit     bool `json:"has_digit"`
	HasSymbols   bool `json:"has_symbols"`
}

// AnalyzePassword проверяет длину (не менее 8 символов) и наличие
// строчных и заглавных латинских букв, цифр и спецсимволов
func AnalyzePassword(password string) PasswordAnalysis {
	var a PasswordAnalysis
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			a.HasUppercase = true
		case r >= 'a' && r <= 'z':
			a.HasLowercase = true
		case r >= '0' && r <= '9':
			a.HasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			a.HasSymbols = true
		}
	}
	a.HasLength = utf8.RuneCountInString(password) >= 8
	a.Secure = a.HasLength && a.HasLowercase && a.HasUppercase && a.HasDigit && a.HasSymbols
	return a
}

// Validator предоставляет серверные проверки параметров форм
type Validator struct{}

// NewValidator создает новый Validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateURL проверяет корректность URL
func (v *Validator) ValidateURL(target string, allowedSchemes []string) error {
	if target == "" {
		return fmt.Errorf("target is required")
	}

	if strings.ContainsAny(target, " \t\n\r") {
		return fmt.Errorf("URL contains invalid whitespace characters")
	}

	parsedURL, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	if len(allowedSchemes) > 0 {
		schemeValid := false
		for _, scheme := range allowedSchemes {
			if parsedURL.Scheme == scheme {
				schemeValid = true
				break
			}
		}
		if !schemeValid {
			return fmt.Errorf("URL must use one of allowed schemes %v, got: %s", allowedSchemes, parsedURL.Scheme)
		}
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("URL must have a valid host")
	}

	return nil
}

// ValidateEnum проверяет значение на соответствие enum
func (v *Validator) ValidateEnum(value string, allowedValues []string, fieldName string) error {
	if value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	for _, allowed := range allowedValues {
		if value == allowed {
			return nil
		}
	}

	return fmt.Errorf("invalid %s: %s, allowed values: %v", fieldName, value, allowedValues)
}

// ValidateStringLength проверяет длину строки в символах
func (v *Validator) ValidateStringLength(value, fieldName string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if length < min {
		return fmt.Errorf("%s must be at least %d characters, got: %d", fieldName, min, length)
	}
	if length > max {
		return fmt.Errorf("%s must not exceed %d characters, got: %d", fieldName, max, length)
	}
	return nil
}
