// Package amount форматирует суммы в поле ввода и сохраняет позицию курсора.
package amount

import (
	"strconv"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// maxFractionDigits совпадает с форматом чисел браузера по умолчанию
const maxFractionDigits = 3

const nbsp = "\u00a0"

// Formatter форматирует числа по правилам локали
type Formatter struct {
	mu      sync.Mutex
	printer *message.Printer

	thousands string
	decimal   string
}

// Russian форматтер локали ru
var Russian = NewFormatter(language.Russian)

// NewFormatter создает форматтер. Разделители определяются форматированием 1000 и 0.01.
func NewFormatter(tag language.Tag) *Formatter {
	f := &Formatter{printer: message.NewPrinter(tag)}
	f.thousands = nonDigits(f.format(1000))
	f.decimal = nonDigits(f.format(0.01))
	return f
}

// ThousandSeparator возвращает разделитель разрядов
func (f *Formatter) ThousandSeparator() string {
	return f.thousands
}

// DecimalSeparator возвращает десятичный разделитель
func (f *Formatter) DecimalSeparator() string {
	return f.decimal
}

func (f *Formatter) format(v float64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.printer.Sprint(number.Decimal(v, number.MaxFractionDigits(maxFractionDigits)))
}

// FormatFloat форматирует число для отображения
func (f *Formatter) FormatFloat(v float64) string {
	return f.format(v)
}

// Format форматирует число, записанное с точкой в качестве десятичного разделителя
func (f *Formatter) Format(num string) (string, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil {
		return "", err
	}
	return f.format(v), nil
}

// Parse разбирает отформатированную сумму
func (f *Formatter) Parse(display string) (float64, error) {
	return strconv.ParseFloat(f.normalize(display), 64)
}

// stripThousands удаляет разделители разрядов. Обычные пробелы считаются разделителями.
func (f *Formatter) stripThousands(s string) string {
	s = strings.ReplaceAll(s, " ", nbsp)
	if f.thousands != "" {
		s = strings.ReplaceAll(s, f.thousands, "")
	}
	return strings.ReplaceAll(s, nbsp, "")
}

// normalize приводит ввод к виду, который понимает strconv
func (f *Formatter) normalize(s string) string {
	s = f.stripThousands(s)
	if f.decimal != "" {
		s = strings.Replace(s, f.decimal, ".", 1)
	}
	return strings.TrimSpace(s)
}

// State хранит последний отформатированный текст поля
type State struct {
	Current string `json:"current"`
}

// Reformat форматирует текст поля после ввода и возвращает новую позицию курсора.
// Позиции считаются в символах (rune).
//
// Удаление разделителя разрядов удаляет цифру перед ним. Десятичный разделитель
// в конце, а также он же с одним, двумя или тремя нулями, сохраняется.
// Нечисловой ввод возвращается без изменений.
func (f *Formatter) Reformat(st *State, text string, caret int) (string, int) {
	if text == "" {
		return text, caret
	}

	before := []rune(text)
	caret = clamp(caret, 0, len(before))
	nonDigitsBefore := countNonDigits(text)

	out, err := f.Format(f.normalize(text))
	if err != nil {
		return text, caret
	}

	if caret > 0 && st.Current == out &&
		st.Current == string(before[:caret])+f.thousands+string(before[caret:]) {
		trimmed := string(before[:caret-1]) + string(before[caret:])
		if trimmed == "" {
			out = ""
		} else if formatted, err := f.Format(f.normalize(trimmed)); err == nil {
			out = formatted
		}
		caret--
	}

	if f.decimal != "" && hasDecimalTail(text, f.decimal) {
		out += text[strings.Index(text, f.decimal):]
	}

	caret += countNonDigits(out) - nonDigitsBefore
	caret = clamp(caret, 0, len([]rune(out)))

	st.Current = out
	return out, caret
}

func hasDecimalTail(text, sep string) bool {
	for _, tail := range []string{"", "0", "00", "000"} {
		if strings.HasSuffix(text, sep+tail) {
			return true
		}
	}
	return false
}

func nonDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return -1
		}
		return r
	}, s)
}

func countNonDigits(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			n++
		}
	}
	return n
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
