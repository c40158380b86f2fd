package ordering

import (
	"fmt"
	"sort"

	"BileePlatform/services/dashboard/internal/api"
)

// DefaultCap максимальное число способов оплаты проекта
const DefaultCap = 8

// Entry способ оплаты в общем порядке
type Entry struct {
	ID       int64 `json:"id"`
	Position int   `json:"position_index"`
	Primary  bool  `json:"primary"`
}

// Layout единая упорядоченная последовательность способов оплаты.
// Основные способы идут перед скрытыми, позиции плотные 1..N.
type Layout struct {
	entries []Entry
	cap     int
}

// Cap возвращает лимит способов оплаты проекта
func Cap(maxPaymentMethods int) int {
	if maxPaymentMethods > 0 {
		return maxPaymentMethods
	}
	return DefaultCap
}

// FromMethods строит порядок из способов оплаты, сортируя их по позиции
func FromMethods(methods []api.PaymentMethod, limit int) *Layout {
	entries := make([]Entry, 0, len(methods))
	for _, m := range methods {
		entries = append(entries, Entry{ID: m.ID, Position: m.PositionIndex, Primary: m.Primary})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Position < entries[j].Position
	})
	return &Layout{entries: entries, cap: Cap(limit)}
}

// Entries возвращает копию последовательности
func (l *Layout) Entries() []Entry {
	return append([]Entry(nil), l.entries...)
}

// Len возвращает число способов оплаты
func (l *Layout) Len() int {
	return len(l.entries)
}

// CanAdd сообщает, не достигнут ли лимит способов оплаты
func (l *Layout) CanAdd() bool {
	return len(l.entries) < l.cap
}

// Primary возвращает идентификаторы основных способов в порядке отображения
func (l *Layout) Primary() []int64 {
	return l.ids(true)
}

// Secondary возвращает идентификаторы скрытых способов в порядке отображения
func (l *Layout) Secondary() []int64 {
	return l.ids(false)
}

func (l *Layout) ids(primary bool) []int64 {
	ids := []int64{}
	for _, e := range l.entries {
		if e.Primary == primary {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// Assign перенумеровывает позиции 1..N: сначала основные, затем скрытые.
// Возвращает позиции для пакетного обновления.
func (l *Layout) Assign() []api.Position {
	ordered := make([]Entry, 0, len(l.entries))
	for _, primary := range []bool{true, false} {
		for _, e := range l.entries {
			if e.Primary == primary {
				ordered = append(ordered, e)
			}
		}
	}

	positions := make([]api.Position, len(ordered))
	for i := range ordered {
		ordered[i].Position = i + 1
		positions[i] = api.Position{ID: ordered[i].ID, PositionIndex: i + 1, Primary: ordered[i].Primary}
	}
	l.entries = ordered
	return positions
}

// Check проверяет инварианты порядка
func (l *Layout) Check() error {
	if len(l.entries) > l.cap {
		return fmt.Errorf("ordering: %d methods exceed cap %d", len(l.entries), l.cap)
	}

	seenSecondary := false
	hasPrimary := false
	for i, e := range l.entries {
		if e.Position != i+1 {
			return fmt.Errorf("ordering: method %d has position %d, want %d", e.ID, e.Position, i+1)
		}
		if e.Primary {
			if seenSecondary {
				return fmt.Errorf("ordering: primary method %d after secondary", e.ID)
			}
			hasPrimary = true
		} else {
			seenSecondary = true
		}
	}

	if len(l.entries) > 0 && !hasPrimary {
		return fmt.Errorf("ordering: no primary method")
	}
	return nil
}

// Remove удаляет способ оплаты и сдвигает позиции следующих.
// Способ на первой позиции становится основным. Если основных не осталось,
// основным становится первый по порядку.
func (l *Layout) Remove(id int64) bool {
	idx := -1
	for i, e := range l.entries {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	removed := l.entries[idx].Position
	l.entries = append(l.entries[:idx], l.entries[idx+1:]...)
	for i := range l.entries {
		if l.entries[i].Position > removed {
			l.entries[i].Position--
		}
	}
	for i := range l.entries {
		if l.entries[i].Position == 1 {
			l.entries[i].Primary = true
		}
	}
	// При разреженных позициях первой может не оказаться
	if len(l.entries) > 0 && len(l.Primary()) == 0 {
		l.entries[0].Primary = true
	}
	return true
}

// Positions возвращает текущие позиции без перенумерации
func (l *Layout) Positions() []api.Position {
	positions := make([]api.Position, len(l.entries))
	for i, e := range l.entries {
		positions[i] = api.Position{ID: e.ID, PositionIndex: e.Position, Primary: e.Primary}
	}
	return positions
}

// Apply переносит позиции и признак основного способа на способы оплаты
// и возвращает их отсортированными
func (l *Layout) Apply(methods []api.PaymentMethod) []api.PaymentMethod {
	byID := make(map[int64]Entry, len(l.entries))
	for _, e := range l.entries {
		byID[e.ID] = e
	}

	out := make([]api.PaymentMethod, 0, len(methods))
	for _, m := range methods {
		e, ok := byID[m.ID]
		if !ok {
			continue
		}
		m.PositionIndex = e.Position
		m.Primary = e.Primary
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PositionIndex < out[j].PositionIndex })
	return out
}
