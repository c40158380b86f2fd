package ordering

import "slices"

// Контейнеры редактора порядка
const (
	ContainerPrimary   = "primary"
	ContainerSecondary = "secondary"
)

// Board состояние перетаскивания: способы оплаты по контейнерам
type Board struct {
	PrimaryIDs   []int64 `json:"primary"`
	SecondaryIDs []int64 `json:"secondary"`
}

// Target цель перетаскивания: контейнер или способ оплаты внутри него
type Target struct {
	Container string `json:"container,omitempty"`
	Item      int64  `json:"item,omitempty"`
}

// IsContainer сообщает, что целью является контейнер
func (t Target) IsContainer() bool {
	return t.Container != ""
}

// NewBoard раскладывает порядок по контейнерам
func NewBoard(l *Layout) *Board {
	return &Board{PrimaryIDs: l.Primary(), SecondaryIDs: l.Secondary()}
}

func (b *Board) items(container string) *[]int64 {
	switch container {
	case ContainerPrimary:
		return &b.PrimaryIDs
	case ContainerSecondary:
		return &b.SecondaryIDs
	}
	return nil
}

// ContainerOf возвращает контейнер способа оплаты
func (b *Board) ContainerOf(id int64) (string, bool) {
	switch {
	case slices.Contains(b.PrimaryIDs, id):
		return ContainerPrimary, true
	case slices.Contains(b.SecondaryIDs, id):
		return ContainerSecondary, true
	}
	return "", false
}

// Locked сообщает, что способ нельзя перетаскивать: это последний основной способ
func (b *Board) Locked(id int64) bool {
	return len(b.PrimaryIDs) == 1 && b.PrimaryIDs[0] == id
}

// Move переносит способ draggable к цели. Перенос на контейнер добавляет в конец.
// С onlyWhenChangingContainer перенос внутри одного контейнера пропускается
// (предпросмотр при наведении). Возвращает true, если состояние изменилось.
func (b *Board) Move(draggable int64, target Target, onlyWhenChangingContainer bool) bool {
	src, ok := b.ContainerOf(draggable)
	if !ok {
		return false
	}

	dst := target.Container
	if !target.IsContainer() {
		if dst, ok = b.ContainerOf(target.Item); !ok {
			return false
		}
	}
	dstItems := b.items(dst)
	if dstItems == nil {
		return false
	}

	if src == dst && onlyWhenChangingContainer {
		return false
	}
	if src != dst && b.Locked(draggable) {
		return false
	}

	index := len(*dstItems)
	if !target.IsContainer() {
		if i := slices.Index(*dstItems, target.Item); i >= 0 {
			index = i
		}
	}

	srcItems := b.items(src)
	*srcItems = slices.DeleteFunc(slices.Clone(*srcItems), func(id int64) bool { return id == draggable })
	index = min(index, len(*dstItems))
	*dstItems = slices.Insert(slices.Clone(*dstItems), index, draggable)
	return true
}

// Layout переводит состояние доски в порядок с позициями 1..N
func (b *Board) Layout(limit int) *Layout {
	entries := make([]Entry, 0, len(b.PrimaryIDs)+len(b.SecondaryIDs))
	for _, id := range b.PrimaryIDs {
		entries = append(entries, Entry{ID: id, Primary: true})
	}
	for _, id := range b.SecondaryIDs {
		entries = append(entries, Entry{ID: id})
	}
	for i := range entries {
		entries[i].Position = i + 1
	}
	return &Layout{entries: entries, cap: Cap(limit)}
}
