package ordering

import "slices"

// Rect прямоугольник элемента в координатах страницы
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// CenterY возвращает вертикальный центр
func (r Rect) CenterY() float64 {
	return r.Y + r.Height/2
}

func (r Rect) area() float64 {
	return r.Width * r.Height
}

// intersectionRatio отношение площади пересечения к площади объединения
func intersectionRatio(a, b Rect) float64 {
	w := min(a.X+a.Width, b.X+b.Width) - max(a.X, b.X)
	h := min(a.Y+a.Height, b.Y+b.Height) - max(a.Y, b.Y)
	if w <= 0 || h <= 0 {
		return 0
	}
	inter := w * h
	union := a.area() + b.area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Draggable перетаскиваемый способ оплаты с текущим (смещенным) прямоугольником
type Draggable struct {
	ID   int64 `json:"id"`
	Rect Rect  `json:"rect"`
}

// Droppable цель с прямоугольником
type Droppable struct {
	Target Target `json:"target"`
	Rect   Rect   `json:"rect"`
}

// mostIntersecting выбирает цель с наибольшим пересечением. При равенстве
// предпочитается активная цель.
func mostIntersecting(rect Rect, candidates []Droppable, active *Target) (Droppable, bool) {
	var best Droppable
	bestRatio := 0.0
	found := false
	for _, d := range candidates {
		ratio := intersectionRatio(rect, d.Rect)
		switch {
		case ratio > bestRatio:
			best, bestRatio, found = d, ratio, true
		case ratio > 0 && ratio == bestRatio && active != nil && d.Target == *active:
			best = d
		}
	}
	return best, found
}

// ClosestContainerOrItem определяет цель перетаскивания: сначала контейнер
// с наибольшим пересечением, затем способ оплаты внутри него. Если при переходе
// в другой контейнер ближайший способ последний и центр перетаскиваемого ниже
// его центра, целью становится контейнер (добавление в конец).
func (b *Board) ClosestContainerOrItem(draggable Draggable, droppables []Droppable, active *Target) (Target, bool) {
	var containers []Droppable
	for _, d := range droppables {
		if d.Target.IsContainer() {
			containers = append(containers, d)
		}
	}

	container, ok := mostIntersecting(draggable.Rect, containers, active)
	if !ok {
		return Target{}, false
	}

	items := b.items(container.Target.Container)
	if items == nil {
		return Target{}, false
	}

	var inContainer []Droppable
	for _, d := range droppables {
		if !d.Target.IsContainer() && slices.Contains(*items, d.Target.Item) {
			inContainer = append(inContainer, d)
		}
	}

	item, ok := mostIntersecting(draggable.Rect, inContainer, active)
	if !ok {
		return container.Target, true
	}

	if src, _ := b.ContainerOf(draggable.ID); src != container.Target.Container {
		last := (*items)[len(*items)-1] == item.Target.Item
		if last && draggable.Rect.CenterY() > item.Rect.CenterY() {
			return container.Target, true
		}
	}
	return item.Target, true
}
