package http

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"strings"

	pkgErrors "BileePlatform/pkg/errors"
	"BileePlatform/pkg/logger"
	"BileePlatform/services/dashboard/internal/api"
	"BileePlatform/services/dashboard/internal/events"
	"BileePlatform/services/dashboard/internal/form"
	"BileePlatform/services/dashboard/internal/ordering"
	"BileePlatform/services/dashboard/internal/resource"
)

const (
	maxMethodAmount = 1000000
	msgMethodsLimit = "Достигнут лимит способов оплаты"
	msgRangeOrder   = "Минимальная сумма больше максимальной"
	msgNoIcon       = "Выберите иконку"
	msgNoSystem     = "Выберите платежную систему"
)

func (h *Handler) methods(ctx context.Context, r *http.Request, p api.Project, t string) ([]api.PaymentMethod, error) {
	return resource.Load(ctx, h.cache, scope(r), resource.Methods(p.ID), func(ctx context.Context) ([]api.PaymentMethod, error) {
		return h.backend.Methods(ctx, t, p.ID)
	})
}

func (h *Handler) methodsView(ctx context.Context, r *http.Request, p api.Project, t string) (*methodsView, error) {
	methods, err := h.methods(ctx, r, p, t)
	if err != nil {
		return nil, err
	}
	icons, err := h.catalog.Icons(ctx, t)
	if err != nil {
		return nil, err
	}
	systems, err := h.catalog.PaymentSystems(ctx, t)
	if err != nil {
		return nil, err
	}

	l := ordering.FromMethods(methods, p.MaxPaymentMethods)
	return &methodsView{
		Primary:   rows(l, methods, true),
		Secondary: rows(l, methods, false),
		CanAdd:    l.CanAdd(),
		Cap:       ordering.Cap(p.MaxPaymentMethods),
		Icons:     icons,
		Systems:   systems,
		NewForm:   &methodFormView{New: true, Enabled: true, Params: map[int64]string{}},
	}, nil
}

// methodForm поля формы способа оплаты
type methodForm struct {
	name                *form.Field[string]
	minAmount           *form.Field[string]
	maxAmount           *form.Field[string]
	commission          *form.Field[string]
	minCommissionAmount *form.Field[string]
	iconID              int64
	paymentSystemID     int64
	enabled             bool
	params              map[int64]string
	err                 string
}

func (h *Handler) newMethodForm() *methodForm {
	inRange := func(v string) bool {
		n, err := h.amounts.Parse(v)
		return v != "" && err == nil && n >= 0 && n <= maxMethodAmount
	}
	return &methodForm{
		name:      form.NewField("", func(v string) bool { return v != "" }),
		minAmount: form.NewField("", inRange),
		maxAmount: form.NewField("", inRange),
		commission: form.NewField("", func(v string) bool {
			n, err := h.amounts.Parse(v)
			return v != "" && err == nil && n >= 0 && n < 100
		}),
		minCommissionAmount: form.NewField("", inRange),
		enabled:             true,
		params:              map[int64]string{},
	}
}

func (f *methodForm) bind(r *http.Request) {
	set := func(field *form.Field[string], key string) {
		field.Set(strings.TrimSpace(r.PostFormValue(key)))
		field.FocusOut()
	}
	set(f.name, "name")
	set(f.minAmount, "min_amount")
	set(f.maxAmount, "max_amount")
	set(f.commission, "commission")
	set(f.minCommissionAmount, "min_commission_amount")
	f.iconID, _ = strconv.ParseInt(r.PostFormValue("icon_id"), 10, 64)
	f.paymentSystemID, _ = strconv.ParseInt(r.PostFormValue("payment_system_id"), 10, 64)
	f.enabled = r.PostFormValue("enabled") != ""

	for key, values := range r.PostForm {
		id, ok := strings.CutPrefix(key, "param_")
		if !ok || len(values) == 0 {
			continue
		}
		if pid, err := strconv.ParseInt(id, 10, 64); err == nil {
			f.params[pid] = strings.TrimSpace(values[0])
		}
	}
}

func (f *methodForm) view(id int64) *methodFormView {
	return &methodFormView{
		ID:                  id,
		New:                 id == 0,
		Name:                viewOf(f.name),
		MinAmount:           viewOf(f.minAmount),
		MaxAmount:           viewOf(f.maxAmount),
		Commission:          viewOf(f.commission),
		MinCommissionAmount: viewOf(f.minCommissionAmount),
		IconID:              f.iconID,
		PaymentSystemID:     f.paymentSystemID,
		Enabled:             f.enabled,
		Params:              f.params,
		Error:               f.err,
	}
}

// buildMethod проверяет форму и собирает тело запроса. false означает ошибку в полях.
func (h *Handler) buildMethod(ctx context.Context, t string, f *methodForm) (api.PaymentMethodCreate, bool, error) {
	var req api.PaymentMethodCreate

	filled := form.AreFieldsFilled(f.name, f.minAmount, f.maxAmount, f.commission, f.minCommissionAmount)
	valid := form.AllValid(f.name, f.minAmount, f.maxAmount, f.commission, f.minCommissionAmount)
	if !filled || !valid {
		return req, false, nil
	}
	if f.iconID <= 0 {
		f.err = msgNoIcon
		return req, false, nil
	}

	parse := func(field *form.Field[string]) float64 {
		n, _ := h.amounts.Parse(field.Value())
		return n
	}
	minAmount, maxAmount := parse(f.minAmount), parse(f.maxAmount)
	if minAmount > maxAmount {
		f.minAmount.Invalidate(msgRangeOrder)
		f.maxAmount.Invalidate(msgRangeOrder)
		return req, false, nil
	}

	system, err := h.catalog.PaymentSystem(ctx, t, f.paymentSystemID)
	if err != nil {
		return req, false, err
	}
	if system == nil {
		f.err = msgNoSystem
		return req, false, nil
	}
	params, msg := methodParams(system, f.params)
	if msg != "" {
		f.err = msg
		return req, false, nil
	}

	return api.PaymentMethodCreate{
		Name:                f.name.Value(),
		IconID:              f.iconID,
		MinAmount:           minAmount,
		MaxAmount:           maxAmount,
		Commission:          parse(f.commission),
		MinCommissionAmount: parse(f.minCommissionAmount),
		PaymentSystemID:     system.ID,
		Params:              params,
		Enabled:             f.enabled,
	}, true, nil
}

// methodParams приводит технические параметры к типам платежной системы
func methodParams(system *api.PaymentSystem, raw map[int64]string) ([]api.ParamData, string) {
	params := make([]api.ParamData, 0, len(system.MethodParams))
	for _, mp := range system.MethodParams {
		v, ok := raw[mp.ID]
		if !ok || v == "" {
			if mp.Type == api.ParamBoolean {
				params = append(params, api.ParamData{ParamID: mp.ID, Value: false})
				continue
			}
			if !mp.IsOptional {
				return nil, "Заполните параметр «" + mp.Name + "»"
			}
			continue
		}

		var value interface{}
		switch mp.Type {
		case api.ParamInt:
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, "Параметр «" + mp.Name + "» должен быть целым числом"
			}
			value = n
		case api.ParamFloat:
			n, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
			if err != nil {
				return nil, "Параметр «" + mp.Name + "» должен быть числом"
			}
			value = n
		case api.ParamBoolean:
			value = v == "on" || v == "true"
		case api.ParamEnum:
			if !slices.Contains(mp.Enum, v) {
				return nil, "Недопустимое значение параметра «" + mp.Name + "»"
			}
			value = v
		default:
			value = v
		}
		params = append(params, api.ParamData{ParamID: mp.ID, Value: value})
	}
	return params, ""
}

// methodFormFailed возвращает вкладку способов оплаты с ошибками формы
func (h *Handler) methodFormFailed(r *http.Request, f *methodForm, id int64) (Result, error) {
	v, err := h.shopView(r, "methods")
	if err != nil {
		return nil, err
	}
	v.Methods.attach(f.view(id))
	return Rendered{Template: "shop", Data: v, Status: http.StatusUnprocessableEntity}, nil
}

func (h *Handler) methodsTab(p api.Project) Redirect {
	return Redirect{Location: h.cfg.DashboardPrefix + "/" + p.Link + "?tab=methods"}
}

func (h *Handler) handleCreateMethod(w http.ResponseWriter, r *http.Request) (Result, error) {
	ctx := r.Context()
	p, t, err := h.project(r)
	if err != nil {
		return nil, err
	}

	f := h.newMethodForm()
	f.bind(r)

	methods, err := h.methods(ctx, r, p, t)
	if err != nil {
		return nil, err
	}
	if !ordering.FromMethods(methods, p.MaxPaymentMethods).CanAdd() {
		f.err = msgMethodsLimit
		return h.methodFormFailed(r, f, 0)
	}

	req, ok, err := h.buildMethod(ctx, t, f)
	if err != nil {
		return nil, err
	}
	if !ok {
		return h.methodFormFailed(r, f, 0)
	}

	created, err := h.backend.CreateMethod(ctx, t, p.ID, req)
	if err != nil {
		if e, ok := pkgErrors.As(err); ok && !unauthenticated(err) && e.Code != pkgErrors.ErrTransport {
			f.err = e.GetUserMessage()
			return h.methodFormFailed(r, f, 0)
		}
		return nil, err
	}

	h.methodsChanged(r, p)
	h.events.Emit(ctx, events.New(ctx, events.MethodCreated, p.ID, map[string]interface{}{
		"method_id": created.ID,
		"name":      created.Name,
	}))
	return h.methodsTab(p), nil
}

func (h *Handler) handleUpdateMethod(w http.ResponseWriter, r *http.Request) (Result, error) {
	ctx := r.Context()
	p, t, err := h.project(r)
	if err != nil {
		return nil, err
	}
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	if _, err := h.findMethod(ctx, r, p, t, id); err != nil {
		return nil, err
	}

	f := h.newMethodForm()
	f.bind(r)
	req, ok, err := h.buildMethod(ctx, t, f)
	if err != nil {
		return nil, err
	}
	if !ok {
		return h.methodFormFailed(r, f, id)
	}

	if err := h.backend.UpdateMethod(ctx, t, p.ID, id, req); err != nil {
		if e, ok := pkgErrors.As(err); ok && !unauthenticated(err) && e.Code != pkgErrors.ErrTransport {
			f.err = e.GetUserMessage()
			return h.methodFormFailed(r, f, id)
		}
		return nil, err
	}

	h.methodsChanged(r, p)
	h.events.Emit(ctx, events.New(ctx, events.MethodUpdated, p.ID, map[string]interface{}{
		"method_id": id,
		"enabled":   req.Enabled,
	}))
	return h.methodsTab(p), nil
}

func (h *Handler) findMethod(ctx context.Context, r *http.Request, p api.Project, t string, id int64) (api.PaymentMethod, error) {
	methods, err := h.methods(ctx, r, p, t)
	if err != nil {
		return api.PaymentMethod{}, err
	}
	for _, m := range methods {
		if m.ID == id {
			return m, nil
		}
	}
	return api.PaymentMethod{}, pkgErrors.New(pkgErrors.ErrNotFound, "payment method not found")
}

func (h *Handler) handleDeleteMethod(w http.ResponseWriter, r *http.Request) (Result, error) {
	ctx := r.Context()
	p, t, err := h.project(r)
	if err != nil {
		return nil, err
	}
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	methods, err := h.methods(ctx, r, p, t)
	if err != nil {
		return nil, err
	}

	l := ordering.FromMethods(methods, p.MaxPaymentMethods)
	if !l.Remove(id) {
		return nil, pkgErrors.New(pkgErrors.ErrNotFound, "payment method not found")
	}
	if err := h.backend.DeleteMethod(ctx, t, p.ID, id); err != nil {
		return nil, err
	}
	h.methodsChanged(r, p)
	h.events.Emit(ctx, events.New(ctx, events.MethodDeleted, p.ID, map[string]interface{}{
		"method_id": id,
	}))

	if l.Len() > 0 {
		positions := l.Positions()
		if err := l.Check(); err != nil {
			h.logger.Warn("порядок после удаления нарушен, позиции пересчитаны",
				logger.CtxField(ctx),
				logger.Int64("project_id", p.ID),
				logger.Error(err))
			positions = l.Assign()
			if err := l.Check(); err != nil {
				return nil, pkgErrors.Wrap(err, pkgErrors.ErrInternal, "invalid method order")
			}
		}
		if err := h.backend.UpdatePositions(ctx, t, p.ID, positions); err != nil {
			return nil, err
		}
	}
	return h.methodsTab(p), nil
}

// methodsChanged сбрасывает снимки, зависящие от списка способов оплаты
func (h *Handler) methodsChanged(r *http.Request, p api.Project) {
	h.cache.Invalidate(scope(r), resource.Methods(p.ID))
	h.cache.Invalidate(publicScope, resource.Project(p.Link))
}

// Фазы перетаскивания
const (
	dragOver = "over"
	dragEnd  = "end"
)

type dragRequest struct {
	Phase      string               `json:"phase"`
	Board      ordering.Board       `json:"board"`
	Draggable  ordering.Draggable   `json:"draggable"`
	Droppables []ordering.Droppable `json:"droppables"`
	Active     *ordering.Target     `json:"active,omitempty"`
}

type dragResponse struct {
	Board   ordering.Board   `json:"board"`
	Target  *ordering.Target `json:"target,omitempty"`
	Changed bool             `json:"changed"`
	Locked  []int64          `json:"locked"`
}

// handleDrag выполняет шаг перетаскивания: над целью меняется только контейнер,
// при отпускании способ встает на место цели
func (h *Handler) handleDrag(w http.ResponseWriter, r *http.Request) (Result, error) {
	ctx := r.Context()
	p, t, err := h.project(r)
	if err != nil {
		return nil, err
	}
	var req dragRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return nil, err
	}
	if req.Phase != dragOver && req.Phase != dragEnd {
		return nil, pkgErrors.New(pkgErrors.ErrValidation, "unknown drag phase").WithDetails("phase=" + req.Phase)
	}

	methods, err := h.methods(ctx, r, p, t)
	if err != nil {
		return nil, err
	}
	board := &req.Board
	if !sameMethods(board, methods) {
		board = ordering.NewBoard(ordering.FromMethods(methods, p.MaxPaymentMethods))
	}

	resp := dragResponse{}
	if target, ok := board.ClosestContainerOrItem(req.Draggable, req.Droppables, req.Active); ok {
		resp.Target = &target
		resp.Changed = board.Move(req.Draggable.ID, target, req.Phase == dragOver)
	}
	resp.Board = *board
	if len(board.PrimaryIDs) == 1 {
		resp.Locked = []int64{board.PrimaryIDs[0]}
	}
	return JSON{Body: resp}, nil
}

// sameMethods проверяет, что доска содержит ровно текущие способы оплаты
func sameMethods(b *ordering.Board, methods []api.PaymentMethod) bool {
	ids := append(slices.Clone(b.PrimaryIDs), b.SecondaryIDs...)
	if len(ids) != len(methods) {
		return false
	}
	for _, m := range methods {
		if !slices.Contains(ids, m.ID) {
			return false
		}
	}
	return true
}

type orderResponse struct {
	Success   bool           `json:"success"`
	Positions []api.Position `json:"positions"`
}

// handleSaveOrder сохраняет порядок одним пакетным обновлением позиций
func (h *Handler) handleSaveOrder(w http.ResponseWriter, r *http.Request) (Result, error) {
	ctx := r.Context()
	p, t, err := h.project(r)
	if err != nil {
		return nil, err
	}
	var board ordering.Board
	if err := decodeJSON(w, r, &board); err != nil {
		return nil, err
	}

	methods, err := h.methods(ctx, r, p, t)
	if err != nil {
		return nil, err
	}
	if !sameMethods(&board, methods) {
		return nil, pkgErrors.New(pkgErrors.ErrConflict, "methods changed").WithDetails("reload the page")
	}

	l := board.Layout(p.MaxPaymentMethods)
	positions := l.Assign()
	if err := l.Check(); err != nil {
		return nil, pkgErrors.Wrap(err, pkgErrors.ErrValidation, "invalid order")
	}
	if err := h.backend.UpdatePositions(ctx, t, p.ID, positions); err != nil {
		return nil, err
	}

	h.methodsChanged(r, p)
	h.events.Emit(ctx, events.New(ctx, events.MethodsReordered, p.ID, map[string]interface{}{
		"primary":   board.PrimaryIDs,
		"secondary": board.SecondaryIDs,
	}))
	return JSON{Body: orderResponse{Success: true, Positions: positions}}, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return pkgErrors.Wrap(err, pkgErrors.ErrValidation, "invalid json body")
	}
	return nil
}
