package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	pkgErrors "BileePlatform/pkg/errors"
	"BileePlatform/pkg/logger"
	"BileePlatform/services/dashboard/internal/amount"
	"BileePlatform/services/dashboard/internal/api"
	"BileePlatform/services/dashboard/internal/events"
	"BileePlatform/services/dashboard/internal/form"
	"BileePlatform/services/dashboard/internal/resource"
)

const (
	msgAmountRange  = "Сумма вне диапазона способа оплаты"
	msgAmountFormat = "Введите сумму"
	msgTelegramID   = "Введите ID пользователя"
	msgChooseMethod = "Выберите способ оплаты"
)

// checkoutData публичная информация проекта со способами оплаты
type checkoutData struct {
	Project api.Project
	Methods []api.PaymentMethod
}

func (h *Handler) checkoutData(ctx context.Context, link string) (*checkoutData, error) {
	data, err := resource.Load(ctx, h.cache, publicScope, resource.Project(link), func(ctx context.Context) (*checkoutData, error) {
		p, err := h.backend.ProjectInfoByLink(ctx, link)
		if err != nil {
			return nil, err
		}
		methods, err := h.backend.AvailableMethods(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		return &checkoutData{Project: *p, Methods: methods}, nil
	})
	if err != nil {
		if code := pkgErrors.CodeOf(err); code != pkgErrors.ErrTransport && code != pkgErrors.ErrInternal {
			return nil, pkgErrors.New(pkgErrors.ErrNotFound, "project not found").WithDetails("link=" + link)
		}
		return nil, err
	}
	return data, nil
}

// cards отмечает способы оплаты, недоступные для суммы
func cards(methods []api.PaymentMethod, sum float64, selected int64) []methodCard {
	out := make([]methodCard, 0, len(methods))
	for _, m := range methods {
		c := methodCard{
			Method:   m,
			Less:     sum < m.MinAmount,
			More:     sum > m.MaxAmount,
			Selected: m.ID == selected,
		}
		c.Good = !c.Less && !c.More
		out = append(out, c)
	}
	return out
}

func (h *Handler) checkoutView(data *checkoutData, amountText, telegramID string, methodID int64) *checkoutView {
	sum, _ := h.amounts.Parse(amountText)
	return &checkoutView{
		Project:    data.Project,
		Methods:    cards(data.Methods, sum, methodID),
		Presets:    presets,
		Amount:     fieldView{Value: amountText},
		TelegramID: fieldView{Value: telegramID},
		MethodID:   methodID,
	}
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) (Result, error) {
	data, err := h.checkoutData(r.Context(), r.PathValue("link"))
	if err != nil {
		return nil, err
	}
	q := r.URL.Query()
	methodID, _ := strconv.ParseInt(q.Get("method"), 10, 64)
	return Rendered{Template: "checkout", Data: h.checkoutView(data, q.Get("amount"), q.Get("user"), methodID)}, nil
}

func validTelegramID(v string) bool {
	if v == "" {
		return false
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (h *Handler) handleTelegramUser(w http.ResponseWriter, r *http.Request) (Result, error) {
	data, err := h.checkoutData(r.Context(), r.PathValue("link"))
	if err != nil {
		return nil, err
	}
	id := r.PathValue("id")
	if !validTelegramID(id) {
		return JSON{Body: api.TelegramUser{Invalid: true}}, nil
	}

	user, err := h.backend.TelegramUser(r.Context(), data.Project.ID, id)
	if err != nil {
		if pkgErrors.CodeOf(err) == pkgErrors.ErrTransport {
			return nil, err
		}
		return JSON{Body: api.TelegramUser{Invalid: true}}, nil
	}
	return JSON{Body: user}, nil
}

func (h *Handler) handlePay(w http.ResponseWriter, r *http.Request) (Result, error) {
	ctx := r.Context()
	data, err := h.checkoutData(ctx, r.PathValue("link"))
	if err != nil {
		return nil, err
	}

	methodID, _ := strconv.ParseInt(r.PostFormValue("method_id"), 10, 64)
	var method *api.PaymentMethod
	for i := range data.Methods {
		if data.Methods[i].ID == methodID {
			method = &data.Methods[i]
		}
	}

	sumText := strings.TrimSpace(r.PostFormValue("amount"))
	sum := form.NewField(sumText, func(v string) bool {
		n, err := h.amounts.Parse(v)
		if err != nil || n <= 0 {
			return false
		}
		return method == nil || (n >= method.MinAmount && n <= method.MaxAmount)
	})
	telegramID := form.NewField(strings.TrimSpace(r.PostFormValue("telegram_id")), validTelegramID)
	sum.FocusOut()
	telegramID.FocusOut()

	v := h.checkoutView(data, sumText, telegramID.Value(), methodID)
	v.Amount = viewOf(sum)
	v.TelegramID = viewOf(telegramID)

	switch {
	case telegramID.Invalid():
		v.Error = msgTelegramID
	case method == nil:
		v.Error = msgChooseMethod
	case sum.Invalid():
		v.Error = msgAmountFormat
		if n, err := h.amounts.Parse(sumText); err == nil && n > 0 {
			v.Error = msgAmountRange
		}
	}
	if v.Error != "" {
		return Rendered{Template: "checkout", Data: v, Status: http.StatusUnprocessableEntity}, nil
	}

	value, _ := h.amounts.Parse(sum.Value())
	tx, err := h.backend.CreateTransaction(ctx, api.TransactionData{
		TelegramID: telegramID.Value(),
		MethodID:   method.ID,
		Amount:     value,
	})
	if err != nil {
		if e, ok := pkgErrors.As(err); ok && e.Code != pkgErrors.ErrTransport {
			v.Error = e.GetUserMessage()
			return Rendered{Template: "checkout", Data: v, Status: http.StatusUnprocessableEntity}, nil
		}
		return nil, err
	}
	if err := h.validator.ValidateURL(tx.URL, []string{"http", "https"}); err != nil {
		return nil, pkgErrors.Wrap(err, pkgErrors.ErrInternal, "invalid payment url")
	}

	h.events.Emit(ctx, events.New(ctx, events.TransactionCreated, data.Project.ID, map[string]interface{}{
		"method_id": method.ID,
		"amount":    value,
	}))
	h.logger.Info("транзакция создана",
		logger.CtxField(ctx),
		logger.Int64("project_id", data.Project.ID),
		logger.Int64("method_id", method.ID),
		logger.Float64("amount", value))

	return Redirect{Location: tx.URL, Status: http.StatusSeeOther}, nil
}

type reformatRequest struct {
	Text    string `json:"text"`
	Caret   int    `json:"caret"`
	Current string `json:"current"`
}

type reformatResponse struct {
	Text    string   `json:"text"`
	Caret   int      `json:"caret"`
	Current string   `json:"current"`
	Value   *float64 `json:"value"`
}

// handleReformat форматирует ввод суммы с сохранением позиции курсора
func (h *Handler) handleReformat(w http.ResponseWriter, r *http.Request) (Result, error) {
	var req reformatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return nil, err
	}

	st := &amount.State{Current: req.Current}
	text, caret := h.amounts.Reformat(st, req.Text, req.Caret)
	resp := reformatResponse{Text: text, Caret: caret, Current: st.Current}
	if n, err := h.amounts.Parse(text); err == nil {
		resp.Value = &n
	}
	return JSON{Body: resp}, nil
}
