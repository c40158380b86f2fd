package http

import (
	"encoding/json"
	"net/http"

	pkgErrors "BileePlatform/pkg/errors"
	"BileePlatform/pkg/logger"
	"BileePlatform/services/dashboard/internal/session"
)

// Result результат обработчика страницы: Rendered, Redirect или JSON
type Result interface {
	result()
}

// Rendered страница, отрисованная шаблоном
type Rendered struct {
	Template string
	Data     interface{}
	Status   int
}

// Redirect перенаправление браузера
type Redirect struct {
	Location string
	Status   int
}

// JSON ответ эндпоинта живого поведения страницы
type JSON struct {
	Status int
	Body   interface{}
}

func (Rendered) result() {}
func (Redirect) result() {}
func (JSON) result()     {}

// pageFunc обработчик, возвращающий результат вместо прямой записи ответа.
// Заголовки (например Set-Cookie) можно выставить через w до возврата.
type pageFunc func(w http.ResponseWriter, r *http.Request) (Result, error)

// page оборачивает обработчик HTML страницы
func (h *Handler) page(fn pageFunc) http.HandlerFunc {
	return h.serve(fn, false)
}

// api оборачивает JSON обработчик: ошибки отдаются конвертом
func (h *Handler) api(fn pageFunc) http.HandlerFunc {
	return h.serve(fn, true)
}

// serve единственное место, где разбирается результат обработчика
func (h *Handler) serve(fn pageFunc, jsonErrors bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := fn(w, r)
		if err != nil {
			h.fail(w, r, err, jsonErrors)
			return
		}

		switch v := res.(type) {
		case Rendered:
			h.render(w, r, v.Template, v.Data, v.Status)
		case Redirect:
			status := v.Status
			if status == 0 {
				status = redirectStatus(r)
			}
			http.Redirect(w, r, v.Location, status)
		case JSON:
			writeJSON(w, v.Status, v.Body)
		case nil:
			w.WriteHeader(http.StatusNoContent)
		}
	}
}

// fail переводит ошибку в ответ. Отсутствие токена всегда ведет на страницу входа.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, jsonErrors bool) {
	ctx := r.Context()

	if unauthenticated(err) {
		if sid, ok := session.ID(ctx); ok {
			if s, ok := h.sessions.Get(sid); ok {
				s.Expire()
			}
		}
		if jsonErrors {
			pkgErrors.WriteJSON(w, session.ErrUnauthenticated)
			return
		}
		http.Redirect(w, r, h.cfg.PublicURL+h.cfg.LoginPath, redirectStatus(r))
		return
	}

	e, ok := pkgErrors.As(err)
	if !ok {
		e = pkgErrors.Wrap(err, pkgErrors.ErrInternal, "internal error")
	}

	status := e.HTTPStatus()
	if status >= http.StatusInternalServerError {
		h.logger.Error("ошибка обработки запроса",
			logger.CtxField(ctx),
			logger.String("path", r.URL.Path),
			logger.String("code", string(e.Code)),
			logger.Error(err))
	} else {
		h.logger.Debug("запрос завершился ошибкой",
			logger.CtxField(ctx),
			logger.String("path", r.URL.Path),
			logger.String("code", string(e.Code)))
	}

	if jsonErrors {
		pkgErrors.WriteJSON(w, e)
		return
	}

	if e.Code == pkgErrors.ErrNotFound {
		h.render(w, r, "not_found", nil, http.StatusNotFound)
		return
	}
	h.render(w, r, "error", errorView{Message: e.GetUserMessage(), Code: string(e.Code)}, status)
}

// unauthenticated сообщает, требует ли ошибка повторного входа
func unauthenticated(err error) bool {
	return pkgErrors.CodeOf(err) == pkgErrors.ErrUnauthorized
}

// redirectStatus 303 после отправки формы, 302 для GET
func redirectStatus(r *http.Request) int {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return http.StatusFound
	}
	return http.StatusSeeOther
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name string, data interface{}, status int) {
	if status == 0 {
		status = http.StatusOK
	}
	if err := h.templates.Render(w, name, data, status); err != nil {
		h.logger.Error("ошибка отрисовки шаблона",
			logger.CtxField(r.Context()),
			logger.String("template", name),
			logger.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
