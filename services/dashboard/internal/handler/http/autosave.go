package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"

	pkgErrors "BileePlatform/pkg/errors"
	"BileePlatform/pkg/logger"
	"BileePlatform/pkg/validation"
	"BileePlatform/services/dashboard/internal/api"
	"BileePlatform/services/dashboard/internal/events"
	"BileePlatform/services/dashboard/internal/form"
	"BileePlatform/services/dashboard/internal/resource"
	"BileePlatform/services/dashboard/internal/session"
)

// Автосохраняемые поля проекта
const (
	fieldSupportURL = "support_url"
	fieldFooterText = "footer_text"
	fieldNotifyURL  = "notify_url"
)

type autosaveField struct {
	valid   func(string) bool
	current func(api.Project) string
	update  func(string) api.ProjectUpdate
}

var autosaveFields = map[string]autosaveField{
	fieldSupportURL: {
		valid:   validation.IsValidURL,
		current: func(p api.Project) string { return p.SupportURL },
		update:  func(v string) api.ProjectUpdate { return api.ProjectUpdate{SupportURL: &v} },
	},
	fieldFooterText: {
		valid:   func(v string) bool { return utf8.RuneCountInString(v) > 5 },
		current: func(p api.Project) string { return p.FooterText },
		update:  func(v string) api.ProjectUpdate { return api.ProjectUpdate{FooterText: &v} },
	},
	fieldNotifyURL: {
		valid:   func(v string) bool { return v == "" || validation.IsValidURL(v) },
		current: func(p api.Project) string { return p.NotifyURL },
		update:  func(v string) api.ProjectUpdate { return api.ProjectUpdate{NotifyURL: &v} },
	},
}

func lookupField(r *http.Request) (string, autosaveField, error) {
	name := r.PathValue("field")
	f, ok := autosaveFields[name]
	if !ok {
		return "", autosaveField{}, pkgErrors.New(pkgErrors.ErrNotFound, "unknown field").WithDetails("field=" + name)
	}
	return name, f, nil
}

// autosaveStatus состояние поля: из активного автосохранения или из проекта
func (h *Handler) autosaveStatus(r *http.Request, p api.Project, name string) form.Status[string] {
	if s, ok := h.savers.Get(form.Key{SessionID: scope(r), ProjectID: p.ID, Field: name}); ok {
		return s.Status()
	}
	return form.Status[string]{Value: autosaveFields[name].current(p), State: form.Idle}
}

func (h *Handler) handleAutosaveStatus(w http.ResponseWriter, r *http.Request) (Result, error) {
	p, _, err := h.project(r)
	if err != nil {
		return nil, err
	}
	name, _, err := lookupField(r)
	if err != nil {
		return nil, err
	}
	return JSON{Body: h.autosaveStatus(r, p, name)}, nil
}

func (h *Handler) handleAutosave(w http.ResponseWriter, r *http.Request) (Result, error) {
	p, _, err := h.project(r)
	if err != nil {
		return nil, err
	}
	name, field, err := lookupField(r)
	if err != nil {
		return nil, err
	}
	value, err := autosaveValue(w, r)
	if err != nil {
		return nil, err
	}

	sid := scope(r)
	key := form.Key{SessionID: sid, ProjectID: p.ID, Field: name}
	saver := h.savers.GetOrCreate(key, func() *form.DebouncedSaver[string] {
		return form.NewDebouncedSaver(h.saverCfg, field.current(p), field.valid,
			h.saveProjectField(sid, p, name, field),
			h.logger.With(logger.String("field", name), logger.Int64("project_id", p.ID)),
			form.WithOutcome[string](func(outcome string) {
				h.metrics.ObserveAutosave(name, outcome)
			}))
	})
	saver.Set(value)

	return JSON{Status: http.StatusAccepted, Body: saver.Status()}, nil
}

// saveProjectField отложенное сохранение поля. Токен берется из сессии,
// так как запрос, изменивший поле, к этому моменту уже завершен.
func (h *Handler) saveProjectField(sid string, p api.Project, name string, field autosaveField) form.SaveFunc[string] {
	return func(ctx context.Context, value string) error {
		sess, ok := h.sessions.Get(sid)
		if !ok {
			return session.ErrUnauthenticated
		}
		t, err := sess.AccessToken(ctx)
		if err != nil {
			return err
		}

		if err := h.backend.UpdateProject(ctx, t, p.ID, field.update(value)); err != nil {
			if unauthenticated(err) {
				sess.Expire()
			}
			return err
		}

		h.cache.Invalidate(sid, resource.Shops)
		h.cache.Invalidate(publicScope, resource.Project(p.Link))
		h.events.Emit(ctx, events.New(ctx, events.ProjectUpdated, p.ID, map[string]interface{}{
			"field": name,
		}))
		return nil
	}
}

// autosaveValue читает значение поля из JSON {"value": ...} или из формы
func autosaveValue(w http.ResponseWriter, r *http.Request) (string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Value string `json:"value"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&body); err != nil {
			return "", pkgErrors.Wrap(err, pkgErrors.ErrValidation, "invalid autosave body")
		}
		return body.Value, nil
	}
	return r.PostFormValue("value"), nil
}
