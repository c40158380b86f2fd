package http

import (
	"context"
	"net/http"
	"strings"

	"BileePlatform/pkg/logger"
	"BileePlatform/services/dashboard/internal/api"
	"BileePlatform/services/dashboard/internal/events"
	"BileePlatform/services/dashboard/internal/resource"
)

const maxKeyName = 64

func (h *Handler) apiKey(ctx context.Context, r *http.Request, p api.Project, t string) (*api.ApiKey, error) {
	return resource.Load(ctx, h.cache, scope(r), resource.APIKey(p.ID), func(ctx context.Context) (*api.ApiKey, error) {
		return h.backend.GetAPIKey(ctx, t, p.ID)
	})
}

// issued показывает выпущенный ключ один раз. Дальше доступна только маска.
func (h *Handler) issued(r *http.Request, p api.Project, key api.IssuedKey) (Result, error) {
	h.cache.Invalidate(scope(r), resource.APIKey(p.ID))
	v, err := h.shopView(r, "api")
	if err != nil {
		return nil, err
	}
	masked := key.Masked()
	v.APIKey = &apiKeyView{Key: &masked, Issued: key.Token}
	return Rendered{Template: "shop", Data: v}, nil
}

func (h *Handler) handleCreateAPIKey(w http.ResponseWriter, r *http.Request) (Result, error) {
	ctx := r.Context()
	p, t, err := h.project(r)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(r.PostFormValue("name"))
	if err := h.validator.ValidateStringLength(name, "name", 1, maxKeyName); err != nil {
		v, err := h.shopView(r, "api")
		if err != nil {
			return nil, err
		}
		v.APIKey.NameError = true
		return Rendered{Template: "shop", Data: v, Status: http.StatusUnprocessableEntity}, nil
	}

	key, err := h.backend.CreateAPIKey(ctx, t, p.ID, name)
	if err != nil {
		return nil, err
	}
	h.events.Emit(ctx, events.New(ctx, events.APIKeyCreated, p.ID, map[string]interface{}{"name": name}))
	h.logger.Info("ключ API выпущен", logger.CtxField(ctx), logger.Int64("project_id", p.ID))
	return h.issued(r, p, *key)
}

func (h *Handler) handleRefreshAPIKey(w http.ResponseWriter, r *http.Request) (Result, error) {
	ctx := r.Context()
	p, t, err := h.project(r)
	if err != nil {
		return nil, err
	}
	current, err := h.apiKey(ctx, r, p, t)
	if err != nil {
		return nil, err
	}

	raw, err := h.backend.RefreshAPIKey(ctx, t, p.ID)
	if err != nil {
		return nil, err
	}
	key := api.IssuedKey{Token: raw}
	if current != nil {
		key.Name = current.Name
	}
	h.events.Emit(ctx, events.New(ctx, events.APIKeyRefreshed, p.ID, nil))
	h.logger.Info("ключ API перевыпущен", logger.CtxField(ctx), logger.Int64("project_id", p.ID))
	return h.issued(r, p, key)
}

func (h *Handler) handleDeleteAPIKey(w http.ResponseWriter, r *http.Request) (Result, error) {
	ctx := r.Context()
	p, t, err := h.project(r)
	if err != nil {
		return nil, err
	}
	if err := h.backend.DeleteAPIKey(ctx, t, p.ID); err != nil {
		return nil, err
	}
	h.cache.Invalidate(scope(r), resource.APIKey(p.ID))
	h.events.Emit(ctx, events.New(ctx, events.APIKeyDeleted, p.ID, nil))
	return Redirect{Location: h.cfg.DashboardPrefix + "/" + p.Link + "?tab=api"}, nil
}
