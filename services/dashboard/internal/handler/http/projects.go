package http

import (
	"context"
	"net/http"
	"strings"

	pkgErrors "BileePlatform/pkg/errors"
	"BileePlatform/pkg/logger"
	"BileePlatform/pkg/validation"
	"BileePlatform/services/dashboard/internal/api"
	"BileePlatform/services/dashboard/internal/events"
	"BileePlatform/services/dashboard/internal/form"
	"BileePlatform/services/dashboard/internal/resource"
)

const msgLinkExists = "Выбранный путь уже существует"

// publicScope область кеша публичных данных страницы оплаты
const publicScope = "public"

func (h *Handler) shops(ctx context.Context, r *http.Request, t string) ([]api.Project, error) {
	return resource.Load(ctx, h.cache, scope(r), resource.Shops, func(ctx context.Context) ([]api.Project, error) {
		return h.backend.MyProjects(ctx, t)
	})
}

func (h *Handler) me(ctx context.Context, r *http.Request, t string) (*api.User, error) {
	return resource.Load(ctx, h.cache, scope(r), resource.Me, func(ctx context.Context) (*api.User, error) {
		return h.backend.Me(ctx, t)
	})
}

// project находит проект мерчанта по пути из URL
func (h *Handler) project(r *http.Request) (api.Project, string, error) {
	t, err := token(r)
	if err != nil {
		return api.Project{}, "", err
	}
	shops, err := h.shops(r.Context(), r, t)
	if err != nil {
		return api.Project{}, "", err
	}
	link := r.PathValue("shopPath")
	for _, p := range shops {
		if p.Link == link {
			return p, t, nil
		}
	}
	return api.Project{}, "", pkgErrors.New(pkgErrors.ErrNotFound, "project not found").WithDetails("link=" + link)
}

func (h *Handler) handleShops(w http.ResponseWriter, r *http.Request) (Result, error) {
	v, err := h.shopsView(r)
	if err != nil {
		return nil, err
	}
	return Rendered{Template: "shops", Data: v}, nil
}

func (h *Handler) shopsView(r *http.Request) (*shopsView, error) {
	t, err := token(r)
	if err != nil {
		return nil, err
	}
	shops, err := h.shops(r.Context(), r, t)
	if err != nil {
		return nil, err
	}
	me, err := h.me(r.Context(), r, t)
	if err != nil {
		return nil, err
	}
	return &shopsView{Me: me, Shops: shops}, nil
}

func (h *Handler) handleCreateProject(w http.ResponseWriter, r *http.Request) (Result, error) {
	ctx := r.Context()
	t, err := token(r)
	if err != nil {
		return nil, err
	}

	supportURL := form.NewField("", validation.IsValidURL)
	link := form.NewField("", validation.IsValidPath)
	botToken := form.NewField("", func(v string) bool { return v != "" })
	supportURL.Set(strings.TrimSpace(r.PostFormValue("support_url")))
	link.Set(strings.TrimSpace(r.PostFormValue("link")))
	botToken.Set(strings.TrimSpace(r.PostFormValue("bot_token")))
	supportURL.FocusOut()
	link.FocusOut()
	botToken.FocusOut()

	failed := func(msg string) (Result, error) {
		v, err := h.shopsView(r)
		if err != nil {
			return nil, err
		}
		v.Create = createProjectView{
			Open:       true,
			SupportURL: viewOf(supportURL),
			Link:       viewOf(link),
			BotToken:   viewOf(botToken),
			Error:      msg,
		}
		return Rendered{Template: "shops", Data: v, Status: http.StatusUnprocessableEntity}, nil
	}

	if !form.AreFieldsFilled(supportURL, link, botToken) || !form.AllValid(supportURL, link, botToken) {
		return failed("")
	}

	created, err := h.backend.CreateProject(ctx, t, api.ProjectCreate{
		BotToken:   botToken.Value(),
		SupportURL: supportURL.Value(),
		Link:       link.Value(),
	})
	if err != nil {
		if unauthenticated(err) || pkgErrors.CodeOf(err) == pkgErrors.ErrTransport {
			return nil, err
		}
		if pkgErrors.CodeOf(err) == pkgErrors.ErrLinkExists {
			link.Invalidate(msgLinkExists)
			return failed(msgLinkExists)
		}
		e, _ := pkgErrors.As(err)
		return failed(e.GetUserMessage())
	}

	h.cache.Invalidate(scope(r), resource.Shops)
	h.events.Emit(ctx, events.New(ctx, events.ProjectCreated, created.ID, map[string]interface{}{
		"link": created.Link,
	}))
	h.logger.Info("проект создан",
		logger.CtxField(ctx),
		logger.Int64("project_id", created.ID),
		logger.String("link", created.Link))

	return Redirect{Location: h.cfg.DashboardPrefix + "/" + created.Link}, nil
}

func (h *Handler) handleShop(w http.ResponseWriter, r *http.Request) (Result, error) {
	v, err := h.shopView(r, r.URL.Query().Get("tab"))
	if err != nil {
		return nil, err
	}
	return Rendered{Template: "shop", Data: v}, nil
}

// shopView собирает страницу настроек проекта с данными выбранной вкладки
func (h *Handler) shopView(r *http.Request, tab string) (*shopView, error) {
	ctx := r.Context()
	p, t, err := h.project(r)
	if err != nil {
		return nil, err
	}
	shops, err := h.shops(ctx, r, t)
	if err != nil {
		return nil, err
	}
	me, err := h.me(ctx, r, t)
	if err != nil {
		return nil, err
	}

	if !h.validTab(tab) {
		tab = tabs[0].Name
	}
	v := &shopView{Me: me, Shops: shops, Project: p, Tab: tab}
	for _, tv := range tabs {
		tv.Active = tv.Name == tab
		v.Tabs = append(v.Tabs, tv)
	}

	switch tab {
	case "methods":
		mv, err := h.methodsView(ctx, r, p, t)
		if err != nil {
			return nil, err
		}
		v.Methods = mv
	case "payment":
		v.Autosave = map[string]form.Status[string]{
			fieldSupportURL: h.autosaveStatus(r, p, fieldSupportURL),
			fieldFooterText: h.autosaveStatus(r, p, fieldFooterText),
		}
	case "api":
		key, err := h.apiKey(ctx, r, p, t)
		if err != nil {
			return nil, err
		}
		v.APIKey = &apiKeyView{Key: key}
		v.Autosave = map[string]form.Status[string]{
			fieldNotifyURL: h.autosaveStatus(r, p, fieldNotifyURL),
		}
	}
	return v, nil
}

func (h *Handler) validTab(tab string) bool {
	names := make([]string, 0, len(tabs))
	for _, tv := range tabs {
		names = append(names, tv.Name)
	}
	return h.validator.ValidateEnum(tab, names, "tab") == nil
}

func (h *Handler) handleDeleteProject(w http.ResponseWriter, r *http.Request) (Result, error) {
	ctx := r.Context()
	p, t, err := h.project(r)
	if err != nil {
		return nil, err
	}

	confirm := form.NewField("", func(v string) bool { return v == p.Link })
	confirm.Set(strings.TrimSpace(r.PostFormValue("confirm")))
	confirm.FocusOut()
	if !confirm.IsValid() {
		v, err := h.shopView(r, "bot")
		if err != nil {
			return nil, err
		}
		v.Confirm = viewOf(confirm)
		return Rendered{Template: "shop", Data: v, Status: http.StatusUnprocessableEntity}, nil
	}

	if err := h.backend.DeleteProject(ctx, t, p.ID); err != nil {
		return nil, err
	}

	sid := scope(r)
	h.cache.Invalidate(sid, resource.Shops, resource.Methods(p.ID), resource.APIKey(p.ID))
	h.cache.Invalidate(publicScope, resource.Project(p.Link))
	h.savers.DropProject(p.ID)
	h.events.Emit(ctx, events.New(ctx, events.ProjectDeleted, p.ID, map[string]interface{}{
		"link": p.Link,
	}))
	h.logger.Info("проект удален", logger.CtxField(ctx), logger.Int64("project_id", p.ID))

	return Redirect{Location: h.cfg.DashboardPrefix}, nil
}
