package http

import (
	"context"
	"io/fs"
	"net/http"

	"BileePlatform/pkg/config"
	"BileePlatform/pkg/health"
	"BileePlatform/pkg/logger"
	"BileePlatform/pkg/metrics"
	"BileePlatform/pkg/validation"
	"BileePlatform/services/dashboard/internal/amount"
	"BileePlatform/services/dashboard/internal/api"
	"BileePlatform/services/dashboard/internal/events"
	"BileePlatform/services/dashboard/internal/form"
	"BileePlatform/services/dashboard/internal/resource"
	"BileePlatform/services/dashboard/internal/session"
)

// Backend интерфейс upstream REST API платежной платформы
type Backend interface {
	RefreshTokens(ctx context.Context, cookie string) (*api.RefreshResult, error)
	LoginEmail(ctx context.Context, email, password, cookie string) (*api.AuthResult, error)
	RegisterEmail(ctx context.Context, email, password, cookie string) (*api.AuthResult, error)
	Logout(ctx context.Context, token, cookie string) ([]string, error)
	Me(ctx context.Context, token string) (*api.User, error)

	MyProjects(ctx context.Context, token string) ([]api.Project, error)
	CreateProject(ctx context.Context, token string, req api.ProjectCreate) (*api.Project, error)
	UpdateProject(ctx context.Context, token string, projectID int64, req api.ProjectUpdate) error
	DeleteProject(ctx context.Context, token string, projectID int64) error
	ProjectInfoByLink(ctx context.Context, link string) (*api.Project, error)

	AvailableMethods(ctx context.Context, projectID int64) ([]api.PaymentMethod, error)
	Methods(ctx context.Context, token string, projectID int64) ([]api.PaymentMethod, error)
	CreateMethod(ctx context.Context, token string, projectID int64, req api.PaymentMethodCreate) (*api.PaymentMethod, error)
	UpdateMethod(ctx context.Context, token string, projectID, methodID int64, req api.PaymentMethodCreate) error
	DeleteMethod(ctx context.Context, token string, projectID, methodID int64) error
	UpdatePositions(ctx context.Context, token string, projectID int64, positions []api.Position) error
	Icons(ctx context.Context, token string) ([]api.Icon, error)
	PaymentSystems(ctx context.Context, token string) ([]api.PaymentSystem, error)

	CreateAPIKey(ctx context.Context, token string, projectID int64, name string) (*api.IssuedKey, error)
	RefreshAPIKey(ctx context.Context, token string, projectID int64) (string, error)
	GetAPIKey(ctx context.Context, token string, projectID int64) (*api.ApiKey, error)
	DeleteAPIKey(ctx context.Context, token string, projectID int64) error

	TelegramUser(ctx context.Context, projectID int64, telegramID string) (*api.TelegramUser, error)
	CreateTransaction(ctx context.Context, data api.TransactionData) (*api.TransactionResponse, error)
}

// Emitter принимает события аудита без ожидания публикации
type Emitter interface {
	Emit(ctx context.Context, event events.Event)
}

// Deps зависимости обработчиков
type Deps struct {
	Backend   Backend
	Session   config.SessionConfig
	Sessions  *session.Store
	Cache     *resource.Cache
	Catalog   *resource.Catalog
	Autosave  form.SaverConfig
	Events    Emitter
	Templates TemplateManager
	Health    health.HealthChecker
	Metrics   *metrics.Metrics
	Amounts   *amount.Formatter
	Logger    logger.Logger
}

// Handler структура для управления HTTP обработчиками
type Handler struct {
	mux       *http.ServeMux
	backend   Backend
	cfg       config.SessionConfig
	sessions  *session.Store
	cache     *resource.Cache
	catalog   *resource.Catalog
	savers    *form.Registry[string]
	saverCfg  form.SaverConfig
	events    Emitter
	templates TemplateManager
	health    health.HealthChecker
	metrics   *metrics.Metrics
	amounts   *amount.Formatter
	validator *validation.Validator
	logger    logger.Logger
}

// NewHandler создает новый экземпляр Handler
func NewHandler(d Deps) *Handler {
	if d.Amounts == nil {
		d.Amounts = amount.Russian
	}
	if d.Events == nil {
		d.Events = nopEmitter{}
	}

	h := &Handler{
		mux:       http.NewServeMux(),
		backend:   d.Backend,
		cfg:       d.Session,
		sessions:  d.Sessions,
		cache:     d.Cache,
		catalog:   d.Catalog,
		savers:    form.NewRegistry[string](),
		saverCfg:  d.Autosave,
		events:    d.Events,
		templates: d.Templates,
		health:    d.Health,
		metrics:   d.Metrics,
		amounts:   d.Amounts,
		validator: validation.NewValidator(),
		logger:    d.Logger,
	}

	// Снимки и автосохранения живут не дольше сессии
	if h.sessions != nil {
		h.sessions.OnEvict(h.dropSession)
	}

	// Настройка роутинга
	h.setupRoutes()

	return h
}

// ServeHTTP реализует интерфейс http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) dropSession(sid string) {
	h.cache.DropScope(sid)
	h.savers.DropSession(sid)
}

// Close останавливает автосохранения
func (h *Handler) Close() {
	h.savers.Close()
}

// setupRoutes настраивает маршруты для приложения
func (h *Handler) setupRoutes() {
	lk := h.cfg.DashboardPrefix

	h.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, lk, http.StatusFound)
	})

	static, err := fs.Sub(staticFS, "static")
	if err == nil {
		h.mux.Handle("GET /static/{file}", http.StripPrefix("/static/", http.FileServerFS(static)))
	}

	// Health check роуты
	if h.health != nil {
		h.mux.HandleFunc("GET /health", health.Handler(h.health))
		h.mux.HandleFunc("GET /ready", health.ReadyHandler(h.health))
	}
	h.mux.HandleFunc("GET /live", health.LiveHandler())
	if h.metrics != nil {
		h.mux.Handle("GET /metrics", h.metrics.GetHandler())
	}

	// Вход и регистрация
	h.mux.HandleFunc("GET "+h.cfg.LoginPath, h.page(h.handleLoginPage))
	h.mux.HandleFunc("POST "+h.cfg.LoginPath, h.page(h.handleLogin))
	h.mux.HandleFunc("GET "+h.cfg.RegisterPath, h.page(h.handleRegisterPage))
	h.mux.HandleFunc("POST "+h.cfg.RegisterPath, h.page(h.handleRegister))
	h.mux.HandleFunc("POST "+lk+"/logout", h.page(h.handleLogout))

	// Кабинет
	h.mux.HandleFunc("GET "+lk+"/{$}", h.page(h.handleShops))
	h.mux.HandleFunc("GET "+lk, h.page(h.handleShops))
	h.mux.HandleFunc("POST "+lk+"/projects", h.page(h.handleCreateProject))
	h.mux.HandleFunc("GET "+lk+"/{shopPath}", h.page(h.handleShop))
	h.mux.HandleFunc("POST "+lk+"/{shopPath}/delete", h.page(h.handleDeleteProject))

	// Автосохранение настроек
	h.mux.HandleFunc("GET "+lk+"/{shopPath}/autosave/{field}", h.api(h.handleAutosaveStatus))
	h.mux.HandleFunc("POST "+lk+"/{shopPath}/autosave/{field}", h.api(h.handleAutosave))

	// Способы оплаты
	h.mux.HandleFunc("POST "+lk+"/{shopPath}/methods", h.page(h.handleCreateMethod))
	h.mux.HandleFunc("POST "+lk+"/{shopPath}/methods/{id}", h.page(h.handleUpdateMethod))
	h.mux.HandleFunc("POST "+lk+"/{shopPath}/methods/{id}/delete", h.page(h.handleDeleteMethod))
	h.mux.HandleFunc("POST "+lk+"/{shopPath}/methods/drag", h.api(h.handleDrag))
	h.mux.HandleFunc("POST "+lk+"/{shopPath}/methods/order", h.api(h.handleSaveOrder))

	// Ключи API
	h.mux.HandleFunc("POST "+lk+"/{shopPath}/apikey", h.page(h.handleCreateAPIKey))
	h.mux.HandleFunc("POST "+lk+"/{shopPath}/apikey/refresh", h.page(h.handleRefreshAPIKey))
	h.mux.HandleFunc("POST "+lk+"/{shopPath}/apikey/delete", h.page(h.handleDeleteAPIKey))

	// Публичная страница оплаты
	h.mux.HandleFunc("POST /api/v1/amount/reformat", h.api(h.handleReformat))
	h.mux.HandleFunc("GET /{link}", h.page(h.handleCheckout))
	h.mux.HandleFunc("GET /{link}/telegram/{id}", h.api(h.handleTelegramUser))
	h.mux.HandleFunc("POST /{link}/pay", h.page(h.handlePay))
}

type nopEmitter struct{}

func (nopEmitter) Emit(context.Context, events.Event) {}
