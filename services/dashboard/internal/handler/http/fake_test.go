package http

import (
	"context"
	"sync"

	pkgErrors "BileePlatform/pkg/errors"
	"BileePlatform/services/dashboard/internal/api"
	"BileePlatform/services/dashboard/internal/events"
)

// fakeBackend хранит данные upstream API в памяти
type fakeBackend struct {
	mu sync.Mutex

	token    string
	user     api.User
	projects []api.Project
	methods  map[int64][]api.PaymentMethod
	icons    []api.Icon
	systems  []api.PaymentSystem
	keys     map[int64]*api.ApiKey
	telegram map[string]api.TelegramUser

	loginErr     error
	registerErr  error
	createErr    error
	createdLinks []string
	updates      []api.ProjectUpdate
	positions    [][]api.Position
	deleted      []int64
	transactions []api.TransactionData
	payURL       string
	nextID       int64
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		token: "access-1",
		user:  api.User{ID: 1, Email: "merchant@bilee.ru"},
		projects: []api.Project{{
			ID: 10, Name: "Shop Bot", Link: "shop", URL: "https://t.me/shop_bot",
			SupportURL: "https://t.me/support", FooterText: "Магазин цифровых товаров",
		}},
		methods: map[int64][]api.PaymentMethod{
			10: {
				{ID: 1, Name: "Карта", MinAmount: 100, MaxAmount: 50000, Commission: 3.5, PositionIndex: 1, Primary: true, Enabled: true, PaymentSystemID: 7},
				{ID: 2, Name: "СБП", MinAmount: 200, MaxAmount: 100000, Commission: 1, PositionIndex: 2, Enabled: true, PaymentSystemID: 7},
			},
		},
		icons: []api.Icon{{ID: 3, URL: "https://cdn.bilee.ru/card.svg", Name: "card"}},
		systems: []api.PaymentSystem{{
			ID: 7, Name: "Provider", Slug: "provider", Active: true,
			MethodParams: []api.MethodParam{
				{ID: 70, Name: "Merchant ID", Type: api.ParamInt},
				{ID: 71, Name: "Test mode", Type: api.ParamBoolean},
			},
		}},
		keys:     map[int64]*api.ApiKey{},
		telegram: map[string]api.TelegramUser{"42": {ID: "42", FullName: "Ivan", Username: "ivan"}},
		nextID:   100,
		payURL:   "https://pay.provider.test/tx/1",
	}
}

func (f *fakeBackend) RefreshTokens(ctx context.Context, cookie string) (*api.RefreshResult, error) {
	return &api.RefreshResult{AccessToken: f.token}, nil
}

func (f *fakeBackend) LoginEmail(ctx context.Context, email, password, cookie string) (*api.AuthResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &api.AuthResult{AccessToken: f.token, SetCookies: []string{"refresh=r1; Path=/; HttpOnly"}}, nil
}

func (f *fakeBackend) RegisterEmail(ctx context.Context, email, password, cookie string) (*api.AuthResult, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &api.AuthResult{AccessToken: f.token}, nil
}

func (f *fakeBackend) Logout(ctx context.Context, token, cookie string) ([]string, error) {
	return []string{"refresh=; Path=/; Max-Age=0"}, nil
}

func (f *fakeBackend) Me(ctx context.Context, token string) (*api.User, error) {
	if token != f.token {
		return nil, pkgErrors.New(pkgErrors.ErrUnauthorized, "bad token")
	}
	u := f.user
	return &u, nil
}

func (f *fakeBackend) MyProjects(ctx context.Context, token string) ([]api.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token != f.token {
		return nil, pkgErrors.New(pkgErrors.ErrUnauthorized, "bad token")
	}
	return append([]api.Project(nil), f.projects...), nil
}

func (f *fakeBackend) CreateProject(ctx context.Context, token string, req api.ProjectCreate) (*api.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, p := range f.projects {
		if p.Link == req.Link {
			return nil, pkgErrors.FromAPI("LINK_EXISTS", "")
		}
	}
	f.nextID++
	p := api.Project{ID: f.nextID, Name: "New Bot", Link: req.Link, SupportURL: req.SupportURL, URL: "https://t.me/new_bot"}
	f.projects = append(f.projects, p)
	f.createdLinks = append(f.createdLinks, req.Link)
	return &p, nil
}

func (f *fakeBackend) UpdateProject(ctx context.Context, token string, projectID int64, req api.ProjectUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, req)
	for i := range f.projects {
		if f.projects[i].ID != projectID {
			continue
		}
		if req.SupportURL != nil {
			f.projects[i].SupportURL = *req.SupportURL
		}
		if req.FooterText != nil {
			f.projects[i].FooterText = *req.FooterText
		}
		if req.NotifyURL != nil {
			f.projects[i].NotifyURL = *req.NotifyURL
		}
	}
	return nil
}

func (f *fakeBackend) DeleteProject(ctx context.Context, token string, projectID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.projects {
		if p.ID == projectID {
			f.projects = append(f.projects[:i], f.projects[i+1:]...)
			return nil
		}
	}
	return pkgErrors.FromAPI("NOT_FOUND", "")
}

func (f *fakeBackend) ProjectInfoByLink(ctx context.Context, link string) (*api.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.projects {
		if p.Link == link {
			return &p, nil
		}
	}
	return nil, pkgErrors.FromAPI("PROJECT_NOT_FOUND", "Проект не найден")
}

func (f *fakeBackend) AvailableMethods(ctx context.Context, projectID int64) ([]api.PaymentMethod, error) {
	return f.Methods(ctx, f.token, projectID)
}

func (f *fakeBackend) Methods(ctx context.Context, token string, projectID int64) ([]api.PaymentMethod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.PaymentMethod(nil), f.methods[projectID]...), nil
}

func (f *fakeBackend) CreateMethod(ctx context.Context, token string, projectID int64, req api.PaymentMethodCreate) (*api.PaymentMethod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	m := api.PaymentMethod{
		ID: f.nextID, Name: req.Name, MinAmount: req.MinAmount, MaxAmount: req.MaxAmount,
		Commission: req.Commission, PaymentSystemID: req.PaymentSystemID, Params: req.Params,
		PositionIndex: len(f.methods[projectID]) + 1, Enabled: req.Enabled,
	}
	f.methods[projectID] = append(f.methods[projectID], m)
	return &m, nil
}

func (f *fakeBackend) UpdateMethod(ctx context.Context, token string, projectID, methodID int64, req api.PaymentMethodCreate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, m := range f.methods[projectID] {
		if m.ID == methodID {
			f.methods[projectID][i].Name = req.Name
			f.methods[projectID][i].MinAmount = req.MinAmount
			f.methods[projectID][i].MaxAmount = req.MaxAmount
			f.methods[projectID][i].Enabled = req.Enabled
			return nil
		}
	}
	return pkgErrors.FromAPI("NOT_FOUND", "")
}

func (f *fakeBackend) DeleteMethod(ctx context.Context, token string, projectID, methodID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, m := range f.methods[projectID] {
		if m.ID == methodID {
			f.methods[projectID] = append(f.methods[projectID][:i], f.methods[projectID][i+1:]...)
			f.deleted = append(f.deleted, methodID)
			return nil
		}
	}
	return pkgErrors.FromAPI("NOT_FOUND", "")
}

func (f *fakeBackend) UpdatePositions(ctx context.Context, token string, projectID int64, positions []api.Position) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions = append(f.positions, positions)
	return nil
}

func (f *fakeBackend) Icons(ctx context.Context, token string) ([]api.Icon, error) {
	return f.icons, nil
}

func (f *fakeBackend) PaymentSystems(ctx context.Context, token string) ([]api.PaymentSystem, error) {
	return f.systems, nil
}

func (f *fakeBackend) CreateAPIKey(ctx context.Context, token string, projectID int64, name string) (*api.IssuedKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := &api.IssuedKey{Name: name, Token: "bk_live_0123456789abcdef"}
	masked := key.Masked()
	f.keys[projectID] = &masked
	return key, nil
}

func (f *fakeBackend) RefreshAPIKey(ctx context.Context, token string, projectID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw := "bk_live_fedcba9876543210"
	if k, ok := f.keys[projectID]; ok {
		k.ProtectedToken = api.MaskToken(raw)
	}
	return raw, nil
}

func (f *fakeBackend) GetAPIKey(ctx context.Context, token string, projectID int64) (*api.ApiKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if k, ok := f.keys[projectID]; ok {
		cp := *k
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeBackend) DeleteAPIKey(ctx context.Context, token string, projectID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, projectID)
	return nil
}

func (f *fakeBackend) TelegramUser(ctx context.Context, projectID int64, telegramID string) (*api.TelegramUser, error) {
	if u, ok := f.telegram[telegramID]; ok {
		return &u, nil
	}
	return nil, pkgErrors.FromAPI("USER_NOT_FOUND", "")
}

func (f *fakeBackend) CreateTransaction(ctx context.Context, data api.TransactionData) (*api.TransactionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transactions = append(f.transactions, data)
	return &api.TransactionResponse{URL: f.payURL}, nil
}

func (f *fakeBackend) projectUpdates() []api.ProjectUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.ProjectUpdate(nil), f.updates...)
}

// recordingEmitter запоминает события аудита
type recordingEmitter struct {
	mu     sync.Mutex
	events []string
}

func (e *recordingEmitter) Emit(ctx context.Context, event events.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event.Type)
}

func (e *recordingEmitter) types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.events...)
}
