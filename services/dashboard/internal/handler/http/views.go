package http

import (
	"fmt"
	"net/http"
	"strconv"

	pkgErrors "BileePlatform/pkg/errors"
	"BileePlatform/services/dashboard/internal/api"
	"BileePlatform/services/dashboard/internal/form"
	"BileePlatform/services/dashboard/internal/ordering"
	"BileePlatform/services/dashboard/internal/session"
)

// fieldView поле формы для шаблона
type fieldView struct {
	Value   string
	Invalid bool
	Message string
}

func viewOf(f *form.Field[string]) fieldView {
	return fieldView{Value: f.Value(), Invalid: f.Invalid(), Message: f.Message()}
}

type checkItem struct {
	Label string
	Ok    bool
}

type authView struct {
	Register  bool
	Action    string
	AltAction string
	Email     fieldView
	Password  fieldView
	Repeat    fieldView
	Checklist []checkItem
	Error     string
}

type errorView struct {
	Message string
	Code    string
}

type createProjectView struct {
	Open       bool
	SupportURL fieldView
	Link       fieldView
	BotToken   fieldView
	Error      string
}

type shopsView struct {
	Me     *api.User
	Shops  []api.Project
	Create createProjectView
}

type tabView struct {
	Name   string
	Title  string
	Active bool
}

// Вкладки настроек проекта
var tabs = []tabView{
	{Name: "bot", Title: "Бот"},
	{Name: "methods", Title: "Способы оплаты"},
	{Name: "payment", Title: "Страница оплаты"},
	{Name: "api", Title: "API"},
}

type methodFormView struct {
	ID                  int64
	New                 bool
	Name                fieldView
	MinAmount           fieldView
	MaxAmount           fieldView
	Commission          fieldView
	MinCommissionAmount fieldView
	IconID              int64
	PaymentSystemID     int64
	Enabled             bool
	Params              map[int64]string
	Error               string
}

type methodRow struct {
	Method api.PaymentMethod
	Locked bool
	Form   *methodFormView
}

type methodsView struct {
	Primary   []methodRow
	Secondary []methodRow
	CanAdd    bool
	Cap       int
	Icons     []api.Icon
	Systems   []api.PaymentSystem
	NewForm   *methodFormView
}

// attach показывает отклоненную форму вместо исходных значений
func (v *methodsView) attach(f *methodFormView) {
	if f.New {
		v.NewForm = f
		return
	}
	for _, list := range [][]methodRow{v.Primary, v.Secondary} {
		for i := range list {
			if list[i].Method.ID == f.ID {
				list[i].Form = f
			}
		}
	}
}

// methodFormOf заполняет форму редактирования значениями способа оплаты
func methodFormOf(m api.PaymentMethod) *methodFormView {
	num := func(v float64) fieldView { return fieldView{Value: strconv.FormatFloat(v, 'f', -1, 64)} }
	params := make(map[int64]string, len(m.Params))
	for _, p := range m.Params {
		params[p.ParamID] = fmt.Sprint(p.Value)
	}
	return &methodFormView{
		ID:                  m.ID,
		Name:                fieldView{Value: m.Name},
		MinAmount:           num(m.MinAmount),
		MaxAmount:           num(m.MaxAmount),
		Commission:          num(m.Commission),
		MinCommissionAmount: num(m.MinCommissionAmount),
		IconID:              iconID(m),
		PaymentSystemID:     systemID(m),
		Enabled:             m.Enabled,
		Params:              params,
	}
}

func systemID(m api.PaymentMethod) int64 {
	if m.PaymentSystemID == 0 && m.System != nil {
		return m.System.ID
	}
	return m.PaymentSystemID
}

type methodRowData struct {
	Row  methodRow
	View *methodsView
	Link string
}

type autosaveFieldData struct {
	URL       string
	Label     string
	Invalid   string
	Multiline bool
	Status    form.Status[string]
}

// methodFormData форма способа оплаты вместе с каталогами для шаблона
type methodFormData struct {
	Form    *methodFormView
	Icons   []api.Icon
	Systems []api.PaymentSystem
	Action  string
}

func iconID(m api.PaymentMethod) int64 {
	if m.IconID != 0 {
		return m.IconID
	}
	return m.Icon.ID
}

type apiKeyView struct {
	Key       *api.ApiKey
	Issued    string
	NameError bool
}

type shopView struct {
	Me       *api.User
	Shops    []api.Project
	Project  api.Project
	Tab      string
	Tabs     []tabView
	Confirm  fieldView
	Autosave map[string]form.Status[string]
	Methods  *methodsView
	APIKey   *apiKeyView
	Error    string
}

type presetView struct {
	Label string
	Value string
}

// Быстрые суммы страницы оплаты
var presets = []presetView{
	{Label: "100", Value: "100"},
	{Label: "300", Value: "300"},
	{Label: "500", Value: "500"},
	{Label: "1 000", Value: "1000"},
	{Label: "5 000", Value: "5000"},
}

type methodCard struct {
	Method   api.PaymentMethod
	Less     bool
	More     bool
	Good     bool
	Selected bool
}

type checkoutView struct {
	Project    api.Project
	Methods    []methodCard
	Presets    []presetView
	Amount     fieldView
	TelegramID fieldView
	MethodID   int64
	Error      string
}

// token достает токен доступа, выставленный middleware дашборда
func token(r *http.Request) (string, error) {
	if t, ok := session.AccessToken(r.Context()); ok {
		return t, nil
	}
	return "", session.ErrUnauthenticated
}

// scope ключ кеша ресурсов текущего мерчанта
func scope(r *http.Request) string {
	id, _ := session.ID(r.Context())
	return id
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgErrors.New(pkgErrors.ErrNotFound, "invalid "+name)
	}
	return id, nil
}

func rows(l *ordering.Layout, methods []api.PaymentMethod, primary bool) []methodRow {
	byID := make(map[int64]api.PaymentMethod, len(methods))
	for _, m := range methods {
		byID[m.ID] = m
	}
	ids := l.Secondary()
	if primary {
		ids = l.Primary()
	}
	out := make([]methodRow, 0, len(ids))
	for _, id := range ids {
		out = append(out, methodRow{
			Method: byID[id],
			Locked: primary && len(ids) == 1,
			Form:   methodFormOf(byID[id]),
		})
	}
	return out
}
