package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"BileePlatform/pkg/config"
	"BileePlatform/pkg/logger"
	"BileePlatform/services/dashboard/internal/amount"
	"BileePlatform/services/dashboard/internal/form"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Страницы, собираемые поверх layout.html
var pages = []string{"login", "shops", "shop", "checkout", "error", "not_found"}

// TemplateManager интерфейс для отрисовки страниц
type TemplateManager interface {
	Render(w http.ResponseWriter, name string, data interface{}, status int) error
}

// DefaultTemplateManager менеджер встроенных шаблонов
type DefaultTemplateManager struct {
	templates map[string]*template.Template
	logger    logger.Logger
}

// NewDefaultTemplateManager разбирает встроенные шаблоны. Ссылки кабинета
// строятся от префикса и пути входа из cfg.
func NewDefaultTemplateManager(formatter *amount.Formatter, cfg config.SessionConfig, log logger.Logger) (*DefaultTemplateManager, error) {
	tm := &DefaultTemplateManager{
		templates: make(map[string]*template.Template),
		logger:    log,
	}
	if err := tm.initializeTemplates(formatter, cfg); err != nil {
		return nil, err
	}
	return tm, nil
}

func (tm *DefaultTemplateManager) initializeTemplates(formatter *amount.Formatter, cfg config.SessionConfig) error {
	lk := func(parts ...interface{}) string {
		return dashboardPath(cfg.DashboardPrefix, parts...)
	}
	funcs := template.FuncMap{
		"rub":       formatter.FormatFloat,
		"nickname":  nickname,
		"bot":       botHandle,
		"lk":        lk,
		"loginPath": func() string { return cfg.LoginPath },
		// methodForm передает форму способа оплаты вместе с каталогами
		"methodForm": func(f *methodFormView, v *methodsView, action string) methodFormData {
			return methodFormData{Form: f, Icons: v.Icons, Systems: v.Systems, Action: action}
		},
		"methodRow": func(row methodRow, v *methodsView, link string) methodRowData {
			return methodRowData{Row: row, View: v, Link: link}
		},
		"autosave": func(link, field, label, invalid string, multiline bool, status form.Status[string]) autosaveFieldData {
			return autosaveFieldData{
				URL:       lk(link, "autosave", field),
				Label:     label,
				Invalid:   invalid,
				Multiline: multiline,
				Status:    status,
			}
		},
	}

	base, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return fmt.Errorf("parse layout: %w", err)
	}

	for _, name := range pages {
		t, err := base.Clone()
		if err != nil {
			return fmt.Errorf("clone layout for %s: %w", name, err)
		}
		if _, err := t.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return fmt.Errorf("parse template %s: %w", name, err)
		}
		tm.templates[name] = t
	}

	tm.logger.Debug("шаблоны страниц загружены", logger.Int("count", len(tm.templates)))
	return nil
}

// Render отрисовывает страницу в буфер и только затем пишет статус
func (tm *DefaultTemplateManager) Render(w http.ResponseWriter, name string, data interface{}, status int) error {
	t, ok := tm.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return fmt.Errorf("template %s not found", name)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return fmt.Errorf("execute template %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// dashboardPath собирает путь кабинета из префикса и сегментов
func dashboardPath(prefix string, parts ...interface{}) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range parts {
		b.WriteByte('/')
		fmt.Fprint(&b, p)
	}
	return b.String()
}

// nickname часть почты до @
func nickname(email string) string {
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}

// botHandle имя бота из ссылки t.me
func botHandle(url string) string {
	return "@" + strings.TrimPrefix(url, "https://t.me/")
}
