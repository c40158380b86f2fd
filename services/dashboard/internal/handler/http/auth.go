package http

import (
	"net/http"
	"strings"

	pkgErrors "BileePlatform/pkg/errors"
	"BileePlatform/pkg/logger"
	"BileePlatform/pkg/validation"
	"BileePlatform/services/dashboard/internal/api"
	"BileePlatform/services/dashboard/internal/form"
	"BileePlatform/services/dashboard/internal/middleware"
	"BileePlatform/services/dashboard/internal/session"
)

const (
	msgInvalidCreds  = "Неверная почта или пароль"
	msgSomethingBad  = "Что-то пошло не так"
	msgEmailTaken    = "Учетная запись с такой почтой уже существует"
	msgPasswordsDiff = "Пароли не совпадают"
)

// authForm поля форм входа и регистрации
type authForm struct {
	email    *form.Field[string]
	password *form.Field[string]
	repeat   *form.Field[string]
}

func newAuthForm(register bool) *authForm {
	passwordValid := func(v string) bool { return v != "" }
	if register {
		passwordValid = func(v string) bool { return validation.AnalyzePassword(v).Secure }
	}
	return &authForm{
		email:    form.NewField("", validation.IsValidEmail),
		password: form.NewField("", passwordValid),
		repeat:   form.NewField("", nil),
	}
}

// bind заполняет поля из отправленной формы и проверяет их
func (f *authForm) bind(r *http.Request) {
	f.email.Set(strings.TrimSpace(r.PostFormValue("email")))
	f.password.Set(r.PostFormValue("password"))
	f.repeat.Set(r.PostFormValue("password_repeat"))
	f.email.FocusOut()
	f.password.FocusOut()
}

func (h *Handler) authView(f *authForm, register bool, errMsg string) authView {
	v := authView{
		Register:  register,
		Action:    h.cfg.LoginPath,
		AltAction: h.cfg.RegisterPath,
		Email:     viewOf(f.email),
		Password:  fieldView{Invalid: f.password.Invalid(), Message: f.password.Message()},
		Error:     errMsg,
	}
	if register {
		v.Action, v.AltAction = h.cfg.RegisterPath, h.cfg.LoginPath
		v.Repeat = fieldView{Invalid: f.repeat.Invalid(), Message: f.repeat.Message()}
		a := validation.AnalyzePassword(f.password.Value())
		v.Checklist = []checkItem{
			{Label: "строчная буква", Ok: a.HasLowercase},
			{Label: "заглавная буква", Ok: a.HasUppercase},
			{Label: "цифра", Ok: a.HasDigit},
			{Label: "спец. символ", Ok: a.HasSymbols},
			{Label: "от 8 символов", Ok: a.HasLength},
		}
	}
	return v
}

func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) (Result, error) {
	return Rendered{Template: "login", Data: h.authView(newAuthForm(false), false, "")}, nil
}

func (h *Handler) handleRegisterPage(w http.ResponseWriter, r *http.Request) (Result, error) {
	return Rendered{Template: "login", Data: h.authView(newAuthForm(true), true, "")}, nil
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) (Result, error) {
	f := newAuthForm(false)
	f.bind(r)
	if !form.AreFieldsFilled(f.email, f.password) || !form.AllValid(f.email, f.password) {
		return Rendered{Template: "login", Data: h.authView(f, false, ""), Status: http.StatusUnprocessableEntity}, nil
	}

	res, err := h.backend.LoginEmail(r.Context(), f.email.Value(), f.password.Value(), r.Header.Get("Cookie"))
	if err != nil {
		msg := msgSomethingBad
		if pkgErrors.CodeOf(err) == pkgErrors.ErrInvalidLoginCreds {
			f.email.Invalidate(msgInvalidCreds)
			f.password.Invalidate(msgInvalidCreds)
			msg = msgInvalidCreds
		}
		h.logger.Info("неудачная попытка входа",
			logger.CtxField(r.Context()),
			logger.String("code", string(pkgErrors.CodeOf(err))))
		return Rendered{Template: "login", Data: h.authView(f, false, msg), Status: http.StatusUnprocessableEntity}, nil
	}

	return h.completeAuth(w, r, res), nil
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) (Result, error) {
	f := newAuthForm(true)
	f.bind(r)
	if f.repeat.Value() != f.password.Value() {
		f.repeat.Invalidate(msgPasswordsDiff)
	}
	if !form.AreFieldsFilled(f.email, f.password) || !form.AllValid(f.email, f.password, f.repeat) {
		return Rendered{Template: "login", Data: h.authView(f, true, ""), Status: http.StatusUnprocessableEntity}, nil
	}

	res, err := h.backend.RegisterEmail(r.Context(), f.email.Value(), f.password.Value(), r.Header.Get("Cookie"))
	if err != nil {
		msg := msgEmailTaken
		switch pkgErrors.CodeOf(err) {
		case pkgErrors.ErrTransport, pkgErrors.ErrInternal:
			msg = msgSomethingBad
		default:
			f.email.Invalidate(msgEmailTaken)
		}
		h.logger.Info("неудачная попытка регистрации",
			logger.CtxField(r.Context()),
			logger.String("code", string(pkgErrors.CodeOf(err))))
		return Rendered{Template: "login", Data: h.authView(f, true, msg), Status: http.StatusUnprocessableEntity}, nil
	}

	return h.completeAuth(w, r, res), nil
}

// completeAuth передает токен в кабинет через одноразовую cookie.
// Сессия дашборда выдается заново: данные прежнего мерчанта в нее не попадают.
func (h *Handler) completeAuth(w http.ResponseWriter, r *http.Request, res *api.AuthResult) Result {
	if old, ok := session.ID(r.Context()); ok {
		h.sessions.Delete(old)
		h.dropSession(old)
	}

	middleware.SetHandoff(w, h.cfg, res.AccessToken, res.SetCookies)
	sid := middleware.IssueSessionID(w, h.cfg)
	h.sessions.Touch(sid, res.AccessToken, session.MergeCookies(r.Header.Get("Cookie"), res.SetCookies))
	return Redirect{Location: h.cfg.PublicURL + h.cfg.DashboardPrefix, Status: http.StatusFound}
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) (Result, error) {
	ctx := r.Context()
	cookie := r.Header.Get("Cookie")

	if t, ok := session.AccessToken(ctx); ok {
		setCookies, err := h.backend.Logout(ctx, t, cookie)
		if err != nil {
			h.logger.Warn("ошибка выхода из upstream", logger.CtxField(ctx), logger.Error(err))
		}
		for _, c := range setCookies {
			w.Header().Add("Set-Cookie", c)
		}
	}

	if sid, ok := session.ID(ctx); ok {
		if s, ok := h.sessions.Get(sid); ok {
			s.Clear()
		}
		h.sessions.Delete(sid)
		h.dropSession(sid)
	}

	return Redirect{Location: h.cfg.PublicURL + h.cfg.LoginPath}, nil
}
