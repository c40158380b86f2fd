package api

// User текущий мерчант
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Project магазин мерчанта, привязанный к Telegram боту
type Project struct {
	ID                int64  `json:"id"`
	BotToken          string `json:"bot_token,omitempty"`
	Name              string `json:"name"`
	Picture           string `json:"picture"`
	Link              string `json:"link"`
	SupportURL        string `json:"support_url"`
	NotifyURL         string `json:"notify_url"`
	FooterText        string `json:"footer_text"`
	URL               string `json:"url"`
	MaxPaymentMethods int    `json:"max_payment_methods"`
}

// BotUsername возвращает имя бота из ссылки вида https://t.me/<name>
func (p Project) BotUsername() string {
	const prefix = "https://t.me/"
	if len(p.URL) > len(prefix) && p.URL[:len(prefix)] == prefix {
		return p.URL[len(prefix):]
	}
	return p.URL
}

// ProjectCreate тело запроса создания проекта
type ProjectCreate struct {
	BotToken   string `json:"bot_token"`
	SupportURL string `json:"support_url"`
	Link       string `json:"link"`
}

// ProjectUpdate частичное обновление проекта. Пустые указатели не отправляются.
type ProjectUpdate struct {
	SupportURL *string `json:"support_url,omitempty"`
	NotifyURL  *string `json:"notify_url,omitempty"`
	FooterText *string `json:"footer_text,omitempty"`
}

// Icon иконка из каталога
type Icon struct {
	ID      int64  `json:"id"`
	URL     string `json:"url"`
	Name    string `json:"name"`
	Colored bool   `json:"colored"`
}

// MethodSystem краткое описание платежной системы внутри способа оплаты
type MethodSystem struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Active bool   `json:"active"`
}

// ParamData значение технического параметра способа оплаты.
// Value может быть строкой, числом или bool.
type ParamData struct {
	ParamID int64       `json:"param_id"`
	Value   interface{} `json:"value"`
}

// PaymentMethod способ оплаты проекта
type PaymentMethod struct {
	ID                  int64         `json:"id"`
	Name                string        `json:"name"`
	IconID              int64         `json:"icon_id,omitempty"`
	Icon                Icon          `json:"icon"`
	MinAmount           float64       `json:"min_amount"`
	MaxAmount           float64       `json:"max_amount"`
	Commission          float64       `json:"commission"`
	MinCommissionAmount float64       `json:"min_commission_amount"`
	PaymentSystemID     int64         `json:"payment_system_id,omitempty"`
	System              *MethodSystem `json:"system,omitempty"`
	PositionIndex       int           `json:"position_index"`
	ProjectID           int64         `json:"project_id"`
	Deleted             bool          `json:"deleted"`
	Enabled             bool          `json:"enabled"`
	Primary             bool          `json:"primary"`
	Params              []ParamData   `json:"params"`
}

// PaymentMethodCreate тело запроса создания и обновления способа оплаты
type PaymentMethodCreate struct {
	Name                string      `json:"name"`
	IconID              int64       `json:"icon_id"`
	MinAmount           float64     `json:"min_amount"`
	MaxAmount           float64     `json:"max_amount"`
	Commission          float64     `json:"commission"`
	MinCommissionAmount float64     `json:"min_commission_amount"`
	PaymentSystemID     int64       `json:"payment_system_id"`
	Params              []ParamData `json:"params"`
	Enabled             bool        `json:"enabled"`
}

// Position позиция способа оплаты для пакетного обновления порядка
type Position struct {
	ID            int64 `json:"id"`
	PositionIndex int   `json:"position_index"`
	Primary       bool  `json:"primary"`
}

// Типы технических параметров платежной системы
const (
	ParamString  = "string"
	ParamInt     = "int"
	ParamFloat   = "float"
	ParamBoolean = "boolean"
	ParamEnum    = "enum"
)

// MethodParam описание технического параметра платежной системы
type MethodParam struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	KeyName    string   `json:"key_name"`
	IsOptional bool     `json:"is_optional"`
	Type       string   `json:"type"`
	Example    string   `json:"example"`
	Enum       []string `json:"enum"`
}

// PaymentSystem платежная система из каталога
type PaymentSystem struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	Slug         string        `json:"slug"`
	Active       bool          `json:"active"`
	MethodParams []MethodParam `json:"method_params"`
}

// ApiKey ключ API проекта. ProtectedToken хранит только маскированную форму.
type ApiKey struct {
	Name           string `json:"name"`
	ProtectedToken string `json:"protected_token"`
}

// IssuedKey ключ, показанный один раз после выпуска или перевыпуска
type IssuedKey struct {
	Name  string
	Token string
}

// Masked возвращает ключ в маскированном виде
func (k IssuedKey) Masked() ApiKey {
	return ApiKey{Name: k.Name, ProtectedToken: MaskToken(k.Token)}
}

// TelegramUser результат поиска покупателя по Telegram ID
type TelegramUser struct {
	ID       string `json:"id,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Username string `json:"username,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	Invalid  bool   `json:"invalid,omitempty"`
}

// TransactionData тело запроса создания транзакции
type TransactionData struct {
	TelegramID string  `json:"telegram_id"`
	MethodID   int64   `json:"method_id"`
	Amount     float64 `json:"amount"`
}

// TransactionResponse ссылка на оплату у провайдера
type TransactionResponse struct {
	URL string `json:"url"`
}

// RefreshResult результат обновления токенов
type RefreshResult struct {
	AccessToken string
	SetCookies  []string
}

// OK сообщает, вернул ли upstream токен доступа
func (r *RefreshResult) OK() bool {
	return r != nil && r.AccessToken != ""
}

// AuthResult результат входа или регистрации
type AuthResult struct {
	AccessToken string
	SetCookies  []string
}

// MaskToken возвращает первые 4 и последние 4 символа ключа через "***"
func MaskToken(token string) string {
	r := []rune(token)
	return string(r[:min(4, len(r))]) + "***" + string(r[max(0, len(r)-4):])
}
