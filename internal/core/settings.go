package core

import (
	"strings"
	"time"
)

// Settings are process wide display preferences.
type Settings struct {
	Currency   string `json:"currency" yaml:"currency"`
	DateFormat string `json:"dateFormat" yaml:"date_format"`
	Theme      string `json:"theme" yaml:"theme"`
	Language   string `json:"language" yaml:"language"`
}

const (
	DateFormatUS  = "MM/DD/YYYY"
	DateFormatEU  = "DD/MM/YYYY"
	DateFormatISO = "YYYY-MM-DD"
)

var dateLayouts = map[string]string{
	DateFormatUS:  "01/02/2006",
	DateFormatEU:  "02/01/2006",
	DateFormatISO: "2006-01-02",
}

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"INR": "₹",
	"JPY": "¥",
}

// DefaultSettings is used when nothing has been persisted.
func DefaultSettings() Settings {
	return Settings{
		Currency:   "USD",
		DateFormat: DateFormatUS,
		Theme:      "light",
		Language:   "en",
	}
}

// WithDefaults fills blank fields from DefaultSettings.
func (s Settings) WithDefaults() Settings {
	d := DefaultSettings()
	if strings.TrimSpace(s.Currency) == "" {
		s.Currency = d.Currency
	}
	if strings.TrimSpace(s.DateFormat) == "" {
		s.DateFormat = d.DateFormat
	}
	if strings.TrimSpace(s.Theme) == "" {
		s.Theme = d.Theme
	}
	if strings.TrimSpace(s.Language) == "" {
		s.Language = d.Language
	}
	s.Currency = strings.ToUpper(strings.TrimSpace(s.Currency))
	return s
}

func (s Settings) Validate() error {
	if len(s.Currency) != 3 {
		return &ValidationError{Field: "currency", Reason: "must be a 3 letter code"}
	}
	if _, ok := dateLayouts[s.DateFormat]; !ok {
		return &ValidationError{Field: "dateFormat", Reason: "must be one of MM/DD/YYYY, DD/MM/YYYY, YYYY-MM-DD"}
	}
	if s.Theme != "light" && s.Theme != "dark" {
		return &ValidationError{Field: "theme", Reason: "must be light or dark"}
	}
	if strings.TrimSpace(s.Language) == "" {
		return &ValidationError{Field: "language", Reason: "cannot be empty"}
	}
	return nil
}

// CurrencySymbol looks up the display symbol for a currency code. Unknown
// codes are returned as-is followed by a space.
func CurrencySymbol(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if sym, ok := currencySymbols[code]; ok {
		return sym
	}
	return code + " "
}

// Symbol is the currency symbol for these settings.
func (s Settings) Symbol() string {
	return CurrencySymbol(s.Currency)
}

// FormatDate renders t with the configured date format.
func (s Settings) FormatDate(t time.Time) string {
	layout, ok := dateLayouts[s.DateFormat]
	if !ok {
		layout = dateLayouts[DateFormatUS]
	}
	return t.Format(layout)
}
