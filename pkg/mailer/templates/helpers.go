package templates

import (
	"github.com/oksasatya/go-ddd-ecommerce/config"
)

// Option pattern
type Option func(*EmailData)

func WithName(name string) Option { return func(d *EmailData) { d.Name = name } }

func WithOrder(id, status, total string, items []LineItem) Option {
	return func(d *EmailData) {
		d.OrderID = id
		d.Status = status
		d.Total = total
		d.Items = items
	}
}

// WithCompany fills the company fields from config.
func WithCompany(cfg *config.Config) Option {
	return func(d *EmailData) {
		d.CompanyName = cfg.CompanyName
		d.AppName = cfg.AppName
		d.SupportURL = cfg.SupportURL
		d.ShopURL = cfg.ShopURL
	}
}

// NewEmailData addresses the email to email, then applies opts. Company fields
// left empty are filled by the worker with WithBranding.
func NewEmailData(email string, opts ...Option) EmailData {
	d := EmailData{Email: email, RecipientEmail: email}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// WithBranding fills empty company fields of data from config. The worker applies
// it so publishers only need to send recipient and order fields.
func WithBranding(cfg *config.Config, data map[string]any) map[string]any {
	if data == nil {
		data = map[string]any{}
	}
	for k, v := range map[string]string{
		"CompanyName": cfg.CompanyName,
		"AppName":     cfg.AppName,
		"SupportURL":  cfg.SupportURL,
		"ShopURL":     cfg.ShopURL,
	} {
		if cur, ok := data[k].(string); !ok || cur == "" {
			data[k] = v
		}
	}
	return data
}
