package usecase

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"linkbio-billing/internal/domain/model"
)

var emailTemplates = template.Must(template.New("emails").Funcs(template.FuncMap{
	"money": formatMoney,
	"date":  func(t time.Time) string { return t.UTC().Format("02 Jan 2006") },
}).Parse(`
{{define "invoice"}}<p>Hi {{.User.Username}},</p>
<p>Thanks for upgrading to Pro. We received {{money .Payment.Amount .Payment.Currency}}.</p>
<p>Invoice <b>{{.Payment.InvoiceNumber}}</b> is attached. Your plan is active until {{date .ExpiresAt}}.</p>{{end}}

{{define "refund"}}<p>Hi {{.User.Username}},</p>
<p>We refunded {{money .Payment.Amount .Payment.Currency}} for invoice {{.Payment.InvoiceNumber}}.
Banks usually take 5-7 working days to show the credit.</p>{{end}}

{{define "expiry"}}<p>Hi {{.User.Username}},</p>
<p>Your Pro plan expires on {{date .ExpiresAt}}. Renew to keep unlimited links, analytics and custom themes.</p>
{{if .RenewURL}}<p><a href="{{.RenewURL}}">Renew now</a></p>{{end}}{{end}}
`))

type emailData struct {
	User      *model.User
	Payment   *model.Payment
	ExpiresAt time.Time
	RenewURL  string
}

func renderEmail(name string, d emailData) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name, d); err != nil {
		return "", fmt.Errorf("render %s email: %w", name, err)
	}
	return buf.String(), nil
}

// formatMoney renders minor units as "INR 149.00".
func formatMoney(minor int64, currency string) string {
	return fmt.Sprintf("%s %d.%02d", currency, minor/100, minor%100)
}
