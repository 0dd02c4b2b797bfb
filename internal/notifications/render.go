package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/angelmondragon/giftdesk-backend/pkg/mailer"
)

const dateLayout = "2 Jan 2006"

var templates = template.Must(template.New("email").Funcs(template.FuncMap{
	"date": func(t time.Time) string { return t.UTC().Format(dateLayout) },
}).Parse(`
{{define "layout"}}<!doctype html>
<html><body style="font-family:Helvetica,Arial,sans-serif;color:#1f2933">
<p>Hi {{.Name}},</p>
{{template "body" .}}
<p style="color:#7b8794;font-size:12px">Sent by GiftDesk</p>
</body></html>{{end}}

{{define "gift_link_issued"}}<p>{{.CampaignName}} has a gift waiting for you.</p>
<p><a href="{{.URL}}">Choose your gift</a></p>
{{if .ExpiresAt}}<p>This link is valid until {{date .ExpiresAt}}.</p>{{end}}{{end}}

{{define "gift_link_expiring"}}<p>Your gift from {{.CampaignName}} has not been claimed yet.</p>
<p><a href="{{.URL}}">Choose your gift</a> before {{date .ExpiresAt}}.</p>{{end}}

{{define "gift_redeemed"}}<p>Thanks for choosing {{.ProductName}} from {{.CampaignName}}.</p>
<p>We will let you know when it ships. Order reference: {{.Reference}}.</p>{{end}}

{{define "user_invited"}}<p>You have been invited to GiftDesk.</p>
<p>Sign in as <b>{{.Email}}</b> with the temporary password <b>{{.Secret}}</b> and change it after your first login.</p>{{end}}

{{define "invoice_generated"}}<p>Invoice {{.Reference}} for {{.Amount}} has been issued.</p>
<p>Payment is due by {{date .ExpiresAt}}.</p>{{end}}

{{define "wallet_credited"}}<p>{{.Amount}} was {{.State}} to your GiftDesk wallet.</p>{{end}}

{{define "vendor_assigned"}}<p>Order {{.Reference}} has been assigned to you for fulfilment.</p>
<p>Reply with tracking details once it ships.</p>{{end}}

{{define "order_status_changed"}}<p>Order {{.Reference}} is now <b>{{.State}}</b>.</p>{{end}}
`))

// view is the flat model every template reads from; each template uses the
// fields it needs.
type view struct {
	Name         string
	Email        string
	CampaignName string
	ProductName  string
	URL          string
	Reference    string
	Amount       string
	State        string
	Secret       string
	ExpiresAt    *time.Time
}

func render(kind string, to Contact, subject string, v view, text string) (mailer.Message, error) {
	v.Name = displayName(to)
	v.Email = to.Email

	t, err := templates.Clone()
	if err != nil {
		return mailer.Message{}, err
	}
	if _, err := t.New("body").Parse(fmt.Sprintf(`{{template %q .}}`, kind)); err != nil {
		return mailer.Message{}, err
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		return mailer.Message{}, fmt.Errorf("render %s: %w", kind, err)
	}
	return mailer.Message{
		To:      to.Email,
		ToName:  to.Name,
		Subject: subject,
		HTML:    buf.String(),
		Text:    fmt.Sprintf("Hi %s,\n\n%s\n", v.Name, strings.TrimSpace(text)),
	}, nil
}

func displayName(c Contact) string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	return c.Email
}

func shortRef(id fmt.Stringer) string {
	s := id.String()
	if len(s) > 8 {
		s = s[:8]
	}
	return strings.ToUpper(s)
}
