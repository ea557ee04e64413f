package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/khanofemperia/gethsemane-sub001/internal/domain"
)

var funcs = template.FuncMap{
	"price":  func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"status": statusLabel,
}

var confirmationTemplate = template.Must(template.New("confirmation").Funcs(funcs).Parse(`
<h1>Thanks for your order{{with .Order.Payer.Name}}, {{.}}{{end}}!</h1>
<p>Order <strong>{{.ShortID}}</strong> has been received and is being prepared.</p>
<table>
{{range .Order.Items}}<tr><td>{{.Name}}{{if .Size}} ({{.Size}}{{if .Color}}, {{.Color}}{{end}}){{end}}</td><td>{{price .Price}}</td></tr>
{{end}}</table>
<p>Total: {{price .Order.Amount.Value}} {{.Order.Amount.Currency}}</p>
{{with .Order.Shipping}}<p>Shipping to {{.Name}}, {{.Line1}}, {{.City}} {{.PostalCode}}, {{.Country}}</p>{{end}}
<p><a href="{{.ShopURL}}">{{.ShopURL}}</a></p>
`))

var statusTemplate = template.Must(template.New("status").Funcs(funcs).Parse(`
<h1>Order update</h1>
<p>Order <strong>{{.ShortID}}</strong> is now <strong>{{status .Order.Status}}</strong>.</p>
<p><a href="{{.ShopURL}}">{{.ShopURL}}</a></p>
`))

type templateData struct {
	Order   *domain.Order
	ShortID string
	ShopURL string
}

func render(tmpl *template.Template, subject string, order *domain.Order, shopURL string) (Message, error) {
	var html bytes.Buffer
	data := templateData{Order: order, ShortID: shortID(order.ID), ShopURL: shopURL}
	if err := tmpl.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("failed to render %s e-mail: %w", tmpl.Name(), err)
	}

	return Message{
		To:      order.Payer.Email,
		ToName:  order.Payer.Name,
		Subject: subject,
		HTML:    strings.TrimSpace(html.String()),
		Text:    plainText(order, subject),
	}, nil
}

func plainText(order *domain.Order, subject string) string {
	var b strings.Builder
	b.WriteString(subject)
	b.WriteString("\n\n")
	for _, it := range order.Items {
		fmt.Fprintf(&b, "- %s  %.2f\n", it.Name, it.Price)
	}
	fmt.Fprintf(&b, "\nTotal: %.2f %s\n", order.Amount.Value, order.Amount.Currency)
	return b.String()
}

func statusLabel(s domain.OrderStatus) string {
	return strings.ToLower(string(s))
}
