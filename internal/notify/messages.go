// Package notify holds the post-commit hooks fired after estimate lifecycle
// changes: email, SMS, CRM and the session bus.
package notify

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"tour-estimate-workers/internal/estimate"
	"tour-estimate-workers/internal/models"
)

type message struct {
	subject *template.Template
	body    *template.Template
}

func mustMessage(name, subject, body string) message {
	return message{
		subject: template.Must(template.New(name + ".subject").Funcs(funcs).Parse(subject)),
		body:    template.Must(template.New(name + ".body").Funcs(funcs).Parse(body)),
	}
}

var (
	expertSubmitted = mustMessage("expert-submitted",
		`[Estimate request] {{.Survey.Days}} days in {{.Region}} for {{.Survey.Travelers}}`,
		`A traveler submitted a quote request.

Session:     {{.SessionID}}
Estimate:    {{.EstimateID}} ({{.Status}})
Contact:     {{.Contact.Name}} <{{.Contact.Email}}> {{.Contact.Phone}}
Region:      {{.Region}}
Days:        {{.Survey.Days}}
Travelers:   {{.Survey.Travelers}}
Interests:   {{join .Survey.Interests}}
Must see:    {{join .Survey.MustSee}}
Items:       {{.ItemCount}} ({{.Placeholders}} awaiting resolution)
{{- if .Survey.Notes}}

Notes:
{{.Survey.Notes}}
{{- end}}
`)

	expertRevision = mustMessage("expert-revision",
		`[Revision requested] estimate {{.EstimateID}}`,
		`The traveler asked for changes to estimate {{.EstimateID}} (was {{.Previous}}).

{{.Revision}}
`)

	expertResponse = mustMessage("expert-response",
		`[Estimate {{.Status}}] {{.EstimateID}}`,
		`The traveler responded to estimate {{.EstimateID}}: {{.Status}}.
`)

	customerSent = mustMessage("customer-sent",
		`Your {{.Survey.Days}}-day {{.Region}} itinerary is ready`,
		`Hello{{if .Contact.Name}} {{.Contact.Name}}{{end}},

Your travel expert has prepared your estimate.
View it here: {{.ShareURL}}

This estimate is valid until {{.ValidUntil}}.
`)
)

var funcs = template.FuncMap{"join": func(s []string) string { return strings.Join(s, ", ") }}

// view is the data every message template renders from.
type view struct {
	SessionID    string
	EstimateID   string
	Status       models.EstimateStatus
	Previous     models.EstimateStatus
	Region       string
	Survey       models.Survey
	Contact      models.Contact
	ItemCount    int
	Placeholders int
	ShareURL     string
	ValidUntil   string
	Revision     string
}

func newView(n estimate.Notice, shareBaseURL string) view {
	v := view{SessionID: n.SessionID(), Previous: n.Previous}
	if n.Session != nil {
		v.Survey = n.Session.Survey
		v.Contact = n.Session.Contact
		v.Region = n.Session.Survey.Region
	}
	if n.Estimate != nil {
		v.EstimateID = n.Estimate.ID
		v.Status = n.Estimate.Status
		v.ItemCount = len(n.Estimate.Items)
		for _, it := range n.Estimate.Items {
			if it.IsPlaceholder() {
				v.Placeholders++
			}
		}
		v.ShareURL = ShareURL(shareBaseURL, n.Estimate.ShareToken)
		if !n.Estimate.ValidUntil.IsZero() {
			v.ValidUntil = n.Estimate.ValidUntil.Format("2006-01-02")
		}
	}
	if n.Revision != nil {
		v.Revision = n.Revision.Details
	}
	return v
}

func (m message) render(v view) (subject, body string, err error) {
	var s, b bytes.Buffer
	if err := m.subject.Execute(&s, v); err != nil {
		return "", "", fmt.Errorf("render subject: %w", err)
	}
	if err := m.body.Execute(&b, v); err != nil {
		return "", "", fmt.Errorf("render body: %w", err)
	}
	return s.String(), b.String(), nil
}

// ShareURL builds the customer-facing link for a share token.
func ShareURL(base, token string) string {
	if token == "" {
		return ""
	}
	return strings.TrimSuffix(base, "/") + "/" + token
}
