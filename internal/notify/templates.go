package notify

import (
	"bytes"
	"html/template"

	"example.com/lazywalker/internal/domain"
)

var kudosTemplate = template.Must(template.New("kudos").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="text-align: center; margin-bottom: 30px;">
    <h1 style="color: #0ea5e9; font-size: 28px; margin: 0;">LazyWalker</h1>
    <p style="color: #666; font-size: 16px; margin: 5px 0;">Japanese Walking Timer</p>
  </div>
  <div style="background: #fef3c7; padding: 30px; border-radius: 12px; margin-bottom: 20px; text-align: center;">
    <div style="font-size: 48px; margin-bottom: 15px;">🏆</div>
    <h2 style="color: #92400e; margin: 0 0 10px 0;">Well done {{.Name}}!</h2>
    <h3 style="color: #b45309; margin: 0 0 15px 0;">{{.Title}}</h3>
    <p style="color: #a16207; line-height: 1.6; margin: 0;">{{.Description}}</p>
  </div>
  {{- if .AppURL}}
  <div style="text-align: center; margin: 30px 0;">
    <a href="{{.AppURL}}" style="background: #0ea5e9; color: white; padding: 12px 30px; text-decoration: none; border-radius: 8px; font-weight: 600;">Keep walking 🚶</a>
  </div>
  {{- end}}
  <div style="text-align: center; color: #6b7280; font-size: 14px; margin-top: 30px;">
    <p>Every step counts! 🌱</p>
    <p><strong>LazyWalker Team</strong></p>
  </div>
</div>`))

type kudosView struct {
	Name        string
	Title       string
	Description string
	AppURL      string
}

// Subject is the email subject line for a kudos notification.
func Subject(n domain.Notification) string {
	return "🎉 Kudos! You reached: " + n.Title
}

// RenderKudos renders the HTML body for a kudos notification.
func RenderKudos(n domain.Notification, appURL string) (string, error) {
	name := n.DisplayName
	if name == "" {
		name = "walker"
	}
	var buf bytes.Buffer
	err := kudosTemplate.Execute(&buf, kudosView{
		Name:        name,
		Title:       n.Title,
		Description: n.Description,
		AppURL:      appURL,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
