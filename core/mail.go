package core

import (
	"bytes"
	"net/mail"
	"text/template"
)

type (
	// EmailMessage is a renderable email. BodyStr is used verbatim as the
	// text content; BodyTemplate (parsed with text/template against
	// TemplateData) takes precedence when set.
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string

		BodyTemplate string
		TemplateData interface{}
		TextContent  string
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) Render() error {
	if m.BodyTemplate == "" {
		m.TextContent = m.BodyStr
		return nil
	}
	tmpl, err := template.New("email").Parse(m.BodyTemplate)
	if err != nil {
		return err
	}
	var buff bytes.Buffer
	if err := tmpl.Execute(&buff, m.TemplateData); err != nil {
		return err
	}
	m.TextContent = buff.String()
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return m.TextContent != "" }
