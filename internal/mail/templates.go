package mail

import (
	"fmt"
	"html/template"
	"strings"
)

var resetTemplate = template.Must(template.New("reset").Parse(`<html>
<body>
<p>Hi {{.Name}},</p>
<p>We received a request to reset your Storeboost password. The link below is
valid for a limited time and works only once your session is refreshed.</p>
<p><a href="{{.ResetURL}}">Reset your password</a></p>
<p>If you did not request this, you can safely ignore this email.</p>
</body>
</html>`))

var invitationTemplate = template.Must(template.New("invitation").Parse(`<html>
<body>
<p>Hi {{.Name}},</p>
<p>You have been invited to join {{.OrgName}} on Storeboost. Follow the link
below to set your password and finish registration.</p>
<p><a href="{{.RegistrationURL}}">Accept invitation</a></p>
</body>
</html>`))

// RenderPasswordReset produces the reset email body for a frontend reset
// link carrying the session token.
func RenderPasswordReset(name, resetURL string) (string, error) {
	return render(resetTemplate, map[string]string{
		"Name":     displayName(name),
		"ResetURL": resetURL,
	})
}

// RenderInvitation produces the invitation email body for the registration
// link carrying the invitation token.
func RenderInvitation(name, orgName, registrationURL string) (string, error) {
	return render(invitationTemplate, map[string]string{
		"Name":            displayName(name),
		"OrgName":         orgName,
		"RegistrationURL": registrationURL,
	})
}

func render(t *template.Template, data map[string]string) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render %s template: %w", t.Name(), err)
	}
	return sb.String(), nil
}

func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "there"
	}
	return name
}
