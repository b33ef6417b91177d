package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

const (
	// OTPSubject is the subject line of OTP messages.
	OTPSubject = "Your OTP for Verification"
	// ResetSubject is the subject line of password reset messages.
	ResetSubject = "Reset Your Password"
)

// OTPBody is the body of an OTP message.
func OTPBody(code string) string {
	return fmt.Sprintf("Your verification OTP is: %s", code)
}

// ResetEmail is the data rendered into the password reset message.
type ResetEmail struct {
	AppName   string
	Name      string
	Link      string
	ExpiresIn time.Duration
}

func (r ResetEmail) ExpiresInText() string {
	switch d := r.ExpiresIn.Round(time.Minute); {
	case d >= time.Hour && d%time.Hour == 0:
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d <= time.Minute:
		return "1 minute"
	default:
		return fmt.Sprintf("%d minutes", d/time.Minute)
	}
}

var resetEmailHTML = template.Must(template.New("reset").Parse(`<html>
  <body style="font-family:Arial,sans-serif; background-color:#f7f7f7; color:#333; padding:32px;">
    <div style="max-width:520px; background:white; margin:0 auto; border-radius:8px; box-shadow:0 3px 14px rgba(128,0,128,0.16),0 1.5px 4px rgba(128,0,128,0.08); padding:32px;">
      <h2 style="color:#6c2eb8; margin-bottom:16px;">Reset Your Password</h2>
      <p>Hello {{if .Name}}{{.Name}}{{else}}there{{end}},</p>
      <p>
        We received a request to reset your password.
        Please use the button below to reset your password. This link can only be used once and will expire in {{.ExpiresInText}}.
      </p>
      <div style="text-align:center; margin:32px 0;">
        <a href="{{.Link}}"
           style="display:inline-block; padding:16px 32px; background-color:#6c2eb8; color:#fff; font-weight:bold; font-size:16px; border-radius:6px; text-decoration:none; box-shadow:0 2px 8px rgba(108,46,184,0.10);">
          Reset Password
        </a>
      </div>
      <p style="color:#888;font-size:13px;">
        If you did not request this, please ignore this email.<br>
        {{.AppName}} Team
      </p>
    </div>
  </body>
</html>
`))

// RenderResetEmail renders the HTML reset message. Name and AppName are
// escaped; Link is emitted as an attribute URL.
func RenderResetEmail(data ResetEmail) (string, error) {
	var buf bytes.Buffer
	if err := resetEmailHTML.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render reset email: %w", err)
	}
	return buf.String(), nil
}

// ResetText is the plain-text reset message used for mobile channels.
func ResetText(data ResetEmail) string {
	return fmt.Sprintf("%s: reset your password at %s (expires in %s).", data.AppName, data.Link, data.ExpiresInText())
}
