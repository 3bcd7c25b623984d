// Server-side HTML template for alert emails.
package channel

import (
	"html/template"
	"strings"
	"time"

	"github.com/dze-shalom/AgriConnect-CMR-sub001/internal/alert"
)

// severityColor maps severity to the badge color used in the email header.
func severityColor(s alert.Severity) string {
	switch s {
	case alert.SeverityCritical:
		return "#D32F2F"
	case alert.SeverityWarning:
		return "#F57C00"
	case alert.SeverityInfo:
		return "#1976D2"
	default:
		return "#666"
	}
}

var emailTmpl = template.Must(template.New("alert_email").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>AgriConnect Alert</title>
</head>
<body style="margin: 0; padding: 0; font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; background-color: #f5f5f5;">
  <table width="100%" cellpadding="0" cellspacing="0" style="background-color: #f5f5f5; padding: 20px;">
    <tr>
      <td align="center">
        <table width="600" cellpadding="0" cellspacing="0" style="background-color: #ffffff; border-radius: 8px; overflow: hidden;">
          <tr>
            <td style="background: linear-gradient(135deg, #4CAF50 0%, #45a049 100%); padding: 30px; text-align: center;">
              <h1 style="margin: 0; color: #ffffff; font-size: 28px; font-weight: 600;">🌱 AgriConnect</h1>
              <p style="margin: 10px 0 0 0; color: #ffffff; font-size: 14px;">Farm Monitoring System</p>
            </td>
          </tr>
          <tr>
            <td style="padding: 30px 30px 20px 30px;">
              <div style="background-color: {{.Color}}; color: #ffffff; padding: 15px; border-radius: 6px; text-align: center;">
                <span style="font-size: 24px;">{{.Icon}}</span>
                <h2 style="margin: 10px 0 0 0; font-size: 18px; font-weight: 600; text-transform: uppercase;">{{.Severity}} Alert</h2>
              </div>
            </td>
          </tr>
          <tr>
            <td style="padding: 0 30px 20px 30px;">
              <div style="background-color: #f9f9f9; padding: 20px; border-left: 4px solid {{.Color}}; border-radius: 4px;">
                <h3 style="margin: 0 0 10px 0; color: #333; font-size: 16px;">{{.AlertType}}</h3>
                <p style="margin: 0; color: #666; font-size: 14px; line-height: 1.6;">{{.Message}}</p>
              </div>
            </td>
          </tr>
          {{if .Readings}}
          <tr>
            <td style="padding: 0 30px 20px 30px;">
              <h3 style="margin: 0 0 15px 0; color: #333; font-size: 16px;">Current Sensor Readings</h3>
              <table width="100%" cellpadding="10" style="border-collapse: collapse;">
                {{range .Readings}}
                <tr style="border-bottom: 1px solid #eee;">
                  <td style="color: #666; font-size: 14px;">{{.Emoji}} {{.Label}}</td>
                  <td style="color: #333; font-size: 14px; font-weight: 600; text-align: right;">{{.Value}}</td>
                </tr>
                {{end}}
              </table>
            </td>
          </tr>
          {{end}}
          <tr>
            <td style="padding: 0 30px 30px 30px; text-align: center;">
              <a href="https://agriconnect.app/dashboard"
                 style="display: inline-block; background-color: #4CAF50; color: #ffffff; text-decoration: none; padding: 12px 30px; border-radius: 6px; font-size: 14px; font-weight: 600;">View Dashboard</a>
            </td>
          </tr>
          <tr>
            <td style="background-color: #f9f9f9; padding: 20px 30px; border-top: 1px solid #eee;">
              <table width="100%" cellpadding="0" cellspacing="0">
                <tr>
                  <td style="color: #999; font-size: 12px;"><strong>Farm ID:</strong> {{.FarmID}}</td>
                  <td style="color: #999; font-size: 12px; text-align: right;">{{.SentAt}}</td>
                </tr>
              </table>
              <p style="margin: 15px 0 0 0; color: #999; font-size: 11px; text-align: center;">
                This is an automated alert from AgriConnect Farm Monitoring System.<br>
                To unsubscribe from alerts, please contact your farm administrator.
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>
`))

type emailTemplateData struct {
	Color     template.CSS
	Icon      string
	Severity  string
	AlertType string
	Message   string
	Readings  []alert.Reading
	FarmID    string
	SentAt    string
}

// RenderEmailHTML renders the alert email body. Deterministic for a fixed
// sentAt.
func RenderEmailHTML(a alert.Alert, farmID string, sentAt time.Time) (string, error) {
	var b strings.Builder
	err := emailTmpl.Execute(&b, emailTemplateData{
		Color:     template.CSS(severityColor(a.Severity)),
		Icon:      a.Severity.Emoji(),
		Severity:  string(a.Severity),
		AlertType: a.AlertType,
		Message:   a.Message,
		Readings:  a.Readings(),
		FarmID:    farmID,
		SentAt:    sentAt.Format("2006-01-02 15:04:05"),
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}
