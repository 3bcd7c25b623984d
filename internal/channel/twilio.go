// Twilio REST client shared by the SMS and WhatsApp senders.
//
// DESIGN: One form-encoded POST to /2010-04-01/Accounts/{sid}/Messages.json
// with HTTP Basic auth. The response is parsed tolerantly with gjson - Twilio
// error bodies carry the human-readable text in "message".
package channel

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const twilioDefaultBaseURL = "https://api.twilio.com"

// TwilioMessage is the outcome of one Messages.json call.
type TwilioMessage struct {
	SID    string
	Status string
}

// Sent reports whether Twilio accepted the message. Anything else the API
// returned with a 2xx (e.g. "accepted") is treated as pending.
func (m TwilioMessage) Sent() bool {
	return m.Status == "queued" || m.Status == "sent"
}

// TwilioClient calls the Twilio Messages REST API.
type TwilioClient struct {
	accountSID string
	authToken  string
	baseURL    string
	httpClient *http.Client
}

// NewTwilioClient creates a client for the given account. baseURL overrides
// the production endpoint for tests; pass "" for the default.
func NewTwilioClient(accountSID, authToken, baseURL string, timeout time.Duration) *TwilioClient {
	if baseURL == "" {
		baseURL = twilioDefaultBaseURL
	}
	if timeout == 0 {
		timeout = DefaultSendTimeout
	}
	return &TwilioClient{
		accountSID: accountSID,
		authToken:  authToken,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CreateMessage performs one message send. No retry on failure: the outcome,
// including the provider error body, is the caller's to record.
func (c *TwilioClient) CreateMessage(ctx context.Context, to, from, body string) (TwilioMessage, error) {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", from)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return TwilioMessage{}, &TransportError{Provider: "Twilio", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return TwilioMessage{}, &TransportError{Provider: "Twilio", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return TwilioMessage{}, &TransportError{Provider: "Twilio", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(respBody, "message").String()
		if msg == "" {
			msg = "Unknown error"
		}
		return TwilioMessage{}, &ProviderError{Provider: "Twilio", StatusCode: resp.StatusCode, Message: msg}
	}

	return TwilioMessage{
		SID:    gjson.GetBytes(respBody, "sid").String(),
		Status: gjson.GetBytes(respBody, "status").String(),
	}, nil
}
