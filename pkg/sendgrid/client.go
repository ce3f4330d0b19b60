// Package sendgrid is a minimal client for the SendGrid v3 mail send API.
package sendgrid

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/mentionscope/scanner/internal/resilience"
)

const defaultBaseURL = "https://api.sendgrid.com"

// Client sends transactional email through SendGrid.
type Client interface {
	Send(ctx context.Context, mail Mail) (*SendResult, error)
}

// Address is an email address with an optional display name.
type Address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Mail is one outbound message. Text and HTML bodies are both optional but
// at least one must be set.
type Mail struct {
	From    Address
	To      []Address
	Subject string
	Text    string
	HTML    string
}

// SendResult reports the accepted send.
type SendResult struct {
	StatusCode int
	MessageID  string
}

// --- v3 mail send wire types ---

type mailSendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             Address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []mailContent     `json:"content"`
}

type personalization struct {
	To []Address `json:"to"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type errorResponse struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithFrom sets the default sender used when Mail.From is empty.
func WithFrom(email, name string) Option {
	return func(c *httpClient) {
		c.from = Address{Email: email, Name: name}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRetryConfig overrides the retry behavior for transient failures.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	from    Address
	http    *http.Client
	retry   resilience.RetryConfig
}

// NewClient creates a SendGrid API client. Rate-limit and server errors are
// retried with backoff.
func NewClient(apiKey string, opts ...Option) Client {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("sendgrid", "mail_send")
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		retry:   retry,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Send(ctx context.Context, mail Mail) (*SendResult, error) {
	if mail.From.Email == "" {
		mail.From = c.from
	}
	if mail.From.Email == "" {
		return nil, eris.New("sendgrid: from address required")
	}
	if len(mail.To) == 0 {
		return nil, eris.New("sendgrid: at least one recipient required")
	}

	var contents []mailContent
	if mail.Text != "" {
		contents = append(contents, mailContent{Type: "text/plain", Value: mail.Text})
	}
	if mail.HTML != "" {
		contents = append(contents, mailContent{Type: "text/html", Value: mail.HTML})
	}
	if len(contents) == 0 {
		return nil, eris.New("sendgrid: text or html body required")
	}

	body, err := json.Marshal(mailSendRequest{
		Personalizations: []personalization{{To: mail.To}},
		From:             mail.From,
		Subject:          mail.Subject,
		Content:          contents,
	})
	if err != nil {
		return nil, eris.Wrap(err, "sendgrid: marshal request")
	}

	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*SendResult, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v3/mail/send", bytes.NewReader(body))
		if err != nil {
			return nil, eris.Wrap(err, "sendgrid: create request")
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.http.Do(httpReq)
		if err != nil {
			return nil, eris.Wrap(err, "sendgrid: send request")
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "sendgrid: read response")
		}

		// Mail send returns 202 with an empty body on success.
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			var er errorResponse
			err := eris.Errorf("sendgrid: unexpected status %d: %s", resp.StatusCode, string(raw))
			if json.Unmarshal(raw, &er) == nil && len(er.Errors) > 0 {
				err = eris.Errorf("sendgrid: status %d: %s", resp.StatusCode, er.Errors[0].Message)
			}
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(err, resp.StatusCode)
			}
			return nil, err
		}

		return &SendResult{
			StatusCode: resp.StatusCode,
			MessageID:  resp.Header.Get("X-Message-Id"),
		}, nil
	})
}
