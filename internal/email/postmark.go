package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

type Client struct {
	mu          sync.RWMutex
	serverToken string
	fromEmail   string
	baseURL     string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(serverToken, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     baseURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverToken != ""
}

// UpdateConfig swaps the Postmark credentials at runtime.
func (c *Client) UpdateConfig(serverToken, fromEmail, baseURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.serverToken = serverToken
	c.fromEmail = fromEmail
	c.baseURL = baseURL
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendResetCode emails a one-time password reset code. The code expires in
// 15 minutes.
func (c *Client) SendResetCode(toEmail, name, code string) error {
	subject := "Your Ekklesia password reset code"
	greeting := "Hello"
	if name != "" {
		greeting = fmt.Sprintf("Hello %s", name)
	}
	textBody := fmt.Sprintf("%s,\n\nYour password reset code is: %s\n\nThis code expires in 15 minutes. If you did not request a reset, you can ignore this email.", greeting, code)
	htmlBody := fmt.Sprintf(
		`<p>%s,</p><p>Your password reset code is: <strong>%s</strong></p><p>This code expires in 15 minutes. If you did not request a reset, you can ignore this email.</p>`,
		greeting, code,
	)
	return c.send(toEmail, subject, htmlBody, textBody)
}

// SendWelcome emails login instructions to a newly created account.
func (c *Client) SendWelcome(toEmail, name, churchName string) error {
	subject := fmt.Sprintf("Your Ekklesia account for %s", churchName)
	textBody := fmt.Sprintf("Hello %s,\n\nAn account has been created for you at %s. Sign in at %s with this email address and the password you were given.", name, churchName, c.appURL())
	htmlBody := fmt.Sprintf(
		`<p>Hello %s,</p><p>An account has been created for you at %s.</p><p>Sign in at <a href="%s">%s</a> with this email address and the password you were given.</p>`,
		name, churchName, c.appURL(), c.appURL(),
	)
	return c.send(toEmail, subject, htmlBody, textBody)
}

// SendLoginLink emails a magic sign-in link for the billing portal.
func (c *Client) SendLoginLink(toEmail, token string) error {
	link := fmt.Sprintf("%s/auth/verify?token=%s", c.appURL(), token)
	subject := "Sign in to Ekklesia"
	textBody := fmt.Sprintf("Hello,\n\nClick the link below to sign in to your Ekklesia account:\n\n%s\n\nIf you did not request this, you can ignore this email.", link)
	htmlBody := fmt.Sprintf(
		`<p>Hello,</p><p>Click the link below to sign in to your Ekklesia account:</p><p><a href="%s">Sign in to Ekklesia</a></p><p>If you did not request this, you can ignore this email.</p>`,
		link,
	)
	return c.send(toEmail, subject, htmlBody, textBody)
}

func (c *Client) appURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

func (c *Client) send(toEmail, subject, htmlBody, textBody string) error {
	c.mu.RLock()
	token := c.serverToken
	from := c.fromEmail
	httpClient := c.httpClient
	c.mu.RUnlock()

	if token == "" {
		return fmt.Errorf("email client not configured: missing server token")
	}

	payload := postmarkEmail{
		From:     from,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequest("POST", "https://api.postmarkapp.com/email", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", token)

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}
