// Package whatsapp sends text messages through the WhatsApp Cloud API.
package whatsapp

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultBaseURL = "https://graph.facebook.com/v19.0"

// Client is a WhatsApp Cloud API client. A zero access token leaves the
// client unconfigured; sends then fail with an explicit error.
type Client struct {
	httpClient    *resty.Client
	accessToken   string
	phoneNumberID string
	logger        *slog.Logger
}

type Option func(*Client)

// WithBaseURL overrides the Graph API base URL. Used by tests.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.httpClient.SetBaseURL(url)
	}
}

func NewClient(accessToken, phoneNumberID string, logger *slog.Logger, opts ...Option) *Client {
	httpClient := resty.New().
		SetBaseURL(defaultBaseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	c := &Client{
		httpClient:    httpClient,
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether credentials are present.
func (c *Client) Configured() bool {
	return c.accessToken != "" && c.phoneNumberID != ""
}

type textMessage struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

type apiResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendText delivers a plain text message to the given phone number in
// international format without the leading plus.
func (c *Client) SendText(to, body string) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("whatsapp client not configured")
	}

	msg := textMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
	}
	msg.Text.Body = body

	var response apiResponse
	resp, err := c.httpClient.R().
		SetAuthToken(c.accessToken).
		SetBody(msg).
		SetResult(&response).
		SetError(&response).
		Post(fmt.Sprintf("/%s/messages", c.phoneNumberID))
	if err != nil {
		c.logger.Error("whatsapp API call failed", "error", err)
		return "", fmt.Errorf("call whatsapp API: %w", err)
	}

	if resp.IsError() || response.Error != nil {
		msg := "unknown error"
		if response.Error != nil {
			msg = response.Error.Message
		}
		c.logger.Error("whatsapp API returned error", "status", resp.StatusCode(), "message", msg)
		return "", fmt.Errorf("whatsapp API error: %s (status %d)", msg, resp.StatusCode())
	}

	if len(response.Messages) == 0 {
		return "", fmt.Errorf("whatsapp API returned no message id")
	}

	c.logger.Info("whatsapp message sent", "to", to, "message_id", response.Messages[0].ID)
	return response.Messages[0].ID, nil
}
