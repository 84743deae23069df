package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// PushedEndpoint is the Pushed.co push API.
const PushedEndpoint = "https://api.pushed.co/1/push"

// PushedSender delivers app-wide push notifications through Pushed.co.
// Pushed messages have no title; the message body becomes the content and
// the title is only used when the body is empty.
type PushedSender struct {
	endpoint  string
	appKey    string
	appSecret string
	client    *http.Client
}

// NewPushedSender creates a PushedSender for the given app credentials.
func NewPushedSender(appKey, appSecret string) *PushedSender {
	return &PushedSender{
		endpoint:  PushedEndpoint,
		appKey:    appKey,
		appSecret: appSecret,
		client:    newHTTPClient(),
	}
}

// Send posts one push to every device subscribed to the app.
func (p *PushedSender) Send(ctx context.Context, title, message string) error {
	content := message
	if content == "" {
		content = title
	}
	form := url.Values{}
	form.Set("app_key", p.appKey)
	form.Set("app_secret", p.appSecret)
	form.Set("target_type", "app")
	form.Set("content", content)

	if err := postForm(ctx, p.client, p.endpoint, form); err != nil {
		return fmt.Errorf("pushed: %w", err)
	}
	return nil
}

// Name returns the sender identifier.
func (p *PushedSender) Name() string { return "pushed" }
