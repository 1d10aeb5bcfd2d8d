package notify

import (
	"context"
	"fmt"

	slacklib "github.com/slack-go/slack"
)

// PostWebhookFunc matches slack.PostWebhookContext.
type PostWebhookFunc func(ctx context.Context, url string, msg *slacklib.WebhookMessage) error

// SlackWebhook posts messages to a Slack incoming webhook.
type SlackWebhook struct {
	url  string
	post PostWebhookFunc
}

// NewSlackWebhook creates a channel for the webhook at url. A nil post uses
// slack.PostWebhookContext.
func NewSlackWebhook(url string, post PostWebhookFunc) *SlackWebhook {
	if post == nil {
		post = slacklib.PostWebhookContext
	}
	return &SlackWebhook{url: url, post: post}
}

func (s *SlackWebhook) Name() string { return "slack" }

func (s *SlackWebhook) Send(ctx context.Context, text string) error {
	msg := &slacklib.WebhookMessage{
		Text: text,
		Attachments: []slacklib.Attachment{{
			Color:    "danger",
			Fallback: text,
			Text:     text,
		}},
	}
	if err := s.post(ctx, s.url, msg); err != nil {
		return fmt.Errorf("notify.SlackWebhook.Send: %w", err)
	}
	return nil
}
