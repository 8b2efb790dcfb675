// README: Firebase Cloud Messaging pusher.
package notify

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
)

// FCMPusher sends data messages through Firebase Cloud Messaging.
type FCMPusher struct {
	client *messaging.Client
}

func NewFCMPusher(client *messaging.Client) *FCMPusher {
	return &FCMPusher{client: client}
}

func (p *FCMPusher) Send(ctx context.Context, token string, msg Message) error {
	if token == "" {
		return fmt.Errorf("empty device token")
	}
	_, err := p.client.Send(ctx, &messaging.Message{
		Token: token,
		Data:  msg.Data,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	})
	if err != nil {
		return fmt.Errorf("sending FCM message: %w", err)
	}
	return nil
}
