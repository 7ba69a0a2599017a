package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// PushSender is the provider contract the dispatcher sends through: one
// message, one device token. *FCMClient is the production implementation;
// tests substitute a mock to exercise the dispatch loop without Firebase.
type PushSender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) (string, error)
}

// FCMClient wraps the Firebase Cloud Messaging client.
//
// The mobile app registers with FCM, obtains a device token, and posts it to
// this backend (stored in the devices table). Sending a message addressed to
// that token lets FCM deliver the notification even when the app is closed.
//
// The credentials (project ID, client email, private key) come from Firebase
// Console: Project Settings -> Service Accounts -> Generate New Private Key.
type FCMClient struct {
	client *messaging.Client
}

// NewFCMClient creates a new FCM client from environment credentials.
//
// The private key in .env has literal "\n" sequences, so they are replaced
// with actual newlines before handing the PEM to the Firebase SDK.
func NewFCMClient(ctx context.Context, projectID, clientEmail, privateKey string) (*FCMClient, error) {
	privateKey = strings.ReplaceAll(privateKey, "\\n", "\n")

	// Build the credentials JSON the Firebase SDK expects, equivalent to the
	// service-account file downloaded from Firebase Console.
	credsJSON := fmt.Sprintf(`{
		"type": "service_account",
		"project_id": %q,
		"private_key": %q,
		"client_email": %q,
		"token_uri": "https://oauth2.googleapis.com/token"
	}`, projectID, privateKey, clientEmail)

	opt := option.WithCredentialsJSON([]byte(credsJSON))
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("get messaging client: %w", err)
	}

	log.Printf("[FCM] Initialized for project: %s", projectID)
	return &FCMClient{client: client}, nil
}

// Send delivers a single-recipient message and returns the FCM message ID.
// Any provider-side failure (invalid token, unregistered, quota, network)
// comes back as an error; the caller decides whether it is fatal.
func (c *FCMClient) Send(ctx context.Context, token, title, body string, data map[string]string) (string, error) {
	message := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	id, err := c.client.Send(ctx, message)
	if err != nil {
		return "", fmt.Errorf("fcm send: %w", err)
	}
	return id, nil
}
