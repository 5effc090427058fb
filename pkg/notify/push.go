package notify

import (
	"context"
	"fmt"
	"log"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/matst80/slask-docs/pkg/request"
)

// PushNotifier sends a push notification to a configured device when a new
// access request record is created. Increments of existing records are not
// pushed. It implements request.EventSink.
type PushNotifier struct {
	// Token is the FCM registration token of the receiving device.
	Token string
}

func (p *PushNotifier) RequestRecorded(ev request.RequestEvent) {
	if !ev.Created || p.Token == "" {
		return
	}
	notification := &messaging.Notification{
		Title: "New access request",
		Body:  fmt.Sprintf("%s requested access to document %s", ev.Requester, ev.DocumentId),
	}
	data := map[string]string{
		"documentId": ev.DocumentId,
		"requester":  ev.Requester,
		"type":       "access-request",
	}
	if err := sendFirebaseNotification(p.Token, notification, data); err != nil {
		log.Printf("push notification failed: %v", err)
	}
}

// sendFirebaseNotification sends a notification using the Firebase Admin SDK.
// GOOGLE_APPLICATION_CREDENTIALS should be set in the environment, or the
// credentials file path is picked up from it explicitly.
func sendFirebaseNotification(registrationToken string, notification *messaging.Notification, data map[string]string) error {
	var app *firebase.App
	var err error

	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" {
		opt := option.WithCredentialsFile(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
		app, err = firebase.NewApp(context.Background(), nil, opt)
	} else {
		app, err = firebase.NewApp(context.Background(), nil)
	}
	if err != nil {
		return err
	}

	ctx := context.Background()
	client, err := app.Messaging(ctx)
	if err != nil {
		return err
	}

	message := &messaging.Message{
		Notification: notification,
		Data:         data,
		Token:        registrationToken,
	}

	response, err := client.Send(ctx, message)
	if err != nil {
		return err
	}
	log.Printf("Successfully sent message: %s", response)
	return nil
}
