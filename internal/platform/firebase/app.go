// Package firebase initializes the Firebase Admin SDK clients the server uses.
package firebase

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Config holds Firebase configuration.
type Config struct {
	ProjectID                    string
	GoogleApplicationCredentials string // path to a service account JSON file, optional
	// Firestore opens a Firestore client. Only the Firestore profile store
	// needs one.
	Firestore bool
}

// Clients holds initialized Firebase clients. Firestore is nil unless
// Config.Firestore was set.
type Clients struct {
	Auth      *auth.Client
	Firestore *firestore.Client
}

// InitializeClients sets up the Firebase app and its clients.
func InitializeClients(ctx context.Context, cfg Config) (*Clients, error) {
	opts, err := clientOptions(cfg)
	if err != nil {
		return nil, err
	}

	fbApp, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}

	ac, err := fbApp.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth: %w", err)
	}
	clients := &Clients{Auth: ac}

	if cfg.Firestore {
		fc, err := fbApp.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("firestore: %w", err)
		}
		clients.Firestore = fc
	}
	return clients, nil
}

func clientOptions(cfg Config) ([]option.ClientOption, error) {
	if cfg.GoogleApplicationCredentials == "" {
		return nil, nil
	}
	creds, err := os.ReadFile(cfg.GoogleApplicationCredentials)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	return []option.ClientOption{option.WithCredentialsJSON(creds)}, nil
}

// Close closes the Firestore client if one was opened.
func (c *Clients) Close() error {
	if c.Firestore != nil {
		return c.Firestore.Close()
	}
	return nil
}
