package firebase

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"taskboard/utilities"
)

// InitializeFirebase builds the Firebase app for projectID. credentialsPath
// may be empty when running against the emulator or with ambient credentials.
func InitializeFirebase(ctx context.Context, projectID, credentialsPath string) (*firebase.App, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	} else if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		utilities.LogWarn("FIREBASE_CREDENTIALS_PATH not set, using application default credentials")
	}

	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase: %w", err)
	}

	utilities.LogInfo("Firebase initialized")
	return app, nil
}

// GetFirestoreClient initializes the app and returns its Firestore client.
func GetFirestoreClient(ctx context.Context, projectID, credentialsPath string) (*firestore.Client, error) {
	app, err := InitializeFirebase(ctx, projectID, credentialsPath)
	if err != nil {
		return nil, err
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("get firestore client: %w", err)
	}
	return client, nil
}
