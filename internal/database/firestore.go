package database

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/radiusdt/agency-portal/internal/config"
)

// FirestoreDB wraps the Firestore client of the agency's Firebase project.
type FirestoreDB struct {
	Client *firestore.Client
	logger *zap.Logger
}

// NewFirestoreDB initialises a Firebase app and opens its Firestore client.
// Inline credentials take precedence over a credentials file; with neither,
// application default credentials are used.
func NewFirestoreDB(ctx context.Context, cfg config.FirestoreConfig, logger *zap.Logger) (*FirestoreDB, error) {
	var opts []option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	var fbCfg *firebase.Config
	if cfg.ProjectID != "" {
		fbCfg = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open firestore client: %w", err)
	}

	logger.Info("connected to Firestore", zap.String("project_id", cfg.ProjectID))

	return &FirestoreDB{
		Client: client,
		logger: logger,
	}, nil
}

// Close closes the Firestore client.
func (db *FirestoreDB) Close() error {
	if db.Client != nil {
		db.logger.Info("Firestore client closed")
		return db.Client.Close()
	}
	return nil
}
