package adsync

import (
	"context"
	"fmt"
	"strings"

	"github.com/radiusdt/agency-portal/internal/apperr"
	"github.com/radiusdt/agency-portal/internal/models"
	"github.com/radiusdt/agency-portal/internal/storage"
)

const accountPrefix = "act_"

// NormalizeAccountID trims id and prefixes it with act_ when missing.
func NormalizeAccountID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || strings.HasPrefix(id, accountPrefix) {
		return id
	}
	return accountPrefix + id
}

// Resolver maps a client to the ad account used by every upstream call.
type Resolver struct {
	clients storage.ClientRepo
}

func NewResolver(clients storage.ClientRepo) *Resolver {
	return &Resolver{clients: clients}
}

// Resolve returns the client and its normalized account reference.
func (r *Resolver) Resolve(ctx context.Context, clientID string) (*models.ClientAccount, string, error) {
	client, err := r.clients.GetClient(ctx, clientID)
	if err != nil {
		return nil, "", fmt.Errorf("load client %s: %w", clientID, err)
	}
	if client == nil {
		return nil, "", fmt.Errorf("client %s: %w", clientID, apperr.ErrNotFound)
	}
	account := NormalizeAccountID(client.AdAccountID)
	if account == "" {
		return client, "", fmt.Errorf("client %s: %w", clientID, apperr.ErrMissingAccountID)
	}
	return client, account, nil
}
