// Package creds resolves Kaggle API credentials for a user.
package creds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/raphaelgruber/kagglementor/internal/models"
)

// SystemUser is the sentinel identifier that always bypasses the per-user
// store and resolves from the environment only.
const SystemUser = "system"

// ErrNotFound is returned when no credential pair could be resolved for a
// user from either the environment or the store.
var ErrNotFound = errors.New("kaggle credentials not found")

// UserStore is the subset of the database the resolver needs.
type UserStore interface {
	QueryGetUser(ctx context.Context, uid string) (*models.User, error)
}

// Resolver resolves credentials with an explicit precedence chain:
// environment, then datastore, then absent. The environment pair is a
// deliberate global override for single-operator deployments, not a
// security boundary; when set, it wins even over a supplied user id.
type Resolver struct {
	store  UserStore
	getenv func(string) string
}

// NewResolver creates a resolver backed by the given user store.
func NewResolver(store UserStore) *Resolver {
	return &Resolver{store: store, getenv: os.Getenv}
}

// NewResolverWithEnv creates a resolver with a custom environment lookup
// (for testing).
func NewResolverWithEnv(store UserStore, getenv func(string) string) *Resolver {
	return &Resolver{store: store, getenv: getenv}
}

// Resolve returns the credential pair for uid, or ErrNotFound. Read-only.
func (r *Resolver) Resolve(ctx context.Context, uid string) (models.Credentials, error) {
	envCreds := models.Credentials{
		Username: r.getenv("KAGGLE_USERNAME"),
		Key:      r.getenv("KAGGLE_KEY"),
	}
	if envCreds.Valid() {
		slog.Debug("using kaggle credentials from environment")
		return envCreds, nil
	}

	if uid == "" || uid == SystemUser || r.store == nil {
		return models.Credentials{}, ErrNotFound
	}

	user, err := r.store.QueryGetUser(ctx, uid)
	if err != nil {
		return models.Credentials{}, fmt.Errorf("look up user credentials: %w", err)
	}
	if user == nil {
		return models.Credentials{}, ErrNotFound
	}

	stored := user.Credentials()
	if !stored.Valid() {
		return models.Credentials{}, ErrNotFound
	}
	return stored, nil
}
