// Package users persists user accounts through the generic datastore and
// answers the uniqueness questions asked by signup and the availability probe.
package users

import (
	"context"

	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

type Repository interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	DeleteByUsername(ctx context.Context, username string) error
}
