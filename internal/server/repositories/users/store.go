package users

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/datastore"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

const table = "users"

var userColumns = []string{"id", "first_name", "last_name", "email", "username", "password", "created_at"}

type StoreRepository struct {
	store *datastore.Store
}

func NewStoreRepository(store *datastore.Store) *StoreRepository {
	return &StoreRepository{store: store}
}

func (r *StoreRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.store.Exists(ctx, table, "email", email)
}

func (r *StoreRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.store.Exists(ctx, table, "username", username)
}

// Create inserts user and fills in its ID. A duplicate email or username
// surfaces as *datastore.ConflictError.
func (r *StoreRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	id, err := r.store.Insert(ctx, table, datastore.Fields{
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"email":      user.Email,
		"username":   user.UserName,
		"password":   user.PasswordHash,
	})
	if err != nil {
		return nil, err
	}

	user.ID = id
	return user, nil
}

func (r *StoreRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	rows, err := r.store.Select(ctx, table, userColumns, "username = ?", username)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, common.ErrorNotFound
	}
	return userFromRow(rows[0])
}

func (r *StoreRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	n, err := r.store.Update(ctx, table, datastore.Fields{"password": hash}, "id = ?", id)
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *StoreRepository) DeleteByUsername(ctx context.Context, username string) error {
	n, err := r.store.Delete(ctx, table, "username = ?", username)
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func userFromRow(row datastore.Row) (*models.User, error) {
	id, err := row.Int64("id")
	if err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	created, err := row.Time("created_at")
	if err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}

	return &models.User{
		ID:           id,
		FirstName:    row.Text("first_name"),
		LastName:     row.Text("last_name"),
		Email:        row.Text("email"),
		UserName:     row.Text("username"),
		PasswordHash: row.Text("password"),
		CreatedAt:    created,
	}, nil
}
