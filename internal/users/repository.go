package users

import (
	"context"

	"github.com/chatter/chatter-backend/internal/database"
	"github.com/chatter/chatter-backend/internal/models"
	"github.com/chatter/chatter-backend/pkg/logger"
)

// Collection is the MongoDB collection holding users.
const Collection = "users"

// Repository persists users through the generic document repository.
type Repository struct {
	*database.AbstractRepository[models.User, *models.User]
}

// NewRepository creates a users repository on top of the given store.
func NewRepository(store database.Store) *Repository {
	return &Repository{
		AbstractRepository: database.NewAbstractRepository[models.User](store, logger.New("UsersRepository")),
	}
}

// UniqueIndexer is implemented by stores that can enforce a unique field.
type UniqueIndexer interface {
	EnsureUniqueIndex(ctx context.Context, field string) error
}

// EnsureIndexes sets up the unique email constraint the service relies on.
func EnsureIndexes(ctx context.Context, store UniqueIndexer) error {
	return store.EnsureUniqueIndex(ctx, "email")
}
