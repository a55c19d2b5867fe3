package repository

import "context"

// ViewCache is the read-model cache the read repositories consult before the
// store. shared/redis.ViewCache satisfies it; a nil ViewCache disables caching.
type ViewCache[T any] interface {
	Get(ctx context.Context, id string) (*T, bool)
	Set(ctx context.Context, id string, value *T)
	Delete(ctx context.Context, id string)
}

// Collection names.
const (
	UsersCollection        = "users"
	TransactionsCollection = "transactions"
)

// Key prefixes for the Redis read models.
const (
	TransactionViewKeyPrefix = "transaction:view:"
	UserViewKeyPrefix        = "user:view:"
)
