package mongo

import (
	"context"
	"fmt"

	apperrors "hotelbook/pkg/errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// TransactionFunc runs inside a transaction. ctx carries the session when one
// is open; repositories must pass it through unchanged.
type TransactionFunc func(ctx context.Context) error

type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type mongoTransactionManager struct {
	client *mongo.Client
}

// NewTransactionManager returns a manager backed by a multi-document
// transaction. The deployment must be a replica set.
func NewTransactionManager(client *mongo.Client) TransactionManager {
	return &mongoTransactionManager{
		client: client,
	}
}

func (m *mongoTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		return nil, fn(sessCtx)
	})

	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

type sequentialManager struct{}

// NewSequentialManager runs fn directly with no session. Callers detect this
// with InTransaction and compensate partial writes themselves.
func NewSequentialManager() TransactionManager {
	return sequentialManager{}
}

func (sequentialManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	return fn(ctx)
}

// NewManager picks the transactional manager when enabled.
func NewManager(client *mongo.Client, useTransactions bool) TransactionManager {
	if useTransactions && client != nil {
		return NewTransactionManager(client)
	}
	return NewSequentialManager()
}

// InTransaction reports whether ctx carries an open session.
func InTransaction(ctx context.Context) bool {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return true
	}
	return mongo.SessionFromContext(ctx) != nil
}
