package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

// NoTX marks the non-transactional path. Repositories must accept it and
// fall back to the shared pool.
var NoTX Tx

// TransactionManager executes a function within a database transaction,
// passing the transaction handle via `tx`. The concrete type of `tx` is
// infra-defined (pgx.Tx for Postgres); use cases only forward it to
// repositories called inside the closure.
//
// Keep this interface small and stable.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
