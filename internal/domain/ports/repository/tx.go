package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

// NoTX marks the non-transactional path when calling repository methods.
var NoTX Tx

// TransactionManager executes a function inside a database transaction,
// passing the underlying handle through the repositories' `tx` argument.
//
// Keeping the handle opaque keeps use-case interfaces clean: repositories
// detect a real transaction implementation-side (and may then add
// SELECT ... FOR UPDATE or rely on tx-bound Exec/Query), and MUST gracefully
// accept nil/NoTX for the plain pooled path.
//
// The concrete handle type is infra-defined (pgx.Tx for Postgres).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
