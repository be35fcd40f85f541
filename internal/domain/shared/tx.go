package shared

import "context"

// TransactionManager runs a function inside one storage transaction. Commands
// that touch more than one aggregate (wallet plus history, connection plus
// wallet) go through it so a failure rolls every write back together.
type TransactionManager interface {
	// WithinTx runs fn in a transaction. The context passed to fn carries
	// the transaction; repositories resolve it transparently. Nested calls
	// join the outer transaction.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
