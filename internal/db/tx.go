package db

import (
	"context"
	"fmt"
)

// Savepoint runs fn inside a named savepoint on dbtx. When fn fails, every
// write it made is rolled back and the enclosing transaction stays usable.
func Savepoint(ctx context.Context, dbtx DBTX, name string, fn func(qry *Queries) error) error {
	_, err := dbtx.ExecContext(ctx, fmt.Sprintf("SAVEPOINT %s", name))
	if err != nil {
		return err
	}

	err = fn(New(dbtx))
	if err != nil {
		_, rollbackErr := dbtx.ExecContext(ctx, fmt.Sprintf("ROLLBACK TO %s", name))
		if rollbackErr != nil {
			return fmt.Errorf("rollback savepoint %s: %w (after %w)", name, rollbackErr, err)
		}
		_, releaseErr := dbtx.ExecContext(ctx, fmt.Sprintf("RELEASE %s", name))
		if releaseErr != nil {
			return fmt.Errorf("release savepoint %s: %w (after %w)", name, releaseErr, err)
		}
		return err
	}

	_, err = dbtx.ExecContext(ctx, fmt.Sprintf("RELEASE %s", name))
	return err
}
