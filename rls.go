package pgentity

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"
)

// ActorSetting is the transaction-local setting WithRLS fills from RLSContext.Actor,
// readable in policies and triggers as current_setting('pgentity.actor', true).
const ActorSetting = "pgentity.actor"

// RLSContext represents RLS session configuration to be applied within a transaction.
type RLSContext struct {
	Role        string            // role to SET LOCAL ROLE to (empty means no role change)
	Actor       uuid.UUID         // exported as ActorSetting when not uuid.Nil
	SessionVars map[string]string // settings such as "app.tenant" -> "acme"
}

// WithRLS runs fn in a transaction after applying rls. Role and settings are
// transaction-local, so they vanish on commit or rollback.
func (db *DB) WithRLS(ctx context.Context, rls RLSContext, fn func(tx Transaction) error) error {
	return db.Tx().WithTransaction(ctx, func(tx Transaction) error {
		exec := tx.Exec()
		if rls.Role != "" {
			if _, err := exec.Exec(ctx, "SET LOCAL ROLE "+quoteSessionValue(rls.Role)); err != nil {
				return &ORMError{Code: ErrCodeTransaction, Message: fmt.Sprintf("set role in tx: %s", err.Error()), Internal: err}
			}
		}
		vars := maps.Clone(rls.SessionVars)
		if rls.Actor != uuid.Nil {
			if vars == nil {
				vars = map[string]string{}
			}
			vars[ActorSetting] = rls.Actor.String()
		}
		for _, key := range slices.Sorted(maps.Keys(vars)) {
			if _, err := exec.Exec(ctx, "SELECT set_config($1, $2, true)", key, vars[key]); err != nil {
				return &ORMError{Code: ErrCodeTransaction, Message: fmt.Sprintf("set session var %s in tx: %s", key, err.Error()), Internal: err}
			}
		}
		return fn(tx)
	})
}

// quoteSessionValue safely quotes a value for SET commands
func quoteSessionValue(value string) string {
	return "'" + escapeSQLString(value) + "'"
}
