package pgentity

import (
	"context"

	"github.com/google/uuid"
)

// AuditAction represents the type of operation being audited.
type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
)

// AuditEntry contains metadata about a database operation for audit logging.
type AuditEntry struct {
	Action   AuditAction
	Table    string
	EntityID uuid.UUID // uuid.Nil when an insert failed
	ActorID  uuid.UUID // the acting user passed to Save/Insert/Update
	Entity   any       // the entity pointer
	Query    string    // the SQL statement executed
	Err      error     // non-nil if the operation failed
}

// AuditHook is a global hook interface for audit logging.
// Implement this and register via WithAuditHook option to receive
// a notification after every insert and update reaches the database.
type AuditHook interface {
	// OnAudit is called after each auditable operation completes.
	// Implementations should be non-blocking and safe for concurrent use.
	OnAudit(ctx context.Context, entry AuditEntry)
}

// AuditHookFunc is a convenience adapter to use ordinary functions as AuditHook.
type AuditHookFunc func(ctx context.Context, entry AuditEntry)

func (f AuditHookFunc) OnAudit(ctx context.Context, entry AuditEntry) { f(ctx, entry) }

func (db *DB) audit(ctx context.Context, entry AuditEntry) {
	if db.opts.auditHook != nil {
		db.opts.auditHook.OnAudit(ctx, entry)
	}
}
