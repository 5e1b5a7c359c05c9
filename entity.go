package pgentity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entity is implemented by every audited record. Embedding Envelope provides
// Audit; the entity supplies its table and domain columns through the two
// statement builders, and the audit columns are added on top.
type Entity interface {
	Audit() *Envelope
	InsertStatement() (*InsertStatement, error)
	UpdateStatement() (*UpdateStatement, error)
}

// Save inserts e when its envelope has no id and updates it otherwise.
// A nil exec runs on the DB's default executor.
func (db *DB) Save(ctx context.Context, e Entity, user uuid.UUID, exec Executor) error {
	if h, ok := e.(BeforeSave); ok {
		if err := h.BeforeSave(ctx); err != nil {
			return err
		}
	}
	var err error
	if _, ok := e.Audit().ID(); ok {
		err = db.Update(ctx, e, user, exec)
	} else {
		err = db.Insert(ctx, e, user, exec)
	}
	if err != nil {
		return err
	}
	if h, ok := e.(AfterSave); ok {
		return h.AfterSave(ctx)
	}
	return nil
}

// QuickSave is Save on the DB's default executor.
func (db *DB) QuickSave(ctx context.Context, e Entity, user uuid.UUID) error {
	return db.Save(ctx, e, user, db.exec)
}

// Insert writes e as a new row and copies the id, creator, creation time and
// active flag the database returns onto its envelope.
func (db *DB) Insert(ctx context.Context, e Entity, user uuid.UUID, exec Executor) error {
	if h, ok := e.(BeforeInsert); ok {
		if err := h.BeforeInsert(ctx); err != nil {
			return err
		}
	}
	stmt, err := db.AuditedInsert(e, user)
	if err != nil {
		return err
	}
	exec, err = db.executor(exec)
	if err != nil {
		return err
	}

	var (
		id          uuid.UUID
		createdBy   uuid.UUID
		createdTime time.Time
		active      bool
	)
	query, err := db.fetchOne(ctx, exec, stmt, &id, &createdBy, &createdTime, &active)
	db.audit(ctx, AuditEntry{Action: AuditActionCreate, Table: stmt.Table(), EntityID: id, ActorID: user, Entity: e, Query: query, Err: err})
	if err != nil {
		return err
	}

	env := e.Audit()
	env.SetID(id)
	env.SetCreatedBy(createdBy)
	env.SetCreatedTime(createdTime)
	env.SetActive(active)
	if db.opts.logMode >= LogInfo {
		db.logger.Info("entity inserted", Field{Key: "table", Value: stmt.Table()}, Field{Key: "id", Value: id})
	}

	if h, ok := e.(AfterInsert); ok {
		return h.AfterInsert(ctx)
	}
	return nil
}

// Update writes e's domain columns to the row matching its id and copies the
// returned last_updated_* values onto its envelope. An entity without an id
// fails with ErrMissingID before any hook runs.
func (db *DB) Update(ctx context.Context, e Entity, user uuid.UUID, exec Executor) error {
	id, ok := e.Audit().ID()
	if !ok {
		return missingID()
	}
	if h, ok := e.(BeforeUpdate); ok {
		if err := h.BeforeUpdate(ctx); err != nil {
			return err
		}
	}
	stmt, err := db.AuditedUpdate(e, user)
	if err != nil {
		return err
	}
	exec, err = db.executor(exec)
	if err != nil {
		return err
	}

	var (
		updatedBy   uuid.UUID
		updatedTime time.Time
	)
	query, err := db.fetchOne(ctx, exec, stmt, &updatedBy, &updatedTime)
	db.audit(ctx, AuditEntry{Action: AuditActionUpdate, Table: stmt.Table(), EntityID: id, ActorID: user, Entity: e, Query: query, Err: err})
	if err != nil {
		return err
	}

	env := e.Audit()
	env.SetLastUpdatedBy(updatedBy)
	env.SetLastUpdatedTime(updatedTime)
	if db.opts.logMode >= LogInfo {
		db.logger.Info("entity updated", Field{Key: "table", Value: stmt.Table()}, Field{Key: "id", Value: id})
	}

	if h, ok := e.(AfterUpdate); ok {
		return h.AfterUpdate(ctx)
	}
	return nil
}

// AuditedInsert returns e's insert statement with created_time = DEFAULT,
// created_by = user and RETURNING id, created_by, created_time, active.
func (db *DB) AuditedInsert(e Entity, user uuid.UUID) (*InsertStatement, error) {
	stmt, err := e.InsertStatement()
	if err != nil {
		return nil, err
	}
	if stmt == nil {
		return nil, validationError("entity returned a nil insert statement")
	}
	return stmt.
		Value(ColumnCreatedTime, Default).
		Value(ColumnCreatedBy, user).
		Returning(ColumnID, ColumnCreatedBy, ColumnCreatedTime, ColumnActive), nil
}

// AuditedUpdate returns e's update statement with last_updated_time set from the
// DB clock, last_updated_by = user, scoped to e's id and returning both columns.
func (db *DB) AuditedUpdate(e Entity, user uuid.UUID) (*UpdateStatement, error) {
	id, ok := e.Audit().ID()
	if !ok {
		return nil, missingID()
	}
	stmt, err := e.UpdateStatement()
	if err != nil {
		return nil, err
	}
	if stmt == nil {
		return nil, validationError("entity returned a nil update statement")
	}
	return stmt.
		Set(ColumnLastUpdatedTime, db.now()).
		Set(ColumnLastUpdatedBy, user).
		Where(ColumnID+" = ?", id).
		Returning(ColumnLastUpdatedBy, ColumnLastUpdatedTime), nil
}

func (db *DB) executor(exec Executor) (Executor, error) {
	if exec != nil {
		return exec, nil
	}
	if db.exec != nil {
		return db.exec, nil
	}
	return nil, &ORMError{Code: ErrCodeConnection, Message: "no executor: pass one or build the DB with a pool"}
}

func missingID() error {
	return &ORMError{Code: ErrCodeMissingID, Message: ErrMissingID.Error(), Internal: ErrMissingID}
}
