package pgentity

import "context"

// Lifecycle hooks. An entity implements any subset; a missing hook is a no-op.
// A failing Before* hook aborts the operation before any statement is sent and
// leaves the envelope untouched. A failing After* hook is returned after the
// envelope already reflects the database row.

// BeforeSave can be implemented by an entity to run logic before Save dispatches
type BeforeSave interface {
	BeforeSave(ctx context.Context) error
}

// AfterSave can be implemented by an entity to run logic after a successful Save
type AfterSave interface {
	AfterSave(ctx context.Context) error
}

// BeforeInsert can be implemented by an entity to run logic before insert
type BeforeInsert interface {
	BeforeInsert(ctx context.Context) error
}

// AfterInsert can be implemented by an entity to run logic after insert
type AfterInsert interface {
	AfterInsert(ctx context.Context) error
}

// BeforeUpdate can be implemented by an entity to run logic before update
type BeforeUpdate interface {
	BeforeUpdate(ctx context.Context) error
}

// AfterUpdate can be implemented by an entity to run logic after update
type AfterUpdate interface {
	AfterUpdate(ctx context.Context) error
}
