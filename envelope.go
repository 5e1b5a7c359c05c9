package pgentity

import (
	"time"

	"github.com/google/uuid"
)

// Envelope column names. Every audited table carries these.
const (
	ColumnID              = "id"
	ColumnCreatedTime     = "created_time"
	ColumnCreatedBy       = "created_by"
	ColumnLastUpdatedTime = "last_updated_time"
	ColumnLastUpdatedBy   = "last_updated_by"
	ColumnActive          = "active"
)

// AuditColumns lists the envelope columns in the order EnvelopeData.ScanTargets expects.
var AuditColumns = []string{
	ColumnID,
	ColumnCreatedTime,
	ColumnCreatedBy,
	ColumnLastUpdatedTime,
	ColumnLastUpdatedBy,
	ColumnActive,
}

// EnvelopeData is the raw, nullable form of an envelope as read from a row.
type EnvelopeData struct {
	ID              *uuid.UUID
	CreatedTime     *time.Time
	CreatedBy       *uuid.UUID
	LastUpdatedTime *time.Time
	LastUpdatedBy   *uuid.UUID
	Active          *bool
}

// ScanTargets returns pointers matching AuditColumns.
func (d *EnvelopeData) ScanTargets() []any {
	return []any{&d.ID, &d.CreatedTime, &d.CreatedBy, &d.LastUpdatedTime, &d.LastUpdatedBy, &d.Active}
}

// Envelope holds the audit fields of a persisted record. Identity and creation
// fields are write-once; update fields and the active flag always take the
// latest value. An Envelope is not safe for concurrent use.
type Envelope struct {
	id              *uuid.UUID
	createdTime     *time.Time
	createdBy       *uuid.UUID
	lastUpdatedTime *time.Time
	lastUpdatedBy   *uuid.UUID
	active          *bool
}

// Audit returns the envelope itself, so any struct embedding Envelope gets the
// accessor Entity requires.
func (e *Envelope) Audit() *Envelope { return e }

// NewEnvelope returns an envelope with every field empty.
func NewEnvelope() Envelope { return Envelope{} }

// EnvelopeFromData hydrates an envelope from a previously stored row.
func EnvelopeFromData(d EnvelopeData) Envelope {
	return Envelope{
		id:              cloneUUID(d.ID),
		createdTime:     cloneTime(d.CreatedTime),
		createdBy:       cloneUUID(d.CreatedBy),
		lastUpdatedTime: cloneTime(d.LastUpdatedTime),
		lastUpdatedBy:   cloneUUID(d.LastUpdatedBy),
		active:          cloneBool(d.Active),
	}
}

// Data returns a copy of the current state.
func (e *Envelope) Data() EnvelopeData {
	return EnvelopeData{
		ID:              cloneUUID(e.id),
		CreatedTime:     cloneTime(e.createdTime),
		CreatedBy:       cloneUUID(e.createdBy),
		LastUpdatedTime: cloneTime(e.lastUpdatedTime),
		LastUpdatedBy:   cloneUUID(e.lastUpdatedBy),
		Active:          cloneBool(e.active),
	}
}

func (e *Envelope) ID() (uuid.UUID, bool)              { return derefUUID(e.id) }
func (e *Envelope) CreatedTime() (time.Time, bool)     { return derefTime(e.createdTime) }
func (e *Envelope) CreatedBy() (uuid.UUID, bool)       { return derefUUID(e.createdBy) }
func (e *Envelope) LastUpdatedTime() (time.Time, bool) { return derefTime(e.lastUpdatedTime) }
func (e *Envelope) LastUpdatedBy() (uuid.UUID, bool)   { return derefUUID(e.lastUpdatedBy) }

func (e *Envelope) Active() (bool, bool) {
	if e.active == nil {
		return false, false
	}
	return *e.active, true
}

// SetID is a no-op once an id is present.
func (e *Envelope) SetID(id uuid.UUID) {
	if e.id == nil {
		e.id = &id
	}
}

// SetCreatedTime is a no-op once a creation time is present.
func (e *Envelope) SetCreatedTime(t time.Time) {
	if e.createdTime == nil {
		e.createdTime = &t
	}
}

// SetCreatedBy is a no-op once a creator is present.
func (e *Envelope) SetCreatedBy(user uuid.UUID) {
	if e.createdBy == nil {
		e.createdBy = &user
	}
}

func (e *Envelope) SetLastUpdatedTime(t time.Time)  { e.lastUpdatedTime = &t }
func (e *Envelope) SetLastUpdatedBy(user uuid.UUID) { e.lastUpdatedBy = &user }
func (e *Envelope) SetActive(active bool)           { e.active = &active }

func derefUUID(p *uuid.UUID) (uuid.UUID, bool) {
	if p == nil {
		return uuid.Nil, false
	}
	return *p, true
}

func derefTime(p *time.Time) (time.Time, bool) {
	if p == nil {
		return time.Time{}, false
	}
	return *p, true
}

func cloneUUID(p *uuid.UUID) *uuid.UUID {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneBool(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
