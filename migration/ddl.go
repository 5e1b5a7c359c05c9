package migration

import (
	"strings"

	"github.com/kintsdev/pgentity"
	sqlutil "github.com/kintsdev/pgentity/internal/sqlutil"
)

// EnvelopeColumnsDDL returns the column definitions every audited table needs,
// in the order of pgentity.AuditColumns. Ids come from gen_random_uuid(), which
// is built in from PostgreSQL 13.
func EnvelopeColumnsDDL() []string {
	return []string{
		pgentity.ColumnID + " UUID PRIMARY KEY DEFAULT gen_random_uuid()",
		pgentity.ColumnCreatedTime + " TIMESTAMPTZ NOT NULL DEFAULT now()",
		pgentity.ColumnCreatedBy + " UUID NOT NULL",
		pgentity.ColumnLastUpdatedTime + " TIMESTAMPTZ",
		pgentity.ColumnLastUpdatedBy + " UUID",
		pgentity.ColumnActive + " BOOLEAN NOT NULL DEFAULT TRUE",
	}
}

// CreateTableDDL renders CREATE TABLE IF NOT EXISTS for table with the envelope
// columns first, followed by columns (full definitions such as "title TEXT NOT NULL").
func CreateTableDDL(table string, columns ...string) string {
	defs := append(EnvelopeColumnsDDL(), columns...)
	var sb strings.Builder
	sb.WriteString("CREATE TABLE IF NOT EXISTS ")
	sb.WriteString(sqlutil.QuoteQualified(table))
	sb.WriteString(" (\n\t")
	sb.WriteString(strings.Join(defs, ",\n\t"))
	sb.WriteString("\n)")
	return sb.String()
}

// ModelDDL derives CreateTableDDL from an entity struct: db tags name the columns,
// Go types pick the column types and an optional pg tag refines them, e.g.
//
//	Title  string     `db:"title" pg:"varchar(200),unique"`
//	NoteID uuid.UUID  `db:"note_id" pg:"references:notes(id)"`
//	Due    *time.Time `db:"due"` // pointers are nullable
//
// The table name is TableName() when the entity has one, else the pluralised
// snake_case type name.
func ModelDDL(model any) string {
	mi := parseModel(model)
	cols := make([]string, 0, len(mi.Fields))
	for _, f := range mi.Fields {
		cols = append(cols, f.definition())
	}
	return CreateTableDDL(mi.TableName, cols...)
}

// DropTableDDL renders the matching down statement for CreateTableDDL.
func DropTableDDL(table string) string {
	return "DROP TABLE IF EXISTS " + sqlutil.QuoteQualified(table)
}
