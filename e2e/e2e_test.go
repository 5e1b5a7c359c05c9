//go:build e2e

package e2e

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kintsdev/pgentity"
	"github.com/kintsdev/pgentity/migration"
	"github.com/shopspring/decimal"
)

type Invoice struct {
	pgentity.Envelope
	Number string          `db:"number"`
	Total  decimal.Decimal `db:"total"`
}

func (i *Invoice) InsertStatement() (*pgentity.InsertStatement, error) {
	return pgentity.Insert("invoices").Value("number", i.Number).Value("total", i.Total), nil
}

func (i *Invoice) UpdateStatement() (*pgentity.UpdateStatement, error) {
	stmt := pgentity.Update("invoices").Set("number", i.Number).Set("total", i.Total)
	if active, ok := i.Active(); ok {
		stmt.Set(pgentity.ColumnActive, active)
	}
	return stmt, nil
}

type InvoiceLine struct {
	pgentity.Envelope
	InvoiceID uuid.UUID `db:"invoice_id"`
	SKU       string    `db:"sku"`
}

func (l *InvoiceLine) InsertStatement() (*pgentity.InsertStatement, error) {
	return pgentity.Insert("invoice_lines").Value("invoice_id", l.InvoiceID).Value("sku", l.SKU), nil
}

func (l *InvoiceLine) UpdateStatement() (*pgentity.UpdateStatement, error) {
	return pgentity.Update("invoice_lines").Set("sku", l.SKU), nil
}

var (
	db       *pgentity.DB
	invoices *pgentity.Repository[Invoice, *Invoice]
	lines    *pgentity.Repository[InvoiceLine, *InvoiceLine]
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	host := getenvDefault("PGHOST", "127.0.0.1")
	port := getenvDefault("PGPORT", "5432")
	user := getenvDefault("PGUSER", "postgres")
	pass := getenvDefault("PGPASSWORD", "postgres")
	name := getenvDefault("PGDATABASE", "postgres")

	if err := waitTCP(host, port, 30*time.Second); err != nil {
		fmt.Println("postgres not reachable:", err)
		os.Exit(1)
	}

	dsn := fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s sslmode=disable", host, port, name, user, pass)
	var err error
	db, err = pgentity.NewWithConnString(dsn, pgentity.WithLogMode(pgentity.LogDebug), pgentity.WithLogger(pgentity.NewSlogLogger(nil)))
	if err != nil {
		fmt.Println("failed to connect pg:", err)
		os.Exit(1)
	}

	src := os.DirFS("testdata")
	if err := migration.Down(ctx, db.Pool(), src, "migrations"); err != nil {
		fmt.Println("migrate down:", err)
		os.Exit(1)
	}
	if err := migration.Up(ctx, db.Pool(), src, "migrations"); err != nil {
		fmt.Println("migrate up:", err)
		os.Exit(1)
	}
	invoices = pgentity.NewRepository[Invoice](db)
	lines = pgentity.NewRepository[InvoiceLine](db)

	code := m.Run()
	_ = db.Close()
	os.Exit(code)
}

func TestMigrationVersion(t *testing.T) {
	v, dirty, err := migration.NewMigrator(db.Pool(), os.DirFS("testdata"), "migrations").Version(context.Background())
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if v != 2 || dirty {
		t.Fatalf("expected clean version 2, got %d dirty=%v", v, dirty)
	}
}

func TestSaveInsertThenUpdate(t *testing.T) {
	ctx := context.Background()
	creator, editor := uuid.New(), uuid.New()

	inv := &Invoice{Number: "INV-" + uuid.NewString()[:8], Total: decimal.RequireFromString("12.50")}
	if err := db.Save(ctx, inv, creator, nil); err != nil {
		t.Fatalf("insert: %v", err)
	}
	id, ok := inv.ID()
	if !ok || id == uuid.Nil {
		t.Fatalf("expected generated id, got %v", id)
	}
	created, _ := inv.CreatedTime()
	if by, _ := inv.CreatedBy(); by != creator {
		t.Fatalf("created_by = %v, want %v", by, creator)
	}
	if active, ok := inv.Active(); !ok || !active {
		t.Fatalf("expected active default from the database")
	}
	if _, ok := inv.LastUpdatedTime(); ok {
		t.Fatalf("fresh insert must not carry last_updated_time")
	}

	inv.Total = decimal.RequireFromString("99.99")
	if err := db.Save(ctx, inv, editor, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	if by, _ := inv.LastUpdatedBy(); by != editor {
		t.Fatalf("last_updated_by = %v, want %v", by, editor)
	}

	got, err := invoices.FindOne(ctx, id)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !got.Total.Equal(inv.Total) || got.Number != inv.Number {
		t.Fatalf("unexpected row: %+v", got)
	}
	if by, _ := got.CreatedBy(); by != creator {
		t.Fatalf("update changed created_by: %v", by)
	}
	if at, _ := got.CreatedTime(); !at.Equal(created) {
		t.Fatalf("update changed created_time: %v vs %v", at, created)
	}
	if by, ok := got.LastUpdatedBy(); !ok || by != editor {
		t.Fatalf("stored last_updated_by = %v", by)
	}
}

func TestDuplicateNumberReturnsDriverError(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()
	number := "DUP-" + uuid.NewString()[:8]
	if err := db.QuickSave(ctx, &Invoice{Number: number}, user); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	dup := &Invoice{Number: number}
	err := db.QuickSave(ctx, dup, user)
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		t.Fatalf("expected unique violation, got %v", err)
	}
	if code, _ := pgentity.Classify(err); code != pgentity.ErrCodeDuplicate {
		t.Fatalf("classify = %v", code)
	}
	if _, ok := dup.ID(); ok {
		t.Fatalf("failed insert must leave the envelope untouched")
	}
}

func TestUpdateUnknownIDReturnsNoRows(t *testing.T) {
	inv := &Invoice{Number: "GHOST"}
	inv.SetID(uuid.New())
	err := db.Save(context.Background(), inv, uuid.New(), nil)
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected pgx.ErrNoRows for missing row, got %v", err)
	}
	if _, ok := inv.LastUpdatedTime(); ok {
		t.Fatalf("failed update must leave the envelope untouched")
	}
}

func TestFindOneMissingIsNotFound(t *testing.T) {
	_, err := invoices.FindOne(context.Background(), uuid.New())
	if !pgentity.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTransactionRollbackAndCommit(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()
	rolledBack := &Invoice{Number: "TX-RB-" + uuid.NewString()[:8]}
	errForce := errors.New("force rollback")

	err := db.Tx().WithTransaction(ctx, func(tx pgentity.Transaction) error {
		if err := tx.Save(ctx, rolledBack, user); err != nil {
			return err
		}
		return errForce
	})
	if !errors.Is(err, errForce) {
		t.Fatalf("expected forced error, got %v", err)
	}
	n, err := invoices.Count(ctx, pgentity.Eq("number", rolledBack.Number))
	if err != nil || n != 0 {
		t.Fatalf("rolled back invoice visible: n=%d err=%v", n, err)
	}

	committed := &Invoice{Number: "TX-OK-" + uuid.NewString()[:8]}
	if err := db.Tx().WithTransaction(ctx, func(tx pgentity.Transaction) error {
		return tx.Save(ctx, committed, user)
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	ok, err := invoices.Exists(ctx, pgentity.Eq("number", committed.Number))
	if err != nil || !ok {
		t.Fatalf("committed invoice missing: %v", err)
	}
}

func TestActivityFiltersAndPaging(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	for i := 0; i < 5; i++ {
		inv := &Invoice{Number: fmt.Sprintf("PG-%s-%d", owner.String()[:8], i)}
		if err := db.QuickSave(ctx, inv, owner); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
		if i%2 == 1 {
			inv.SetActive(false)
			if err := db.QuickSave(ctx, inv, owner); err != nil {
				t.Fatalf("deactivate %d: %v", i, err)
			}
		}
	}

	active, err := invoices.OnlyActive().Count(ctx, pgentity.CreatedBy(owner))
	if err != nil || active != 3 {
		t.Fatalf("active count = %d err=%v", active, err)
	}
	inactive, err := invoices.OnlyInactive().Find(ctx, pgentity.CreatedBy(owner))
	if err != nil || len(inactive) != 2 {
		t.Fatalf("inactive = %d err=%v", len(inactive), err)
	}

	page, err := invoices.FindPage(ctx, pgentity.PageRequest{Limit: 2, Offset: 2}, pgentity.CreatedBy(owner))
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if page.Total != 5 || len(page.Items) != 2 {
		t.Fatalf("page total=%d items=%d", page.Total, len(page.Items))
	}
}

func TestEagerLoadLines(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()
	a, b := &Invoice{Number: "EL-A-" + uuid.NewString()[:8]}, &Invoice{Number: "EL-B-" + uuid.NewString()[:8]}
	for _, inv := range []*Invoice{a, b} {
		if err := db.QuickSave(ctx, inv, user); err != nil {
			t.Fatalf("invoice: %v", err)
		}
	}
	aid, _ := a.ID()
	for _, sku := range []string{"x", "y"} {
		if err := db.QuickSave(ctx, &InvoiceLine{InvoiceID: aid, SKU: sku}, user); err != nil {
			t.Fatalf("line: %v", err)
		}
	}

	got := map[string]int{}
	err := pgentity.EagerLoadMany(ctx, lines, []*Invoice{a, b},
		func(i *Invoice) uuid.UUID { id, _ := i.ID(); return id },
		"invoice_id",
		func(i *Invoice, ls []*InvoiceLine) { got[i.Number] = len(ls) })
	if err != nil {
		t.Fatalf("eager load: %v", err)
	}
	if got[a.Number] != 2 || got[b.Number] != 0 {
		t.Fatalf("unexpected grouping: %v", got)
	}
}

func TestWithRLSExportsActor(t *testing.T) {
	ctx := context.Background()
	actor := uuid.New()
	var got, tenant string
	err := db.WithRLS(ctx, pgentity.RLSContext{Actor: actor, SessionVars: map[string]string{"app.tenant": "acme"}}, func(tx pgentity.Transaction) error {
		return tx.Exec().QueryRow(ctx, "SELECT current_setting($1, true), current_setting('app.tenant', true)", pgentity.ActorSetting).Scan(&got, &tenant)
	})
	if err != nil {
		t.Fatalf("with rls: %v", err)
	}
	if got != actor.String() || tenant != "acme" {
		t.Fatalf("session settings = %q, %q", got, tenant)
	}
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func waitTCP(host, port string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	addr := net.JoinHostPort(host, port)
	for time.Now().Before(deadline) {
		c, err := net.DialTimeout("tcp", addr, 1*time.Second)
		if err == nil {
			_ = c.Close()
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("timeout waiting for %s:%s", host, port)
}
