package pgentity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noteFields = []string{"title", "body", "id", "created_time", "created_by", "last_updated_time", "last_updated_by", "active"}

const noteSelect = "SELECT title, body, id, created_time, created_by, last_updated_time, last_updated_by, active FROM notes"

type archivedNote struct {
	Envelope
	Title string `db:"title"`
}

func (a *archivedNote) TableName() string { return "archive.notes" }
func (a *archivedNote) InsertStatement() (*InsertStatement, error) {
	return Insert(a.TableName()).Value("title", a.Title), nil
}
func (a *archivedNote) UpdateStatement() (*UpdateStatement, error) {
	return Update(a.TableName()).Set("title", a.Title), nil
}

func TestRepository_TableName(t *testing.T) {
	db := NewWithExecutor(&fakeExec{})
	assert.Equal(t, "notes", NewRepository[note](db).Table())
	assert.Equal(t, "plains", NewRepository[plain](db).Table())
	assert.Equal(t, "archive.notes", NewRepository[archivedNote](db).Table())
}

func TestRepository_FindOne_HydratesEnvelope(t *testing.T) {
	id, creator := uuid.New(), uuid.New()
	created := time.Date(2024, 2, 2, 8, 0, 0, 0, time.UTC)
	fe := &fakeExec{results: []fakeResult{{
		fields: noteFields,
		rows:   [][]any{{"t", "b", [16]byte(id), created, [16]byte(creator), nil, nil, true}},
	}}}
	repo := NewRepository[note](NewWithExecutor(fe))

	n, err := repo.FindOne(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, fe.calls, 1)
	assert.Equal(t, noteSelect+" WHERE id = $1 LIMIT 1", fe.calls[0].sql)
	assert.Equal(t, []any{id}, fe.calls[0].args)

	assert.Equal(t, "t", n.Title)
	assert.Equal(t, "b", n.Body)
	got, ok := n.ID()
	require.True(t, ok)
	assert.Equal(t, id, got)
	by, _ := n.CreatedBy()
	assert.Equal(t, creator, by)
	ct, _ := n.CreatedTime()
	assert.True(t, ct.Equal(created))
	_, ok = n.LastUpdatedTime()
	assert.False(t, ok)
	_, ok = n.LastUpdatedBy()
	assert.False(t, ok)
	active, ok := n.Active()
	require.True(t, ok)
	assert.True(t, active)
}

func TestRepository_FindOne_NotFound(t *testing.T) {
	fe := &fakeExec{results: []fakeResult{{fields: noteFields}}}
	_, err := NewRepository[note](NewWithExecutor(fe)).FindOne(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestRepository_FindOneWith_UsesGivenExecutor(t *testing.T) {
	primary := &fakeExec{}
	other := &fakeExec{results: []fakeResult{{fields: noteFields}}}
	repo := NewRepository[note](NewWithExecutor(primary))
	_, _ = repo.FindOneWith(context.Background(), uuid.New(), other)
	assert.Empty(t, primary.calls)
	assert.Len(t, other.calls, 1)
}

func TestRepository_Find_ActivityFilters(t *testing.T) {
	fe := &fakeExec{results: []fakeResult{{fields: noteFields}, {fields: noteFields}, {fields: noteFields}}}
	repo := NewRepository[note](NewWithExecutor(fe))
	ctx := context.Background()

	_, err := repo.Find(ctx, Eq("title", "x"))
	require.NoError(t, err)
	_, err = repo.OnlyActive().Find(ctx)
	require.NoError(t, err)
	_, err = repo.OnlyInactive().Find(ctx, Eq("title", "x"))
	require.NoError(t, err)

	require.Len(t, fe.calls, 3)
	assert.Equal(t, noteSelect+" WHERE title = $1", fe.calls[0].sql)
	assert.Equal(t, noteSelect+" WHERE active = $1", fe.calls[1].sql)
	assert.Equal(t, []any{true}, fe.calls[1].args)
	assert.Equal(t, noteSelect+" WHERE (title = $1) AND (active = $2)", fe.calls[2].sql)
	assert.Equal(t, []any{"x", false}, fe.calls[2].args)
}

func TestRepository_Find_MultipleRows(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	now := time.Now().UTC()
	fe := &fakeExec{results: []fakeResult{{
		fields: noteFields,
		rows: [][]any{
			{"one", "", [16]byte(a), now, [16]byte(a), nil, nil, true},
			{"two", "", [16]byte(b), now, [16]byte(a), now, [16]byte(b), false},
		},
	}}}
	out, err := NewRepository[note](NewWithExecutor(fe)).Find(context.Background(), CreatedBy(a))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "two", out[1].Title)
	lb, ok := out[1].LastUpdatedBy()
	require.True(t, ok)
	assert.Equal(t, b, lb)
	active, _ := out[1].Active()
	assert.False(t, active)
}

func TestRepository_Find_UnscannableValueIsInvalidCast(t *testing.T) {
	id := uuid.New()
	fe := &fakeExec{results: []fakeResult{{
		fields: noteFields,
		rows:   [][]any{{int64(42), "b", [16]byte(id), time.Now().UTC(), [16]byte(id), nil, nil, true}},
	}}}
	out, err := NewRepository[note](NewWithExecutor(fe)).Find(context.Background())
	require.Error(t, err)
	assert.Nil(t, out)
	code, ok := Classify(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeInvalidCast, code)
	assert.Contains(t, err.Error(), "title")
}

func TestRepository_CountExistsAndPage(t *testing.T) {
	fe := &fakeExec{results: []fakeResult{
		{rows: [][]any{{int64(5)}}},
		{rows: [][]any{{int64(0)}}},
		{rows: [][]any{{int64(5)}}},
		{fields: noteFields},
	}}
	repo := NewRepository[note](NewWithExecutor(fe)).OnlyActive()
	ctx := context.Background()

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, "SELECT COUNT(*) FROM notes WHERE active = $1", fe.calls[0].sql)

	ok, err := repo.Exists(ctx, Eq("title", "nope"))
	require.NoError(t, err)
	assert.False(t, ok)

	page, err := repo.FindPage(ctx, PageRequest{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 2, page.Limit)
	assert.Equal(t, noteSelect+" WHERE active = $1 ORDER BY created_time, id LIMIT 2 OFFSET 2", fe.calls[3].sql)
}

func TestRepository_QueryErrorPassesThrough(t *testing.T) {
	failure := errors.New("relation does not exist")
	fe := &fakeExec{results: []fakeResult{{err: failure}}}
	_, err := NewRepository[note](NewWithExecutor(fe)).Find(context.Background())
	assert.Same(t, failure, err)
}

func TestRepository_SaveAndReload(t *testing.T) {
	id, user := uuid.New(), uuid.New()
	now := time.Now().UTC()
	fe := &fakeExec{results: []fakeResult{
		insertResult(id, user, now, true),
		{fields: noteFields, rows: [][]any{{"t", "b", [16]byte(id), now, [16]byte(user), nil, nil, true}}},
	}}
	repo := NewRepository[note](NewWithExecutor(fe))
	n := &note{Title: "t", Body: "b"}
	require.NoError(t, repo.Save(context.Background(), n, user))

	loaded, err := repo.FindOne(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, n.Data(), loaded.Data())
}
