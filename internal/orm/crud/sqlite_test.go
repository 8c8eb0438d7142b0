package crud

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/rowmap/internal/orm/convert"
	"github.com/conduit-lang/rowmap/internal/orm/fixtures"
)

type Note struct {
	ID    int64
	Title *string
	Body  *string `copy:"take_updated"`
	Price *decimal.Decimal
	Grade *fixtures.Grade
	Done  *bool
	Ref   *uuid.UUID
	Views int64 `db:"views,readonly"`
}

const notesDDL = `CREATE TABLE notes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT,
	body TEXT,
	price NUMERIC,
	grade TEXT,
	done BOOLEAN,
	ref TEXT,
	views INTEGER NOT NULL DEFAULT 0
)`

func newNoteRepository(t *testing.T) *Repository[Note] {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(notesDDL)
	require.NoError(t, err)

	converters := convert.NewRegistry()
	require.NoError(t, convert.RegisterEnum(converters, fixtures.Grades))

	repo, err := NewRepository[Note](Config{DB: db, Dialect: SQLite, Converters: converters})
	require.NoError(t, err)
	return repo
}

func TestSQLite_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newNoteRepository(t)
	ref := uuid.New()

	note := &Note{
		Title: fixtures.Ptr("first"),
		Body:  fixtures.Ptr("body"),
		Price: fixtures.Dec(1234),
		Grade: fixtures.Ptr(fixtures.GradeB),
		Done:  fixtures.Ptr(true),
		Ref:   &ref,
		Views: 10,
	}

	id, err := repo.Insert(ctx, note)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, id, note.ID)

	got, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "first", *got.Title)
	assert.Equal(t, "body", *got.Body)
	assert.True(t, decimal.NewFromInt(1234).Equal(*got.Price))
	assert.Equal(t, fixtures.GradeB, *got.Grade)
	assert.True(t, *got.Done)
	assert.Equal(t, ref, *got.Ref)
	assert.Equal(t, int64(10), got.Views)

	_, err = repo.FindByID(ctx, int64(99))
	assert.True(t, IsNotFound(err))
}

func TestSQLite_PartialUpdate(t *testing.T) {
	ctx := context.Background()
	repo := newNoteRepository(t)

	id, err := repo.Insert(ctx, &Note{Title: fixtures.Ptr("first"), Body: fixtures.Ptr("body"), Views: 3})
	require.NoError(t, err)

	affected, err := repo.PartialUpdate(ctx, &Note{ID: id.(int64), Title: fixtures.Ptr("second"), Views: 50}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	got, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "second", *got.Title)
	assert.Nil(t, got.Body, "take_updated clears the body")
	assert.Equal(t, int64(3), got.Views, "readonly columns are never updated")

	affected, err = repo.PartialUpdate(ctx, got, false)
	require.NoError(t, err)
	assert.Zero(t, affected)
}

func TestSQLite_MergeUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := newNoteRepository(t)

	id, err := repo.Insert(ctx, &Note{Title: fixtures.Ptr("first"), Grade: fixtures.Ptr(fixtures.GradeA)})
	require.NoError(t, err)

	merged, err := repo.MergeUpdate(ctx, &Note{ID: id.(int64), Body: fixtures.Ptr("  added  ")})
	require.NoError(t, err)
	assert.Equal(t, "first", *merged.Title)
	assert.Equal(t, "added", *merged.Body)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "added", *all[0].Body)
	assert.Equal(t, fixtures.GradeA, *all[0].Grade)

	affected, err := repo.DeleteByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	all, err = repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

type Tag struct {
	ID    string `db:"id,pk"`
	Label *string
}

func TestSQLite_InsertWithTextIdentifier(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE tags (id TEXT PRIMARY KEY, label TEXT)`)
	require.NoError(t, err)

	repo, err := NewRepository[Tag](Config{DB: db, Dialect: SQLite})
	require.NoError(t, err)

	id, err := repo.Insert(ctx, &Tag{ID: "go", Label: fixtures.Ptr("Go")})
	require.NoError(t, err)
	assert.Equal(t, "go", id)

	var count int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM tags WHERE id = 'go'`).Scan(&count))
	assert.Equal(t, 1, count)

	got, err := repo.FindByID(ctx, "go")
	require.NoError(t, err)
	assert.Equal(t, "Go", *got.Label)
}
