package schema

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/conduit-lang/rowmap/internal/orm/fixtures"
	"github.com/conduit-lang/rowmap/internal/orm/ormerrors"
)

type LineItem struct {
	ID       int64
	Class    string
	Callback func()
	Quantity int
}

type Ledger struct {
	Key   string `pk:"true"`
	Other string `db:",pk"`
	Total int64  `db:"grand_total,noinsert"`
}

func (Ledger) TableName() string { return "ledger" }

type Clash struct {
	ID    int64
	Name  string
	Label string `db:"name"`
}

type BadCopy struct {
	ID   int64
	Name string `copy:"sometimes"`
}

type WriteOnly struct {
	ID     int64
	secret string
}

func (w *WriteOnly) SetSecret(s string) { w.secret = s }

func (w *WriteOnly) PropertyTags() map[string]string {
	return map[string]string{"Secret": `db:"secret"`}
}

type Account struct {
	id    int64
	Owner string
}

func (a *Account) GetId() int64   { return a.id }
func (a *Account) SetId(id int64) { a.id = id }

func build(t *testing.T, v interface{}, logger *zap.Logger) (*ColumnSchema, error) {
	t.Helper()
	return NewBuilder(nil, logger).Build(reflect.TypeOf(v))
}

func TestBuild_Sample(t *testing.T) {
	s, err := build(t, fixtures.Sample{}, nil)
	require.NoError(t, err)

	assert.Equal(t, "samples", s.TableName)
	assert.Equal(t, "ID", s.IDProperty)
	assert.Equal(t, "id", s.IDColumn)
	assert.Empty(t, s.Warnings)

	assert.Equal(t, []string{
		"always_null", "b", "e", "i", "id", "ignore", "l", "most_recent_non_null",
		"not_updatable", "o", "renamed", "s", "take_original", "take_updated",
	}, s.Columns())
	assert.Equal(t, s.Columns(), s.InsertableColumns())
	assert.Equal(t, []string{
		"always_null", "b", "e", "i", "ignore", "l", "most_recent_non_null",
		"o", "renamed", "s", "take_original", "take_updated",
	}, s.UpdatableColumns())

	column, ok := s.ColumnFor("NotMyColumnName")
	require.True(t, ok)
	assert.Equal(t, "renamed", column)

	_, ok = s.ColumnFor("Scratch")
	assert.False(t, ok, "transient properties have no column")

	p, ok := s.PropertyFor("most_recent_non_null")
	require.True(t, ok)
	assert.Equal(t, "MostRecentNonNull", p.Name())

	assert.True(t, s.IsInsertable("not_updatable"))
	assert.False(t, s.IsUpdatable("not_updatable"))
	assert.False(t, s.IsUpdatable("id"))
}

func TestBuild_CopyBehaviors(t *testing.T) {
	s, err := build(t, fixtures.Sample{}, nil)
	require.NoError(t, err)

	assert.Equal(t, AlwaysNull, s.CopyBehavior("AlwaysNull"))
	assert.Equal(t, Ignore, s.CopyBehavior("Ignore"))
	assert.Equal(t, MostRecentNonNull, s.CopyBehavior("MostRecentNonNull"))
	assert.Equal(t, TakeOriginal, s.CopyBehavior("TakeOriginal"))
	assert.Equal(t, TakeUpdated, s.CopyBehavior("TakeUpdated"))
	assert.Equal(t, MostRecentNonNull, s.CopyBehavior("S"))
	assert.Equal(t, MostRecentNonNull, s.CopyBehavior("Unknown"))
}

func TestBuild_ConventionalID(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	s, err := build(t, LineItem{}, zap.New(core))
	require.NoError(t, err)

	assert.Equal(t, "line_items", s.TableName)
	assert.Equal(t, "ID", s.IDProperty)
	assert.Equal(t, "id", s.IDColumn)
	assert.Len(t, s.Warnings, 1)
	assert.Equal(t, 1, logs.FilterMessage("no identifier marked, using conventional property").Len())

	assert.Equal(t, []string{"id", "quantity"}, s.Columns(), "class and func properties are never mapped")
}

func TestBuild_ConventionalIDFromAccessors(t *testing.T) {
	s, err := build(t, Account{}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Id", s.IDProperty, "accessor-backed id matches the conventional name ignoring case")
	assert.Equal(t, "id", s.IDColumn)
	assert.Contains(t, s.Warnings[0], "using Id")
	assert.False(t, s.IsUpdatable("id"))
}

func TestBuild_MultipleIDMarkers(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	s, err := build(t, &Ledger{}, zap.New(core))
	require.NoError(t, err)

	assert.Equal(t, "ledger", s.TableName)
	assert.Equal(t, "Key", s.IDProperty)
	assert.Equal(t, "key", s.IDColumn)
	assert.Equal(t, 1, logs.FilterMessage("multiple identifiers marked, using the first").Len())

	assert.Equal(t, []string{"grand_total", "key", "other"}, s.Columns())
	assert.Equal(t, []string{"key", "other"}, s.InsertableColumns())
	assert.Equal(t, []string{"other"}, s.UpdatableColumns())
}

func TestBuild_CustomIDProperty(t *testing.T) {
	s, err := NewBuilder(nil, nil).WithIDProperty("Quantity").Build(reflect.TypeOf(LineItem{}))
	require.NoError(t, err)

	assert.Equal(t, "Quantity", s.IDProperty)
	assert.Equal(t, "quantity", s.IDColumn)
	assert.Equal(t, []string{"id"}, s.UpdatableColumns())
}

func TestBuild_Strict(t *testing.T) {
	b := NewBuilder(nil, nil).WithStrict(true)

	_, err := b.Build(reflect.TypeOf(LineItem{}))
	require.Error(t, err)
	assert.True(t, ormerrors.IsConfiguration(err))

	_, err = b.Build(reflect.TypeOf(Ledger{}))
	assert.True(t, ormerrors.IsConfiguration(err))

	s, err := b.Build(reflect.TypeOf(fixtures.Sample{}))
	require.NoError(t, err)
	assert.Empty(t, s.Warnings)
}

func TestBuild_DuplicateColumn(t *testing.T) {
	_, err := build(t, Clash{}, nil)
	require.Error(t, err)
	assert.True(t, ormerrors.IsConfiguration(err))
	assert.Contains(t, err.Error(), `"name"`)
}

func TestBuild_InvalidCopyBehavior(t *testing.T) {
	_, err := build(t, BadCopy{}, nil)
	require.Error(t, err)
	assert.True(t, ormerrors.IsConfiguration(err))
	assert.Contains(t, err.Error(), "sometimes")
}

func TestBuild_UnreadableExplicitColumn(t *testing.T) {
	_, err := build(t, WriteOnly{}, nil)
	require.Error(t, err)
	assert.True(t, ormerrors.IsConfiguration(err))
	assert.Contains(t, err.Error(), "Secret")
}

func TestBuild_NotAStruct(t *testing.T) {
	_, err := build(t, "text", nil)
	assert.True(t, ormerrors.IsConfiguration(err))
}

func TestColumnSchema_IDValue(t *testing.T) {
	s, err := build(t, fixtures.Sample{}, nil)
	require.NoError(t, err)

	id, err := s.IDValue(&fixtures.Sample{ID: 42})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, ok := s.New().(*fixtures.Sample)
	assert.True(t, ok)
}

func TestRegistry_Caches(t *testing.T) {
	r := NewRegistry(nil)

	first, err := r.For(reflect.TypeOf(fixtures.Sample{}))
	require.NoError(t, err)
	second, err := r.Of(&fixtures.Sample{})
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = r.Of(LineItem{})
	require.NoError(t, err)

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "line_items", all[0].TableName)
	assert.Equal(t, "samples", all[1].TableName)
}

func TestRegistry_DoesNotCacheFailures(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.Of(Clash{})
	require.Error(t, err)

	_, ok := r.Get(reflect.TypeOf(Clash{}))
	assert.False(t, ok)
}

func TestParseCopyBehavior(t *testing.T) {
	for _, b := range []CopyBehavior{MostRecentNonNull, Ignore, TakeUpdated, TakeOriginal, AlwaysNull} {
		parsed, err := ParseCopyBehavior(b.String())
		require.NoError(t, err)
		assert.Equal(t, b, parsed)
		assert.True(t, b.Valid())
	}

	parsed, err := ParseCopyBehavior("TAKE_UPDATED")
	require.NoError(t, err)
	assert.Equal(t, TakeUpdated, parsed)

	parsed, err = ParseCopyBehavior("AlwaysNull")
	require.NoError(t, err)
	assert.Equal(t, AlwaysNull, parsed)

	_, err = ParseCopyBehavior("never")
	assert.Error(t, err)
	assert.False(t, CopyBehavior(99).Valid())
	assert.Equal(t, "CopyBehavior(99)", CopyBehavior(99).String())
}
