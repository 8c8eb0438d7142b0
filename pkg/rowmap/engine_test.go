package rowmap

import (
	"reflect"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/conduit-lang/rowmap/internal/orm/crud"
	"github.com/conduit-lang/rowmap/internal/orm/fixtures"
	"github.com/conduit-lang/rowmap/internal/orm/mapping"
	"github.com/conduit-lang/rowmap/internal/orm/ormerrors"
	"github.com/conduit-lang/rowmap/internal/orm/tracking"
)

type Unmarked struct {
	Key  int64
	Name string
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e := New()
	require.NoError(t, RegisterEnum(e, fixtures.Grades))
	return e
}

func TestEngine_SchemaOf(t *testing.T) {
	e := newEngine(t)

	cs, err := SchemaOf[fixtures.Sample](e)
	require.NoError(t, err)
	assert.Equal(t, "samples", cs.TableName)
	assert.Equal(t, "id", cs.IDColumn)

	again, err := SchemaOf[fixtures.Sample](e)
	require.NoError(t, err)
	assert.Same(t, cs, again, "schemas are cached per engine")

	other, err := SchemaOf[fixtures.Sample](New())
	require.NoError(t, err)
	assert.NotSame(t, cs, other, "engines do not share registries")
}

func TestEngine_MapperFor(t *testing.T) {
	e := newEngine(t)

	m, err := MapperFor[fixtures.Sample](e)
	require.NoError(t, err)

	got, err := m.MapRow([]mapping.ColumnDescriptor{
		{Name: "id", ScanType: reflect.TypeOf(int64(0))},
		{Name: "s", ScanType: reflect.TypeOf("")},
		{Name: "e", ScanType: reflect.TypeOf("")},
	}, mapping.Values{int64(3), "text", "A"})
	require.NoError(t, err)

	assert.Equal(t, int64(3), got.ID)
	assert.Equal(t, "text", *got.S)
	assert.Equal(t, fixtures.GradeA, *got.E)
}

func TestEngine_ScanAndMerge(t *testing.T) {
	e := newEngine(t)

	existing := &fixtures.Sample{ID: 1, S: fixtures.Ptr("old"), L: fixtures.Ptr(int64(5))}
	updated := &fixtures.Sample{ID: 1, S: fixtures.Ptr("new")}

	changes, err := ScanForChanges(e, existing, updated, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"S"}, changes.Keys())
	assert.Equal(t, tracking.Update, changes.Get("S").Kind)

	merged, err := Merge(e, existing, updated)
	require.NoError(t, err)
	assert.Equal(t, int64(1), merged.ID)
	assert.Equal(t, "new", *merged.S)
	assert.Equal(t, int64(5), *merged.L)
}

func TestEngine_Parameters(t *testing.T) {
	e := newEngine(t)

	params, err := Parameters(e, &fixtures.Sample{ID: 2, E: fixtures.Ptr(fixtures.GradeB)})
	require.NoError(t, err)

	assert.Equal(t, int64(2), params["id"])
	assert.Equal(t, "B", params["e"])
	assert.Nil(t, params["s"])
}

func TestEngine_Convert(t *testing.T) {
	e := New()

	v, err := e.Convert("42", reflect.TypeOf(int64(0)))
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}

func TestEngine_Options(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	e := New(WithLogger(zap.New(core)), WithIDProperty("Key"), WithDateLayouts("2006.01.02"))

	cs, err := SchemaOf[Unmarked](e)
	require.NoError(t, err)
	assert.Equal(t, "Key", cs.IDProperty)
	assert.Equal(t, 1, logs.FilterMessage("no identifier marked, using conventional property").Len())
	assert.Equal(t, []string{"2006.01.02"}, e.Converters().DateLayouts())
}

func TestNewFromConfig(t *testing.T) {
	e := NewFromConfig(Config{IDProperty: "Key", Strict: true}, nil)

	_, err := SchemaOf[Unmarked](e)
	require.Error(t, err)
	assert.True(t, ormerrors.IsConfiguration(err))

	_, err = SchemaOf[fixtures.Sample](e)
	assert.NoError(t, err)
}

func TestEngine_RepositoryFor(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	e := newEngine(t)
	repo, err := RepositoryFor[fixtures.Sample](e, db, crud.SQLite)
	require.NoError(t, err)

	cs, err := SchemaOf[fixtures.Sample](e)
	require.NoError(t, err)
	assert.Same(t, cs, repo.Schema())
	assert.NoError(t, mock.ExpectationsWereMet())
}
