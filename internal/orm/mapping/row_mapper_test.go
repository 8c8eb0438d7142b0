package mapping

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/conduit-lang/rowmap/internal/orm/convert"
	"github.com/conduit-lang/rowmap/internal/orm/fixtures"
	"github.com/conduit-lang/rowmap/internal/orm/ormerrors"
)

var (
	stringType = reflect.TypeOf("")
	int64Type  = reflect.TypeOf(int64(0))
	bytesType  = reflect.TypeOf([]byte(nil))
)

type Report struct {
	ID    int64
	Title string
	MapContainer
}

type Wallet struct {
	ID      int64
	balance int64
}

func (w *Wallet) GetBalance() int64 { return w.balance }

func (w *Wallet) SetBalance(v int64) error {
	if v < 0 {
		return errors.New("negative balance")
	}
	w.balance = v
	return nil
}

func newMapper[T any](t *testing.T, logger *zap.Logger) *RowMapper[T] {
	t.Helper()
	converters := convert.NewRegistry(convert.WithLogger(logger))
	require.NoError(t, convert.RegisterEnum(converters, fixtures.Grades))

	m, err := NewRowMapper[T](nil, converters, logger)
	require.NoError(t, err)
	return m
}

func sampleColumns() []ColumnDescriptor {
	return []ColumnDescriptor{
		{Name: "id", ScanType: int64Type},
		{Name: "s", ScanType: stringType},
		{Name: "l", ScanType: stringType},
		{Name: "b", ScanType: int64Type},
		{Name: "i", ScanType: int64Type},
		{Name: "o", ScanType: stringType},
		{Name: "e", ScanType: stringType},
		{Name: "renamed", ScanType: bytesType},
		{Name: "not_updatable", ScanType: stringType},
	}
}

func TestMapRow_Sample(t *testing.T) {
	m := newMapper[fixtures.Sample](t, nil)

	got, err := m.MapRow(sampleColumns(), Values{
		int64(9), "text", "42", int64(1), int64(7), "1234.50", "b", []byte("x"), nil,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(9), got.ID)
	require.NotNil(t, got.S)
	assert.Equal(t, "text", *got.S)
	require.NotNil(t, got.L)
	assert.Equal(t, int64(42), *got.L)
	require.NotNil(t, got.B)
	assert.True(t, *got.B)
	assert.Equal(t, 7, got.I)
	require.NotNil(t, got.O)
	assert.True(t, decimal.NewFromFloat(1234.5).Equal(*got.O))
	require.NotNil(t, got.E)
	assert.Equal(t, fixtures.GradeB, *got.E)
	require.NotNil(t, got.NotMyColumnName)
	assert.Equal(t, "x", *got.NotMyColumnName)
	assert.Nil(t, got.ObeysUpdatable, "null values never reach the entity")
}

func TestMapRow_NullsLeaveZeroValues(t *testing.T) {
	m := newMapper[fixtures.Sample](t, nil)

	got, err := m.MapRow(sampleColumns(), Values{int64(1), nil, nil, nil, nil, nil, nil, nil, nil})
	require.NoError(t, err)

	assert.Equal(t, &fixtures.Sample{ID: 1}, got)
}

func TestMapRow_RuntimeTypeOverridesDescriptor(t *testing.T) {
	m := newMapper[fixtures.Sample](t, nil)
	columns := []ColumnDescriptor{
		{Name: "l", ScanType: stringType},
		{Name: "S"},
	}

	got, err := m.MapRow(columns, Values{int64(5), []byte("bytes")})
	require.NoError(t, err)

	require.NotNil(t, got.L)
	assert.Equal(t, int64(5), *got.L)
	require.NotNil(t, got.S)
	assert.Equal(t, "bytes", *got.S)
}

func TestMapRow_ConversionFailureAbortsRow(t *testing.T) {
	m := newMapper[fixtures.Sample](t, nil)

	got, err := m.MapRow(sampleColumns()[:7], Values{int64(1), "s", "1", int64(0), int64(0), "1", "purple"})
	require.Error(t, err)
	assert.Nil(t, got)

	assert.True(t, errors.Is(err, ormerrors.ErrMapping))
	assert.True(t, ormerrors.IsInvalidArgument(err))

	var mappingErr *ormerrors.MappingError
	require.True(t, errors.As(err, &mappingErr))
	assert.Equal(t, "e", mappingErr.Column)
	assert.Equal(t, "purple", mappingErr.Value)
	assert.Equal(t, reflect.TypeOf(fixtures.Sample{}), mappingErr.Type)
}

func TestMapRow_SetterFailureAbortsRow(t *testing.T) {
	m := newMapper[Wallet](t, nil)
	columns := []ColumnDescriptor{{Name: "id", ScanType: int64Type}, {Name: "balance", ScanType: int64Type}}

	got, err := m.MapRow(columns, Values{int64(1), int64(-5)})
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, ormerrors.ErrMapping))
	assert.Contains(t, err.Error(), "negative balance")

	got, err = m.MapRow(columns, Values{int64(1), int64(5)})
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.GetBalance())
}

func TestMapRow_MissingConverterLeavesPropertyUnset(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	m := newMapper[fixtures.Sample](t, zap.New(core))

	got, err := m.MapRow([]ColumnDescriptor{{Name: "o"}}, Values{time.Second})
	require.NoError(t, err)
	assert.Nil(t, got.O)
	assert.Equal(t, 1, logs.FilterMessage("no converter found, leaving property unset").Len())
}

func TestMapRow_UnmappedColumnsAreDiscardedOnce(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	m := newMapper[fixtures.Sample](t, zap.New(core))
	columns := []ColumnDescriptor{{Name: "id", ScanType: int64Type}, {Name: "extra", ScanType: stringType}}

	for i := 0; i < 3; i++ {
		got, err := m.MapRow(columns, Values{int64(i), "ignored"})
		require.NoError(t, err)
		assert.Equal(t, int64(i), got.ID)
	}

	assert.Equal(t, 1, logs.FilterMessage("discarding unmapped column").Len())
}

func TestMapRow_PassThroughToContainer(t *testing.T) {
	m := newMapper[Report](t, nil)
	columns := []ColumnDescriptor{
		{Name: "ID", ScanType: int64Type},
		{Name: "title", ScanType: stringType},
		{Name: "author_count", ScanType: int64Type},
		{Name: "created_at"},
	}

	got, err := m.MapRow(columns, Values{int64(3), "Q3", int64(2), nil})
	require.NoError(t, err)

	assert.Equal(t, int64(3), got.ID)
	assert.Equal(t, "Q3", got.Title)

	count, ok := got.Property("authorCount")
	require.True(t, ok)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, []string{"authorCount"}, got.PropertyNames(), "null columns are not passed through")
}

func TestMapRow_AccessorError(t *testing.T) {
	m := newMapper[fixtures.Sample](t, nil)

	_, err := m.MapRow(sampleColumns(), Values{int64(1)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ormerrors.ErrMapping))
}

func TestMapRow_Concurrent(t *testing.T) {
	m := newMapper[fixtures.Sample](t, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := m.MapRow(sampleColumns(), Values{
				int64(i), "text", "42", int64(0), int64(i), "1", "A", []byte("x"), "fixed",
			})
			assert.NoError(t, err)
			assert.Equal(t, int64(i), got.ID)
		}(i)
	}
	wg.Wait()
}

func TestShapeKey(t *testing.T) {
	a := []ColumnDescriptor{{Name: "id", ScanType: int64Type}, {Name: "s"}}
	b := []ColumnDescriptor{{Name: "id", ScanType: stringType}, {Name: "s"}}
	c := []ColumnDescriptor{{Name: "ids"}}

	assert.Equal(t, shapeKey(a), shapeKey([]ColumnDescriptor{{Name: "id", ScanType: int64Type}, {Name: "s"}}))
	assert.NotEqual(t, shapeKey(a), shapeKey(b))
	assert.NotEqual(t, shapeKey(a), shapeKey(c))
}
