package mapping

import (
	"database/sql"
	"reflect"
	"time"
)

var nullableScanTypes = map[reflect.Type]reflect.Type{
	reflect.TypeOf(sql.NullString{}):  reflect.TypeOf(""),
	reflect.TypeOf(sql.NullInt64{}):   reflect.TypeOf(int64(0)),
	reflect.TypeOf(sql.NullInt32{}):   reflect.TypeOf(int32(0)),
	reflect.TypeOf(sql.NullInt16{}):   reflect.TypeOf(int16(0)),
	reflect.TypeOf(sql.NullByte{}):    reflect.TypeOf(byte(0)),
	reflect.TypeOf(sql.NullFloat64{}): reflect.TypeOf(float64(0)),
	reflect.TypeOf(sql.NullBool{}):    reflect.TypeOf(false),
	reflect.TypeOf(sql.NullTime{}):    reflect.TypeOf(time.Time{}),
	reflect.TypeOf(sql.RawBytes{}):    reflect.TypeOf([]byte(nil)),
}

// DescribeRows reads the column descriptors of a result set. Nullable wrapper
// scan types are reported as the type they wrap.
func DescribeRows(rows *sql.Rows) ([]ColumnDescriptor, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	columns := make([]ColumnDescriptor, len(types))
	for i, ct := range types {
		scanType := ct.ScanType()
		if unwrapped, ok := nullableScanTypes[scanType]; ok {
			scanType = unwrapped
		}
		if scanType != nil && scanType.Kind() == reflect.Interface {
			scanType = nil
		}
		columns[i] = ColumnDescriptor{
			Name:         ct.Name(),
			ScanType:     scanType,
			DatabaseType: ct.DatabaseTypeName(),
		}
	}
	return columns, nil
}

// ScanAll maps every remaining row of rows. The caller closes rows.
func (m *RowMapper[T]) ScanAll(rows *sql.Rows) ([]*T, error) {
	columns, err := DescribeRows(rows)
	if err != nil {
		return nil, err
	}

	var results []*T
	for rows.Next() {
		entity, err := m.scanRow(rows, columns)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// ScanOne maps the first row of rows, returning sql.ErrNoRows when there is none.
// The caller closes rows.
func (m *RowMapper[T]) ScanOne(rows *sql.Rows) (*T, error) {
	columns, err := DescribeRows(rows)
	if err != nil {
		return nil, err
	}

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}
	return m.scanRow(rows, columns)
}

func (m *RowMapper[T]) scanRow(rows *sql.Rows, columns []ColumnDescriptor) (*T, error) {
	values := make(Values, len(columns))
	valuePtrs := make([]interface{}, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	if err := rows.Scan(valuePtrs...); err != nil {
		return nil, err
	}
	return m.MapRow(columns, values)
}
