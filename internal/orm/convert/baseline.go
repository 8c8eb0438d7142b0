package convert

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/conduit-lang/rowmap/internal/orm/ormerrors"
)

var (
	stringType  = reflect.TypeOf("")
	bytesType   = reflect.TypeOf([]byte(nil))
	boolType    = reflect.TypeOf(false)
	int64Type   = reflect.TypeOf(int64(0))
	float32Type = reflect.TypeOf(float32(0))
	float64Type = reflect.TypeOf(float64(0))
	timeType    = reflect.TypeOf(time.Time{})
	dateType    = reflect.TypeOf(Date{})
	uuidType    = reflect.TypeOf(uuid.UUID{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
	jsonMapType = reflect.TypeOf(map[string]interface{}(nil))

	integerTypes = []reflect.Type{
		reflect.TypeOf(int(0)),
		reflect.TypeOf(int8(0)),
		reflect.TypeOf(int16(0)),
		reflect.TypeOf(int32(0)),
		int64Type,
		reflect.TypeOf(uint(0)),
		reflect.TypeOf(uint8(0)),
		reflect.TypeOf(uint16(0)),
		reflect.TypeOf(uint32(0)),
		reflect.TypeOf(uint64(0)),
	}
)

func registerBaseline(r *Registry) {
	r.registerIntegers()
	r.registerFloats()
	r.registerText()
	r.registerDates()
	r.registerDecimals()
	r.registerUUIDs()
	r.registerJSON()
}

func overflow(v interface{}, to reflect.Type) error {
	return fmt.Errorf("%w: %v overflows %s", ormerrors.ErrInvalidArgument, v, to)
}

// integerConverter narrows or widens any integer kind into to, rejecting overflow.
func integerConverter(to reflect.Type) Converter {
	unsigned := classify(to) == classUint
	return func(value interface{}) (interface{}, error) {
		v := reflect.ValueOf(value)
		out := reflect.New(to).Elem()
		switch classify(v.Type()) {
		case classInt:
			i := v.Int()
			if unsigned {
				if i < 0 || out.OverflowUint(uint64(i)) {
					return nil, overflow(i, to)
				}
				out.SetUint(uint64(i))
			} else {
				if out.OverflowInt(i) {
					return nil, overflow(i, to)
				}
				out.SetInt(i)
			}
		case classUint:
			u := v.Uint()
			if unsigned {
				if out.OverflowUint(u) {
					return nil, overflow(u, to)
				}
				out.SetUint(u)
			} else {
				if u > math.MaxInt64 || out.OverflowInt(int64(u)) {
					return nil, overflow(u, to)
				}
				out.SetInt(int64(u))
			}
		default:
			return nil, fmt.Errorf("%T is not an integer", value)
		}
		return out.Interface(), nil
	}
}

func (r *Registry) registerIntegers() {
	for _, from := range integerTypes {
		for _, to := range integerTypes {
			if from != to {
				r.Register(from, to, integerConverter(to))
			}
		}
	}
}

func (r *Registry) registerFloats() {
	Register(r, func(f float32) (float64, error) { return float64(f), nil })
	Register(r, func(f float64) (float32, error) {
		if math.Abs(f) > math.MaxFloat32 && !math.IsInf(f, 0) {
			return 0, overflow(f, float32Type)
		}
		return float32(f), nil
	})
	Register(r, func(i int64) (float64, error) { return float64(i), nil })
	// drivers without a boolean type (sqlite) report 0/1
	Register(r, func(i int64) (bool, error) { return i != 0, nil })
	Register(r, func(b bool) (int64, error) {
		if b {
			return 1, nil
		}
		return 0, nil
	})
}

// registerText adds the numeric, boolean and byte conversions to and from string.
func (r *Registry) registerText() {
	for _, t := range integerTypes {
		t := t
		bits := t.Bits()
		unsigned := classify(t) == classUint
		r.Register(stringType, t, func(value interface{}) (interface{}, error) {
			s := strings.TrimSpace(value.(string))
			if s == "" {
				return nil, nil
			}
			out := reflect.New(t).Elem()
			if unsigned {
				u, err := strconv.ParseUint(s, 10, bits)
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ormerrors.ErrInvalidArgument, err)
				}
				out.SetUint(u)
			} else {
				i, err := strconv.ParseInt(s, 10, bits)
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ormerrors.ErrInvalidArgument, err)
				}
				out.SetInt(i)
			}
			return out.Interface(), nil
		})
		r.Register(t, stringType, func(value interface{}) (interface{}, error) {
			v := reflect.ValueOf(value)
			if unsigned {
				return strconv.FormatUint(v.Uint(), 10), nil
			}
			return strconv.FormatInt(v.Int(), 10), nil
		})
	}

	for _, t := range []reflect.Type{float32Type, float64Type} {
		t := t
		bits := t.Bits()
		r.Register(stringType, t, func(value interface{}) (interface{}, error) {
			s := strings.TrimSpace(value.(string))
			if s == "" {
				return nil, nil
			}
			f, err := strconv.ParseFloat(s, bits)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ormerrors.ErrInvalidArgument, err)
			}
			return reflect.ValueOf(f).Convert(t).Interface(), nil
		})
		r.Register(t, stringType, func(value interface{}) (interface{}, error) {
			return strconv.FormatFloat(reflect.ValueOf(value).Float(), 'f', -1, bits), nil
		})
	}

	r.Register(stringType, boolType, func(value interface{}) (interface{}, error) {
		s := strings.TrimSpace(value.(string))
		if s == "" {
			return nil, nil
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ormerrors.ErrInvalidArgument, err)
		}
		return b, nil
	})
	Register(r, func(b bool) (string, error) { return strconv.FormatBool(b), nil })

	Register(r, func(b []byte) (string, error) { return string(b), nil })
	Register(r, func(s string) ([]byte, error) { return []byte(s), nil })
}

func (r *Registry) registerDecimals() {
	r.Register(stringType, decimalType, func(value interface{}) (interface{}, error) {
		s := strings.TrimSpace(value.(string))
		if s == "" {
			return nil, nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ormerrors.ErrInvalidArgument, err)
		}
		return d, nil
	})
	Register(r, func(b []byte) (decimal.Decimal, error) {
		d, err := decimal.NewFromString(strings.TrimSpace(string(b)))
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("%w: %v", ormerrors.ErrInvalidArgument, err)
		}
		return d, nil
	})
	Register(r, func(i int64) (decimal.Decimal, error) { return decimal.NewFromInt(i), nil })
	Register(r, func(f float64) (decimal.Decimal, error) { return decimal.NewFromFloat(f), nil })
	Register(r, func(d decimal.Decimal) (string, error) { return d.String(), nil })
	Register(r, func(d decimal.Decimal) (int64, error) { return d.IntPart(), nil })
	Register(r, func(d decimal.Decimal) (float64, error) { return d.InexactFloat64(), nil })
	// epoch milliseconds
	Register(r, func(d decimal.Decimal) (time.Time, error) {
		return time.UnixMilli(d.IntPart()).UTC(), nil
	})
}

func (r *Registry) registerUUIDs() {
	Register(r, func(s string) (uuid.UUID, error) {
		id, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil {
			return uuid.Nil, fmt.Errorf("%w: %v", ormerrors.ErrInvalidArgument, err)
		}
		return id, nil
	})
	Register(r, func(b []byte) (uuid.UUID, error) {
		if len(b) == 16 {
			return uuid.FromBytes(b)
		}
		id, err := uuid.ParseBytes(b)
		if err != nil {
			return uuid.Nil, fmt.Errorf("%w: %v", ormerrors.ErrInvalidArgument, err)
		}
		return id, nil
	})
	Register(r, func(id uuid.UUID) (string, error) { return id.String(), nil })
}

func (r *Registry) registerJSON() {
	Register(r, func(b []byte) (map[string]interface{}, error) {
		var m map[string]interface{}
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, fmt.Errorf("%w: %v", ormerrors.ErrInvalidArgument, err)
		}
		return m, nil
	})
	Register(r, func(s string) (map[string]interface{}, error) {
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			return nil, fmt.Errorf("%w: %v", ormerrors.ErrInvalidArgument, err)
		}
		return m, nil
	})
	Register(r, func(m map[string]interface{}) ([]byte, error) { return json.Marshal(m) })
	Register(r, func(m map[string]interface{}) (string, error) {
		b, err := json.Marshal(m)
		if err != nil {
			return "", err
		}
		return string(b), nil
	})
}
