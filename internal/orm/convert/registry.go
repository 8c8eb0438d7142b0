// Package convert holds the converter table used to coerce values between driver
// types and entity property types, in both directions.
//
// Resolution order for Lookup(from, to):
//  1. identity when from == to, or when from is assignable to an interface target
//  2. registered enum target, dispatching on the source kind
//  3. exact registered pair
//  4. most specific assignable registered pair (memoized under the exact pair)
//  5. same-kind named types (string -> type Status string)
//  6. render to text when the target is string-like
package convert

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/conduit-lang/rowmap/internal/orm/ormerrors"
)

// Converter is a pure function from one type to another. A nil result means null.
type Converter func(value interface{}) (interface{}, error)

type pair struct {
	from reflect.Type
	to   reflect.Type
}

type entry struct {
	pair
	conv Converter
}

// Identity returns its input unchanged
func Identity(value interface{}) (interface{}, error) { return value, nil }

// Registry is a table of converters keyed by (source, target) type pairs.
// Reads are concurrent; writes (registration, memoized fallbacks, enum tables)
// take the write lock. Entries are never evicted.
type Registry struct {
	mu      sync.RWMutex
	exact   map[pair]Converter
	entries []entry
	enums   map[reflect.Type]*EnumTable
	layouts []string
	logger  *zap.Logger
}

// Option configures a Registry
type Option func(*Registry)

// WithLogger sets the logger used for fallback and lookup warnings
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithDateLayouts replaces the ordered list of date layouts. The first layout is
// also the canonical output format.
func WithDateLayouts(layouts ...string) Option {
	return func(r *Registry) {
		if len(layouts) > 0 {
			r.layouts = append([]string(nil), layouts...)
		}
	}
}

// NewRegistry creates a registry pre-populated with the baseline conversions
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		exact:   make(map[pair]Converter),
		enums:   make(map[reflect.Type]*EnumTable),
		layouts: append([]string(nil), DefaultDateLayouts...),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	registerBaseline(r)
	return r
}

// DateLayouts returns the ordered date layouts in use
func (r *Registry) DateLayouts() []string {
	return append([]string(nil), r.layouts...)
}

// Register adds or replaces the converter for the exact (from, to) pair
func (r *Registry) Register(from, to reflect.Type, conv Converter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := pair{from: from, to: to}
	if _, exists := r.exact[p]; !exists {
		r.entries = append(r.entries, entry{pair: p, conv: conv})
	} else {
		for i := range r.entries {
			if r.entries[i].pair == p {
				r.entries[i].conv = conv
			}
		}
	}
	r.exact[p] = conv
}

// Register adds a typed converter function for the pair (S, T)
func Register[S, T any](r *Registry, fn func(S) (T, error)) {
	from, to := reflect.TypeFor[S](), reflect.TypeFor[T]()
	r.Register(from, to, func(value interface{}) (interface{}, error) {
		s, ok := value.(S)
		if !ok {
			rv := reflect.ValueOf(value)
			if !rv.IsValid() || !rv.Type().ConvertibleTo(from) {
				return nil, fmt.Errorf("converter %s -> %s received %T", from, to, value)
			}
			s = rv.Convert(from).Interface().(S)
		}
		return fn(s)
	})
}

// Lookup resolves the converter for (from, to)
func (r *Registry) Lookup(from, to reflect.Type) (Converter, bool) {
	if from == nil || to == nil {
		return nil, false
	}
	if from == to || (to.Kind() == reflect.Interface && from.Implements(to)) {
		return Identity, true
	}

	if table := r.enumTable(to); table != nil {
		return table.converterFrom(from), true
	}

	r.mu.RLock()
	conv, ok := r.exact[pair{from: from, to: to}]
	r.mu.RUnlock()
	if ok {
		return conv, true
	}

	if conv, ok := r.fallback(from, to); ok {
		return conv, true
	}

	if conv, ok := sameKindConverter(from, to); ok {
		return conv, true
	}

	if to.Kind() == reflect.String {
		return textConverter(to), true
	}

	return nil, false
}

// fallback finds the most specific registered pair whose source accepts from and
// whose target is assignable to to. Exact source beats interface source, exact
// target beats interface target, earlier registration breaks remaining ties.
func (r *Registry) fallback(from, to reflect.Type) (Converter, bool) {
	r.mu.RLock()
	best := -1
	bestScore := 3
	for i, e := range r.entries {
		if !from.AssignableTo(e.from) || !e.to.AssignableTo(to) {
			continue
		}
		score := 0
		if e.from != from {
			score++
		}
		if e.to != to {
			score++
		}
		if score < bestScore {
			best, bestScore = i, score
		}
	}
	var found entry
	if best >= 0 {
		found = r.entries[best]
	}
	r.mu.RUnlock()

	if best < 0 {
		return nil, false
	}

	r.mu.Lock()
	r.exact[pair{from: from, to: to}] = found.conv
	r.mu.Unlock()

	r.logger.Warn("converter mapping added",
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.String("via", fmt.Sprintf("%s -> %s", found.from, found.to)),
	)
	return found.conv, true
}

// Convert converts value to type to. A nil value converts to nil.
func (r *Registry) Convert(value interface{}, to reflect.Type) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	from := reflect.TypeOf(value)
	conv, ok := r.Lookup(from, to)
	if !ok {
		return nil, &ormerrors.ConversionError{From: from, To: to, Value: value, Err: fmt.Errorf("no converter registered")}
	}
	return apply(conv, value, to)
}

// apply runs conv, wrapping failures as conversion errors.
func apply(conv Converter, value interface{}, to reflect.Type) (interface{}, error) {
	out, err := conv(value)
	if err != nil {
		if ormerrors.IsConversion(err) {
			return nil, err
		}
		return nil, &ormerrors.ConversionError{From: reflect.TypeOf(value), To: to, Value: value, Err: err}
	}
	return out, nil
}

// Apply runs a resolved converter with the same error wrapping as Convert
func Apply(conv Converter, value interface{}, to reflect.Type) (interface{}, error) {
	return apply(conv, value, to)
}

func textConverter(to reflect.Type) Converter {
	return func(value interface{}) (interface{}, error) {
		if value == nil {
			return nil, nil
		}
		s := fmt.Sprint(value)
		return reflect.ValueOf(s).Convert(to).Interface(), nil
	}
}

type kindClass int

const (
	classOther kindClass = iota
	classInt
	classUint
	classFloat
	classString
	classBool
	classBytes
)

func classify(t reflect.Type) kindClass {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return classInt
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return classUint
	case reflect.Float32, reflect.Float64:
		return classFloat
	case reflect.String:
		return classString
	case reflect.Bool:
		return classBool
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return classBytes
		}
	}
	return classOther
}

// sameKindConverter handles named types over the same basic kind, e.g. a
// driver string into `type Status string`, with overflow checks for integers.
func sameKindConverter(from, to reflect.Type) (Converter, bool) {
	class := classify(from)
	if class == classOther || class != classify(to) || !from.ConvertibleTo(to) {
		return nil, false
	}
	return func(value interface{}) (interface{}, error) {
		v := reflect.ValueOf(value)
		out := reflect.New(to).Elem()
		switch class {
		case classInt:
			if out.OverflowInt(v.Int()) {
				return nil, fmt.Errorf("%w: %d overflows %s", ormerrors.ErrInvalidArgument, v.Int(), to)
			}
		case classUint:
			if out.OverflowUint(v.Uint()) {
				return nil, fmt.Errorf("%w: %d overflows %s", ormerrors.ErrInvalidArgument, v.Uint(), to)
			}
		case classFloat:
			if out.OverflowFloat(v.Float()) {
				return nil, fmt.Errorf("%w: %g overflows %s", ormerrors.ErrInvalidArgument, v.Float(), to)
			}
		}
		return v.Convert(to).Interface(), nil
	}, true
}
