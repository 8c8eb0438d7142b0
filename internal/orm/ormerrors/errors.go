// Package ormerrors defines the error taxonomy shared by the mapping engine.
// Every fatal condition identifies the entity type, the property or column involved
// and either the offending value or both entity states.
package ormerrors

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/davecgh/go-spew/spew"
)

// Sentinel errors. Typed errors below match them through errors.Is.
var (
	// ErrConfiguration is returned when a schema cannot be derived from a type
	ErrConfiguration = errors.New("configuration error")

	// ErrConversion is returned when a value cannot be converted between types
	ErrConversion = errors.New("conversion error")

	// ErrInvalidArgument marks conversions whose input can never be interpreted
	// (unknown enum member, unparseable date). It is never retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAccess is returned when a property cannot be read or written
	ErrAccess = errors.New("property access error")

	// ErrQueryConstruction is returned when change scanning or parameter building fails
	ErrQueryConstruction = errors.New("query construction error")

	// ErrMapping is returned when a result row cannot be materialized
	ErrMapping = errors.New("row mapping error")

	// ErrCopy is returned when an entity merge fails
	ErrCopy = errors.New("entity copy error")
)

// dumper renders entity states without pointer addresses so messages are stable.
var dumper = spew.ConfigState{
	Indent:                  " ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Dump renders a value for diagnostics.
func Dump(v interface{}) string {
	if v == nil {
		return "<nil>"
	}
	return dumper.Sprintf("%+v", v)
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// ConfigurationError reports a type whose schema cannot be derived.
type ConfigurationError struct {
	Type     reflect.Type
	Property string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	if e.Property == "" {
		return fmt.Sprintf("configuration error in %s: %s", typeName(e.Type), e.Reason)
	}
	return fmt.Sprintf("configuration error in %s.%s: %s", typeName(e.Type), e.Property, e.Reason)
}

// Is implements errors.Is
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// ConversionError reports a value that could not be converted from one type to another.
type ConversionError struct {
	From  reflect.Type
	To    reflect.Type
	Value interface{}
	Err   error
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("cannot convert %v (%s) to %s", e.Value, typeName(e.From), typeName(e.To))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *ConversionError) Unwrap() error { return e.Err }

// Is implements errors.Is
func (e *ConversionError) Is(target error) bool { return target == ErrConversion }

// AccessError reports a failed read or write of a property.
type AccessError struct {
	Type     reflect.Type
	Property string
	Op       string
	Err      error
}

func (e *AccessError) Error() string {
	msg := fmt.Sprintf("cannot %s property %s.%s", e.Op, typeName(e.Type), e.Property)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *AccessError) Unwrap() error { return e.Err }

// Is implements errors.Is
func (e *AccessError) Is(target error) bool { return target == ErrAccess }

// QueryConstructionError reports a failure while scanning for changes or building
// statement parameters. Both entity states are kept for diagnosis.
type QueryConstructionError struct {
	Type     reflect.Type
	Property string
	Existing interface{}
	Updated  interface{}
	Err      error
}

func (e *QueryConstructionError) Error() string {
	return fmt.Sprintf(
		"error generating assignments for %s.%s: %v\n\texisting: %s\n\tupdated: %s",
		typeName(e.Type), e.Property, e.Err, Dump(e.Existing), Dump(e.Updated),
	)
}

// Unwrap returns the underlying cause
func (e *QueryConstructionError) Unwrap() error { return e.Err }

// Is implements errors.Is
func (e *QueryConstructionError) Is(target error) bool { return target == ErrQueryConstruction }

// MappingError reports a result-row value that could not be written into an entity.
type MappingError struct {
	Type   reflect.Type
	Column string
	Value  interface{}
	Err    error
}

func (e *MappingError) Error() string {
	var valueType reflect.Type
	if e.Value != nil {
		valueType = reflect.TypeOf(e.Value)
	}
	return fmt.Sprintf("error setting member value on %s.%s = %v (%s): %v",
		typeName(e.Type), e.Column, e.Value, typeName(valueType), e.Err)
}

// Unwrap returns the underlying cause
func (e *MappingError) Unwrap() error { return e.Err }

// Is implements errors.Is
func (e *MappingError) Is(target error) bool { return target == ErrMapping }

// CopyError reports a failed entity merge.
type CopyError struct {
	Type     reflect.Type
	Property string
	Err      error
}

func (e *CopyError) Error() string {
	return fmt.Sprintf("can't copy entity %s (property %s): %v", typeName(e.Type), e.Property, e.Err)
}

// Unwrap returns the underlying cause
func (e *CopyError) Unwrap() error { return e.Err }

// Is implements errors.Is
func (e *CopyError) Is(target error) bool { return target == ErrCopy }

// IsConfiguration returns true if err is a configuration error
func IsConfiguration(err error) bool { return errors.Is(err, ErrConfiguration) }

// IsConversion returns true if err is a conversion error
func IsConversion(err error) bool { return errors.Is(err, ErrConversion) }

// IsInvalidArgument returns true if err carries ErrInvalidArgument
func IsInvalidArgument(err error) bool { return errors.Is(err, ErrInvalidArgument) }

// IsAccess returns true if err is an access error
func IsAccess(err error) bool { return errors.Is(err, ErrAccess) }
