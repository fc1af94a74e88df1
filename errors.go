package entmeta

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors. Typed errors below match them with errors.Is.
var (
	// ErrEntityNotFound is returned when an entity cannot be found by name.
	ErrEntityNotFound = errors.New("entmeta: entity not found")

	// ErrPropertyNotFound is returned when a property cannot be found on an entity.
	ErrPropertyNotFound = errors.New("entmeta: property not found")

	// ErrFunctionNotFound is returned when an entity function cannot be found.
	ErrFunctionNotFound = errors.New("entmeta: function not found")

	// ErrRelationNotFound is returned when two entities are not related.
	ErrRelationNotFound = errors.New("entmeta: relation not found")

	// ErrDescriptor is returned when an entity declaration is invalid.
	ErrDescriptor = errors.New("entmeta: invalid entity descriptor")

	// ErrPropertyWrongUse is returned when a property is used in a context
	// it does not support.
	ErrPropertyWrongUse = errors.New("entmeta: property wrong use")

	// ErrTransformation is returned when a relation cannot be inherited,
	// reversed or adapted.
	ErrTransformation = errors.New("entmeta: transformation failed")

	// ErrSerialization is returned when a property value cannot be encoded or decoded.
	ErrSerialization = errors.New("entmeta: serialization failed")
)

// Lookup kinds used by NotFoundError.
const (
	KindEntity   = "entity"
	KindProperty = "property"
	KindFunction = "function"
	KindRelation = "relation"
)

// NotFoundError represents a failed lookup by name.
type NotFoundError struct {
	Kind   string // KindEntity, KindProperty, KindFunction or KindRelation
	Name   string // Name that was looked up
	Entity string // Owning entity, empty for entity lookups
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("entmeta: %s %q not found in entity %q", e.Kind, e.Name, e.Entity)
	}
	return fmt.Sprintf("entmeta: %s %q not found", e.Kind, e.Name)
}

// Is reports whether the target error is the sentinel for the lookup kind.
func (e *NotFoundError) Is(err error) bool {
	switch e.Kind {
	case KindEntity:
		return err == ErrEntityNotFound
	case KindProperty:
		return err == ErrPropertyNotFound
	case KindFunction:
		return err == ErrFunctionNotFound
	case KindRelation:
		return err == ErrRelationNotFound
	}
	return false
}

// NewEntityNotFoundError returns a NotFoundError for an entity.
func NewEntityNotFoundError(name string) *NotFoundError {
	return &NotFoundError{Kind: KindEntity, Name: name}
}

// NewPropertyNotFoundError returns a NotFoundError for a property of entity.
func NewPropertyNotFoundError(entity, name string) *NotFoundError {
	return &NotFoundError{Kind: KindProperty, Name: name, Entity: entity}
}

// NewFunctionNotFoundError returns a NotFoundError for a function of entity.
func NewFunctionNotFoundError(entity, name string) *NotFoundError {
	return &NotFoundError{Kind: KindFunction, Name: name, Entity: entity}
}

// NewRelationNotFoundError returns a NotFoundError for a relation from entity to name.
func NewRelationNotFoundError(entity, name string) *NotFoundError {
	return &NotFoundError{Kind: KindRelation, Name: name, Entity: entity}
}

// IsNotFound returns true if the error is a NotFoundError of any kind.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e)
}

// DescriptorError represents an invalid entity declaration: a redefinition,
// a mutation outside the building state or a missing primary key.
type DescriptorError struct {
	Entity  string
	Message string
	Cause   error
}

// Error returns the error string.
func (e *DescriptorError) Error() string {
	var sb strings.Builder
	sb.WriteString("entmeta: descriptor")
	if e.Entity != "" {
		fmt.Fprintf(&sb, " of entity %q", e.Entity)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying error.
func (e *DescriptorError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error is ErrDescriptor.
func (e *DescriptorError) Is(err error) bool {
	return err == ErrDescriptor
}

// NewDescriptorError returns a new DescriptorError.
func NewDescriptorError(entity, format string, args ...any) *DescriptorError {
	return &DescriptorError{Entity: entity, Message: fmt.Sprintf(format, args...)}
}

// WrapDescriptorError returns a new DescriptorError with a cause.
func WrapDescriptorError(entity, message string, cause error) *DescriptorError {
	return &DescriptorError{Entity: entity, Message: message, Cause: cause}
}

// IsDescriptorError returns true if the error is a DescriptorError.
func IsDescriptorError(err error) bool {
	if err == nil {
		return false
	}
	var e *DescriptorError
	return errors.As(err, &e)
}

// PropertyWrongUseError is returned when a property appears in a usage
// context that its flags forbid, or when a virtual property handler
// reports that it did not handle the context.
type PropertyWrongUseError struct {
	Entity   string
	Property string
	Context  string
}

// Error returns the error string.
func (e *PropertyWrongUseError) Error() string {
	return fmt.Sprintf("entmeta: property %q of entity %q cannot be used in %s context", e.Property, e.Entity, e.Context)
}

// Is reports whether the target error is ErrPropertyWrongUse.
func (e *PropertyWrongUseError) Is(err error) bool {
	return err == ErrPropertyWrongUse
}

// NewPropertyWrongUseError returns a new PropertyWrongUseError.
func NewPropertyWrongUseError(entity, property, context string) *PropertyWrongUseError {
	return &PropertyWrongUseError{Entity: entity, Property: property, Context: context}
}

// IsPropertyWrongUse returns true if the error is a PropertyWrongUseError.
func IsPropertyWrongUse(err error) bool {
	if err == nil {
		return false
	}
	var e *PropertyWrongUseError
	return errors.As(err, &e)
}

// TransformationError is returned when a relation cannot be inherited,
// reversed or adapted to a derived entity.
type TransformationError struct {
	Message      string
	Entities     []string // Entities involved, in traversal order
	RelationType string   // Offending relation type, if any
	Query        string   // Offending query text, if any
	Cause        error
}

// Error returns the error string.
func (e *TransformationError) Error() string {
	var sb strings.Builder
	sb.WriteString("entmeta: transformation")
	if len(e.Entities) > 0 {
		fmt.Fprintf(&sb, " (%s)", strings.Join(e.Entities, " -> "))
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.RelationType != "" {
		fmt.Fprintf(&sb, " [relation %s]", e.RelationType)
	}
	if e.Query != "" {
		fmt.Fprintf(&sb, " [query %s]", e.Query)
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying error.
func (e *TransformationError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error is ErrTransformation.
func (e *TransformationError) Is(err error) bool {
	return err == ErrTransformation
}

// NewTransformationError returns a new TransformationError.
func NewTransformationError(message string, entities ...string) *TransformationError {
	return &TransformationError{Message: message, Entities: entities}
}

// IsTransformationError returns true if the error is a TransformationError.
func IsTransformationError(err error) bool {
	if err == nil {
		return false
	}
	var e *TransformationError
	return errors.As(err, &e)
}

// SerializationError wraps a failure to encode or decode a property value.
type SerializationError struct {
	Property string
	Cause    error
}

// Error returns the error string.
func (e *SerializationError) Error() string {
	return fmt.Sprintf("entmeta: serialize property %q: %v", e.Property, e.Cause)
}

// Unwrap returns the underlying error.
func (e *SerializationError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error is ErrSerialization.
func (e *SerializationError) Is(err error) bool {
	return err == ErrSerialization
}

// NewSerializationError returns a new SerializationError.
func NewSerializationError(property string, cause error) *SerializationError {
	return &SerializationError{Property: property, Cause: cause}
}

// IsSerializationError returns true if the error is a SerializationError.
func IsSerializationError(err error) bool {
	if err == nil {
		return false
	}
	var e *SerializationError
	return errors.As(err, &e)
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "entmeta: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("entmeta: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}
