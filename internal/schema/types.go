// Package schema holds the compiled schema model and the type-dependency
// graph derived from it. Within this module it is used by the
// cmd/fraiseql depgraph command; the filter compiler, aggregate planner
// and database adapter do not import it.
package schema

import "fmt"

// ScalarKind enumerates the closed set of built-in scalar types.
type ScalarKind int

const (
	ScalarID ScalarKind = iota
	ScalarString
	ScalarInt
	ScalarFloat
	ScalarBoolean
	ScalarJSON
)

func (k ScalarKind) String() string {
	switch k {
	case ScalarID:
		return "ID"
	case ScalarString:
		return "String"
	case ScalarInt:
		return "Int"
	case ScalarFloat:
		return "Float"
	case ScalarBoolean:
		return "Boolean"
	case ScalarJSON:
		return "JSON"
	default:
		return "Unknown"
	}
}

// FieldTypeKind tags the variant held by a FieldType.
type FieldTypeKind int

const (
	KindScalar FieldTypeKind = iota
	KindObject
	KindEnum
	KindInput
	KindInterface
	KindUnion
	KindList
	KindNonNull
)

// FieldType is a recursive sum type: a scalar, a reference to a named
// object/enum/input/interface/union type, or a List/NonNull wrapper around
// another FieldType. List and NonNull carry their inner type via Of.
type FieldType struct {
	Kind   FieldTypeKind
	Scalar ScalarKind // valid when Kind == KindScalar
	Name   string     // valid when Kind is Object/Enum/Input/Interface/Union
	Of     *FieldType // valid when Kind is List/NonNull
}

// TypeName returns the referenced named type, unwrapping List/NonNull
// layers. It returns "" for a bare scalar.
func (ft FieldType) TypeName() string {
	switch ft.Kind {
	case KindObject, KindEnum, KindInput, KindInterface, KindUnion:
		return ft.Name
	case KindList, KindNonNull:
		if ft.Of == nil {
			return ""
		}
		return ft.Of.TypeName()
	default:
		return ""
	}
}

// IsScalar reports whether the type, after unwrapping List/NonNull, is a
// scalar.
func (ft FieldType) IsScalar() bool {
	switch ft.Kind {
	case KindScalar:
		return true
	case KindList, KindNonNull:
		if ft.Of == nil {
			return false
		}
		return ft.Of.IsScalar()
	default:
		return false
	}
}

// Field is a single field of an object/input/interface type.
type Field struct {
	Name string
	Type FieldType
}

// ObjectType is a GraphQL object type backed by a JSONB view.
type ObjectType struct {
	Name           string
	Fields         []Field
	View           string // declared view/source name
	DataColumn     string // JSONB column holding row data, default "data"
	ProjectionHint string // optional SQL projection template
	Implements     []string
}

// EnumType is a closed set of named values.
type EnumType struct {
	Name   string
	Values []string
}

// InputType is an input object type.
type InputType struct {
	Name   string
	Fields []Field
}

// InterfaceType declares a set of fields that implementing objects provide.
type InterfaceType struct {
	Name   string
	Fields []Field
}

// UnionType is a named set of possible object types.
type UnionType struct {
	Name    string
	Members []string
}

// OperationKind distinguishes Query/Mutation/Subscription root operations.
type OperationKind int

const (
	OpQuery OperationKind = iota
	OpMutation
	OpSubscription
)

func (k OperationKind) RootName() string {
	switch k {
	case OpQuery:
		return "Query"
	case OpMutation:
		return "Mutation"
	case OpSubscription:
		return "Subscription"
	default:
		return ""
	}
}

// Operation is a named query/mutation/subscription with a return type.
type Operation struct {
	Kind       OperationKind
	Name       string
	ReturnType string
}

// Schema is the compiled registry of all declared types and operations.
type Schema struct {
	Objects    map[string]*ObjectType
	Enums      map[string]*EnumType
	Inputs     map[string]*InputType
	Interfaces map[string]*InterfaceType
	Unions     map[string]*UnionType
	Operations []Operation
}

// New returns an empty, ready-to-populate Schema.
func New() *Schema {
	return &Schema{
		Objects:    map[string]*ObjectType{},
		Enums:      map[string]*EnumType{},
		Inputs:     map[string]*InputType{},
		Interfaces: map[string]*InterfaceType{},
		Unions:     map[string]*UnionType{},
	}
}

// HasType reports whether name resolves to any declared type.
func (s *Schema) HasType(name string) bool {
	if _, ok := s.Objects[name]; ok {
		return true
	}
	if _, ok := s.Enums[name]; ok {
		return true
	}
	if _, ok := s.Inputs[name]; ok {
		return true
	}
	if _, ok := s.Interfaces[name]; ok {
		return true
	}
	if _, ok := s.Unions[name]; ok {
		return true
	}
	return false
}

// Validate checks the invariants from the data model: every referenced
// type name resolves, implements lists reference declared interfaces, and
// union members reference declared object types.
func (s *Schema) Validate() error {
	for name, obj := range s.Objects {
		for _, f := range obj.Fields {
			if tn := f.Type.TypeName(); tn != "" && !s.HasType(tn) {
				return fmt.Errorf("object %s: field %s references unknown type %s", name, f.Name, tn)
			}
		}
		for _, iface := range obj.Implements {
			if _, ok := s.Interfaces[iface]; !ok {
				return fmt.Errorf("object %s: implements unknown interface %s", name, iface)
			}
		}
	}
	for name, in := range s.Inputs {
		for _, f := range in.Fields {
			if tn := f.Type.TypeName(); tn != "" && !s.HasType(tn) {
				return fmt.Errorf("input %s: field %s references unknown type %s", name, f.Name, tn)
			}
		}
	}
	for name, u := range s.Unions {
		for _, m := range u.Members {
			if _, ok := s.Objects[m]; !ok {
				return fmt.Errorf("union %s: member %s is not a declared object type", name, m)
			}
		}
	}
	for _, op := range s.Operations {
		if !s.HasType(op.ReturnType) {
			return fmt.Errorf("operation %s: return type %s unknown", op.Name, op.ReturnType)
		}
	}
	return nil
}
