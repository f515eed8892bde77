package schema

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fraiseql/fraiseql-engine/internal/ferr"
)

// yamlFieldType is the declarative field-type shorthand accepted in a YAML
// schema document: a bare name ("String", "Post") for a scalar or named
// reference, "[Type]" for a list, and a trailing "!" for non-null, e.g.
// "[Comment!]!".
type yamlFieldType string

var scalarNames = map[string]ScalarKind{
	"ID": ScalarID, "String": ScalarString, "Int": ScalarInt,
	"Float": ScalarFloat, "Boolean": ScalarBoolean, "JSON": ScalarJSON,
}

func parseFieldType(t yamlFieldType) FieldType {
	s := string(t)
	nonNull := false
	if len(s) > 0 && s[len(s)-1] == '!' {
		nonNull = true
		s = s[:len(s)-1]
	}

	var inner FieldType
	if len(s) >= 2 && s[0] == '[' && s[len(s)-1] == ']' {
		elem := parseFieldType(yamlFieldType(s[1 : len(s)-1]))
		inner = FieldType{Kind: KindList, Of: &elem}
	} else if kind, ok := scalarNames[s]; ok {
		inner = FieldType{Kind: KindScalar, Scalar: kind}
	} else {
		inner = FieldType{Kind: KindObject, Name: s}
	}

	if nonNull {
		return FieldType{Kind: KindNonNull, Of: &inner}
	}
	return inner
}

type yamlField struct {
	Name string        `yaml:"name"`
	Type yamlFieldType `yaml:"type"`
}

func (f yamlField) toField() Field {
	return Field{Name: f.Name, Type: parseFieldType(f.Type)}
}

type yamlObject struct {
	Name           string      `yaml:"name"`
	View           string      `yaml:"view"`
	DataColumn     string      `yaml:"data_column"`
	ProjectionHint string      `yaml:"projection_hint"`
	Implements     []string    `yaml:"implements"`
	Fields         []yamlField `yaml:"fields"`
}

type yamlEnum struct {
	Name   string   `yaml:"name"`
	Values []string `yaml:"values"`
}

type yamlInput struct {
	Name   string      `yaml:"name"`
	Fields []yamlField `yaml:"fields"`
}

type yamlInterface struct {
	Name   string      `yaml:"name"`
	Fields []yamlField `yaml:"fields"`
}

type yamlUnion struct {
	Name    string   `yaml:"name"`
	Members []string `yaml:"members"`
}

type yamlOperation struct {
	Kind       string `yaml:"kind"`
	Name       string `yaml:"name"`
	ReturnType string `yaml:"return_type"`
}

// yamlDocument is the top-level shape of a declarative schema file: named
// object/enum/input/interface/union types plus root operations, the same
// registry schema.Schema holds but expressed for hand-authored config
// rather than built programmatically from a parsed GraphQL document.
type yamlDocument struct {
	Objects    []yamlObject    `yaml:"objects"`
	Enums      []yamlEnum      `yaml:"enums"`
	Inputs     []yamlInput     `yaml:"inputs"`
	Interfaces []yamlInterface `yaml:"interfaces"`
	Unions     []yamlUnion     `yaml:"unions"`
	Operations []yamlOperation `yaml:"operations"`
}

func parseOperationKind(s string) (OperationKind, error) {
	switch s {
	case "query":
		return OpQuery, nil
	case "mutation":
		return OpMutation, nil
	case "subscription":
		return OpSubscription, nil
	default:
		return 0, ferr.Validation("unknown operation kind %q", s)
	}
}

// LoadYAML parses a declarative YAML schema document into a Schema.
func LoadYAML(data []byte) (*Schema, error) {
	var doc yamlDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, ferr.Parse("invalid schema YAML: %v", err)
	}

	s := New()

	for _, o := range doc.Objects {
		obj := &ObjectType{
			Name: o.Name, View: o.View, DataColumn: o.DataColumn,
			ProjectionHint: o.ProjectionHint, Implements: o.Implements,
		}
		for _, f := range o.Fields {
			obj.Fields = append(obj.Fields, f.toField())
		}
		s.Objects[o.Name] = obj
	}
	for _, e := range doc.Enums {
		s.Enums[e.Name] = &EnumType{Name: e.Name, Values: e.Values}
	}
	for _, in := range doc.Inputs {
		input := &InputType{Name: in.Name}
		for _, f := range in.Fields {
			input.Fields = append(input.Fields, f.toField())
		}
		s.Inputs[in.Name] = input
	}
	for _, i := range doc.Interfaces {
		iface := &InterfaceType{Name: i.Name}
		for _, f := range i.Fields {
			iface.Fields = append(iface.Fields, f.toField())
		}
		s.Interfaces[i.Name] = iface
	}
	for _, u := range doc.Unions {
		s.Unions[u.Name] = &UnionType{Name: u.Name, Members: u.Members}
	}
	for _, op := range doc.Operations {
		kind, err := parseOperationKind(op.Kind)
		if err != nil {
			return nil, err
		}
		s.Operations = append(s.Operations, Operation{Kind: kind, Name: op.Name, ReturnType: op.ReturnType})
	}

	return s, nil
}

// LoadYAMLFile reads and parses a declarative YAML schema document from
// path.
func LoadYAMLFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ferr.Parse("reading schema file %q: %v", path, err)
	}
	return LoadYAML(data)
}
