package params

import (
	"fmt"
	"strings"
)

// Kind enumerates the value types a schema field can coerce into.
type Kind int

const (
	KindString Kind = iota
	KindInteger
	KindFloat
	KindBool
	KindDate
	KindDateTime
	KindArray
	KindObject
	KindCollection
)

var kindNames = map[Kind]string{
	KindString:     "string",
	KindInteger:    "integer",
	KindFloat:      "float",
	KindBool:       "bool",
	KindDate:       "date",
	KindDateTime:   "datetime",
	KindArray:      "array",
	KindObject:     "object",
	KindCollection: "collection",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a textual type name onto a Kind. Common aliases such as
// "boolean", "int" and "number" are accepted.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "string", "text", "":
		return KindString, nil
	case "integer", "int":
		return KindInteger, nil
	case "float", "number", "decimal":
		return KindFloat, nil
	case "bool", "boolean":
		return KindBool, nil
	case "date":
		return KindDate, nil
	case "datetime", "date-time", "time":
		return KindDateTime, nil
	case "array":
		return KindArray, nil
	default:
		return KindString, fmt.Errorf("params: unknown kind %q", name)
	}
}

func (k Kind) scalar() bool {
	switch k {
	case KindArray, KindObject, KindCollection:
		return false
	default:
		return true
	}
}
