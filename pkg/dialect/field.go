package dialect

import (
	"fmt"
	"strconv"
	"strings"
)

// FieldType is one of the primitive wire types a message field can carry.
type FieldType uint8

const (
	TypeChar FieldType = iota
	TypeUint8
	TypeInt8
	TypeUint16
	TypeInt16
	TypeUint32
	TypeInt32
	TypeUint64
	TypeInt64
	TypeFloat
	TypeDouble
)

// Size returns the wire size of a single element in bytes.
func (t FieldType) Size() int {
	switch t {
	case TypeChar, TypeUint8, TypeInt8:
		return 1
	case TypeUint16, TypeInt16:
		return 2
	case TypeUint32, TypeInt32, TypeFloat:
		return 4
	default:
		return 8
	}
}

// String returns the dialect-XML spelling of the type. This spelling is also
// what the integrity seed hashes, so it must match the catalog exactly.
func (t FieldType) String() string {
	switch t {
	case TypeChar:
		return "char"
	case TypeUint8:
		return "uint8_t"
	case TypeInt8:
		return "int8_t"
	case TypeUint16:
		return "uint16_t"
	case TypeInt16:
		return "int16_t"
	case TypeUint32:
		return "uint32_t"
	case TypeInt32:
		return "int32_t"
	case TypeUint64:
		return "uint64_t"
	case TypeInt64:
		return "int64_t"
	case TypeFloat:
		return "float"
	default:
		return "double"
	}
}

// Field is one declared message field in wire order.
type Field struct {
	Name string
	Type FieldType

	// ArrayLen is 1 for scalars. Array records whether the declaration
	// carried an explicit [N] suffix, which affects seed hashing.
	ArrayLen int
	Array    bool

	// Extension marks fields declared after the <extensions/> separator.
	// They follow the sorted base layout unsorted and are excluded from
	// the integrity seed.
	Extension bool

	// Enum optionally names an enum this field's values come from.
	Enum string
}

// WireSize is the total size of the field on the wire.
func (f Field) WireSize() int { return f.Type.Size() * f.ArrayLen }

// parseFieldType parses a dialect type declaration such as "uint16_t" or
// "uint8_t[4]". The uint8_t_mavlink_version alias is folded into uint8_t,
// matching how the reference generators hash it.
func parseFieldType(decl string) (FieldType, int, bool, error) {
	base := decl
	arrayLen := 1
	isArray := false
	if i := strings.IndexByte(decl, '['); i >= 0 {
		j := strings.IndexByte(decl[i:], ']')
		if j < 0 {
			return 0, 0, false, fmt.Errorf("%w: %q", ErrMalformedArrayLen, decl)
		}
		n, err := strconv.Atoi(decl[i+1 : i+j])
		if err != nil {
			return 0, 0, false, fmt.Errorf("%w: %q", ErrMalformedArrayLen, decl)
		}
		if n < 1 {
			return 0, 0, false, fmt.Errorf("%w: %q", ErrZeroArrayLen, decl)
		}
		base, arrayLen, isArray = decl[:i], n, true
	}

	var t FieldType
	switch base {
	case "char":
		t = TypeChar
	case "uint8_t", "uint8_t_mavlink_version":
		t = TypeUint8
	case "int8_t":
		t = TypeInt8
	case "uint16_t":
		t = TypeUint16
	case "int16_t":
		t = TypeInt16
	case "uint32_t":
		t = TypeUint32
	case "int32_t":
		t = TypeInt32
	case "uint64_t":
		t = TypeUint64
	case "int64_t":
		t = TypeInt64
	case "float":
		t = TypeFloat
	case "double":
		t = TypeDouble
	default:
		return 0, 0, false, fmt.Errorf("%w: %q", ErrUnknownFieldType, decl)
	}
	return t, arrayLen, isArray, nil
}
