package generator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Endianness of a primitive field's byte order on the wire. Widths of
// eight bits or fewer fit in a single byte and are always Big.
type Endianness int

const (
	Big Endianness = iota
	Little
)

//
// Type system
//

// Type classifies a field's declared type text.
type Type interface {
	isType()
}

// Primitive is any type of the form u<bits>[be|le], e.g. u8, u21be.
type Primitive struct {
	Name   string
	Bits   int
	Endian Endianness
}

// Vector is any type of the form Vec<T>.
type Vector struct {
	Inner Type
}

// Misc is any named type which is neither a primitive nor a vector. It
// must carry #[construct_with] so its layout is known without type
// information.
type Misc struct {
	Name string
}

func (Primitive) isType() {}
func (Vector) isType()    {}
func (Misc) isType()      {}

var primitiveRe = regexp.MustCompile(`^u([0-9]+)(be|le)?$`)

// parsePrimitive matches a type name of the form `u([0-9]+)(be|le)?` and
// returns its width and endianness. The endianness defaults to Big when
// the suffix is absent; widths of 1..=8 are Big regardless of suffix.
func parsePrimitive(name string) (int, Endianness, bool) {
	m := primitiveRe.FindStringSubmatch(name)
	if m == nil {
		return 0, Big, false
	}
	bits, err := strconv.Atoi(m[1])
	if err != nil || bits < 1 || bits > 64 {
		return 0, Big, false
	}
	endian := Big
	if m[2] == "le" && bits > 8 {
		endian = Little
	}
	return bits, endian, true
}

// makeType classifies raw type text into a Type. Reference types are
// rejected outright; vectors recurse on their element type.
func makeType(text string) (Type, error) {
	if bits, endian, ok := parsePrimitive(text); ok {
		return Primitive{Name: text, Bits: bits, Endian: endian}, nil
	}
	if strings.HasPrefix(text, "Vec<") && strings.HasSuffix(text, ">") {
		inner, err := makeType(text[4 : len(text)-1])
		if err != nil {
			return nil, err
		}
		return Vector{Inner: inner}, nil
	}
	if strings.HasPrefix(text, "&") {
		return nil, fmt.Errorf("invalid type: %s", text)
	}
	return Misc{Name: text}, nil
}
