package generator

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrimitive(t *testing.T) {
	tests := []struct {
		ty     string
		bits   int
		endian Endianness
		ok     bool
	}{
		{"u8", 8, Big, true},
		{"u21be", 21, Big, true},
		{"u21le", 21, Little, true},
		{"u1", 1, Big, true},
		{"u64", 64, Big, true},
		{"u64le", 64, Little, true},
		// widths of one byte or less are big endian regardless of suffix
		{"u4le", 4, Big, true},
		{"u8le", 8, Big, true},
		{"uable", 0, Big, false},
		{"u21re", 0, Big, false},
		{"i21be", 0, Big, false},
		{"u", 0, Big, false},
		{"u0", 0, Big, false},
		{"u65", 0, Big, false},
		{"u8x", 0, Big, false},
		{"U8", 0, Big, false},
	}

	for _, test := range tests {
		t.Run(test.ty, func(t *testing.T) {
			bits, endian, ok := parsePrimitive(test.ty)
			require.Equal(t, test.ok, ok)
			if test.ok {
				assert.Equal(t, test.bits, bits)
				assert.Equal(t, test.endian, endian)
			}
		})
	}
}

func TestParsePrimitiveAllWidths(t *testing.T) {
	for bits := 1; bits <= 64; bits++ {
		for _, suffix := range []string{"", "be", "le"} {
			name := fmt.Sprintf("u%d%s", bits, suffix)
			gotBits, endian, ok := parsePrimitive(name)
			require.True(t, ok, name)
			require.Equal(t, bits, gotBits, name)
			if suffix == "le" && bits > 8 {
				require.Equal(t, Little, endian, name)
			} else {
				require.Equal(t, Big, endian, name)
			}
		}
	}
}

func TestMakeType(t *testing.T) {
	ty, err := makeType("u16")
	require.NoError(t, err)
	assert.Equal(t, Primitive{Name: "u16", Bits: 16, Endian: Big}, ty)

	ty, err = makeType("Vec<u8>")
	require.NoError(t, err)
	assert.Equal(t, Vector{Inner: Primitive{Name: "u8", Bits: 8, Endian: Big}}, ty)

	ty, err = makeType("Vec<Vec<u8>>")
	require.NoError(t, err)
	assert.Equal(t, Vector{Inner: Vector{Inner: Primitive{Name: "u8", Bits: 8, Endian: Big}}}, ty)

	ty, err = makeType("Vec<MyStruct>")
	require.NoError(t, err)
	assert.Equal(t, Vector{Inner: Misc{Name: "MyStruct"}}, ty)

	ty, err = makeType("MyFlags")
	require.NoError(t, err)
	assert.Equal(t, Misc{Name: "MyFlags"}, ty)

	_, err = makeType("&str")
	assert.EqualError(t, err, "invalid type: &str")

	_, err = makeType("Vec<&str>")
	assert.EqualError(t, err, "invalid type: &str")
}
