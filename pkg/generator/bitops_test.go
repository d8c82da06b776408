package generator

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// evalGet interprets a planned read sequence over packet bytes, the way
// the rendered accessor would.
func evalGet(ops []GetOperation, packet []byte) uint64 {
	var v uint64
	for i, op := range ops {
		b := uint64(packet[i] & op.mask)
		if op.shiftLeft > 0 {
			b <<= uint(op.shiftLeft)
		} else {
			b >>= uint(op.shiftRight)
		}
		v |= b
	}
	return v
}

// applySet interprets a planned write sequence over packet bytes.
func applySet(ops []SetOperation, packet []byte, val uint64) {
	for i, op := range ops {
		chunk := val
		if op.shiftRight > 0 {
			chunk >>= uint(op.shiftRight)
		} else {
			chunk <<= uint(op.shiftLeft)
		}
		packet[i] = (packet[i] & op.keepMask) | (byte(chunk) & op.byteMask)
	}
}

func widthMask(bits int) uint64 {
	if bits == 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(bits)) - 1
}

func TestOperationsByteCount(t *testing.T) {
	tests := []struct {
		offset int
		bits   int
		bytes  int
	}{
		{0, 1, 1},
		{0, 8, 1},
		{7, 1, 1},
		{7, 2, 2},
		{0, 9, 2},
		{4, 4, 1},
		{4, 8, 2},
		{0, 16, 2},
		{0, 64, 8},
		{7, 64, 9},
	}

	for _, test := range tests {
		t.Run(fmt.Sprintf("offset %d width %d", test.offset, test.bits), func(t *testing.T) {
			assert.Len(t, operations(test.offset, test.bits), test.bytes)
		})
	}
}

func TestGetOperationRendering(t *testing.T) {
	assert.Equal(t, "{}", operations(0, 8)[0].String())
	assert.Equal(t, "({} & 0xf0) >> 4", operations(0, 4)[0].String())
	assert.Equal(t, "({} & 0xf)", operations(4, 4)[0].String())

	ops := operations(0, 16)
	require.Len(t, ops, 2)
	assert.Equal(t, "{} << 8", ops[0].String())
	assert.Equal(t, "{}", ops[1].String())

	ops = operations(4, 12)
	require.Len(t, ops, 2)
	assert.Equal(t, "({} & 0xf) << 8", ops[0].String())
	assert.Equal(t, "{}", ops[1].String())
}

func TestSetOperationRendering(t *testing.T) {
	assert.Equal(t, "{packet} = {val} as u8",
		toMutator(operations(0, 8))[0].String())
	assert.Equal(t, "{packet} = ({packet} & 0xf) | (({val} << 4) & 0xf0) as u8",
		toMutator(operations(0, 4))[0].String())
	assert.Equal(t, "{packet} = ({packet} & 0xf0) | ({val} & 0xf) as u8",
		toMutator(operations(4, 4))[0].String())
}

func TestToLittleEndian(t *testing.T) {
	ops := toLittleEndian(operations(0, 16))
	require.Len(t, ops, 2)
	assert.Equal(t, "{}", ops[0].String())
	assert.Equal(t, "{} << 8", ops[1].String())

	// 0x1234 stored little endian
	assert.Equal(t, uint64(0x1234), evalGet(ops, []byte{0x34, 0x12}))

	// widths of one byte are unaffected by reversal
	assert.Equal(t, operations(0, 8), toLittleEndian(operations(0, 8)))
}

func TestRoundTrip(t *testing.T) {
	vals := []uint64{0, 1, 0xa5, 0xdeadbeef, 0x0123456789abcdef, ^uint64(0)}
	for offset := 0; offset <= 7; offset++ {
		for bits := 1; bits <= 64; bits++ {
			gets := operations(offset, bits)
			sets := toMutator(gets)
			for _, val := range vals {
				packet := make([]byte, len(gets))
				applySet(sets, packet, val)
				got := evalGet(gets, packet)
				require.Equal(t, val&widthMask(bits), got,
					"offset %d width %d val %#x", offset, bits, val)
			}
		}
	}
}

func TestRoundTripLittleEndian(t *testing.T) {
	for bits := 9; bits <= 64; bits++ {
		gets := toLittleEndian(operations(0, bits))
		sets := toMutator(gets)
		packet := make([]byte, len(gets))
		val := uint64(0x0123456789abcdef) & widthMask(bits)
		applySet(sets, packet, val)
		require.Equal(t, val, evalGet(gets, packet), "width %d", bits)
	}
}

func TestSetPreservesNeighbouringBits(t *testing.T) {
	// a 4-bit write at bit 2 must leave bits 0-1 and 6-7 of the byte
	// untouched
	sets := toMutator(operations(2, 4))
	require.Len(t, sets, 1)
	packet := []byte{0xff}
	applySet(sets, packet, 0)
	assert.Equal(t, byte(0xc3), packet[0])

	packet[0] = 0x00
	applySet(sets, packet, 0xf)
	assert.Equal(t, byte(0x3c), packet[0])
}

func TestOperationsPanicsOutOfRange(t *testing.T) {
	assert.Panics(t, func() { operations(8, 1) })
	assert.Panics(t, func() { operations(0, 0) })
	assert.Panics(t, func() { operations(0, 65) })
}
