// Package word provides the fixed-width Word and Byte value types shared by
// every timing subsystem: the 16-bit architectural register/memory unit and
// its 8-bit byte counterpart, with little-endian encoding between them.
package word

// Width is the bit width of a Word.
const Width = 16

// Mask clears every bit above the 16-bit range.
const Mask = 1<<Width - 1

// Word is an unsigned 16-bit value that wraps modulo 2^16 on every
// arithmetic operation. It carries both an unsigned and a two's-complement
// signed interpretation of the same bits.
type Word uint16

// New truncates an int to a Word, wrapping modulo 2^16.
func New(v int) Word {
	return Word(uint16(v))
}

// Unsigned returns the value's unsigned interpretation as an int.
func (w Word) Unsigned() int {
	return int(uint16(w))
}

// Signed returns the value's two's-complement signed interpretation.
func (w Word) Signed() int {
	v := int16(w)
	return int(v)
}

// Add returns w + other, wrapped modulo 2^16.
func (w Word) Add(other Word) Word {
	return Word(uint16(w) + uint16(other))
}

// Sub returns w - other, wrapped modulo 2^16.
func (w Word) Sub(other Word) Word {
	return Word(uint16(w) - uint16(other))
}

// And returns the bitwise AND of w and other.
func (w Word) And(other Word) Word {
	return w & other
}

// Or returns the bitwise OR of w and other.
func (w Word) Or(other Word) Word {
	return w | other
}

// Xor returns the bitwise XOR of w and other.
func (w Word) Xor(other Word) Word {
	return w ^ other
}

// ShiftLeft shifts w left by the unsigned low bits of amount, filling with
// zero and discarding bits above the 16-bit range.
func (w Word) ShiftLeft(amount Word) Word {
	n := uint(amount.Unsigned()) & 0xF
	return Word((uint16(w) << n) & Mask)
}

// ShiftRightLogical shifts w right by amount, filling the vacated high bits
// with zero regardless of sign.
func (w Word) ShiftRightLogical(amount Word) Word {
	n := uint(amount.Unsigned()) & 0xF
	return Word(uint16(w) >> n)
}

// ShiftRightArithmetic shifts w right by amount, filling the vacated high
// bits by sign-extending the original MSB.
func (w Word) ShiftRightArithmetic(amount Word) Word {
	n := uint(amount.Unsigned()) & 0xF
	signed := int16(w) >> n
	return Word(uint16(signed))
}

// UnsignedLess reports whether w < other under unsigned comparison.
func (w Word) UnsignedLess(other Word) bool {
	return uint16(w) < uint16(other)
}

// UnsignedLessEqual reports whether w <= other under unsigned comparison.
func (w Word) UnsignedLessEqual(other Word) bool {
	return uint16(w) <= uint16(other)
}

// UnsignedGreater reports whether w > other under unsigned comparison.
func (w Word) UnsignedGreater(other Word) bool {
	return uint16(w) > uint16(other)
}

// UnsignedGreaterEqual reports whether w >= other under unsigned comparison.
func (w Word) UnsignedGreaterEqual(other Word) bool {
	return uint16(w) >= uint16(other)
}

// SignedLess reports whether w < other under two's-complement comparison.
func (w Word) SignedLess(other Word) bool {
	return w.Signed() < other.Signed()
}

// SignedLessEqual reports whether w <= other under two's-complement comparison.
func (w Word) SignedLessEqual(other Word) bool {
	return w.Signed() <= other.Signed()
}

// SignedGreater reports whether w > other under two's-complement comparison.
func (w Word) SignedGreater(other Word) bool {
	return w.Signed() > other.Signed()
}

// SignedGreaterEqual reports whether w >= other under two's-complement comparison.
func (w Word) SignedGreaterEqual(other Word) bool {
	return w.Signed() >= other.Signed()
}

// Equal reports whether w and other carry the same bits.
func (w Word) Equal(other Word) bool {
	return w == other
}

// Bytes encodes w as two little-endian bytes: Bytes()[0] is the low byte.
func (w Word) Bytes() [2]Byte {
	return [2]Byte{
		Byte(uint16(w) & 0xFF),
		Byte((uint16(w) >> 8) & 0xFF),
	}
}

// FromBytes decodes two little-endian bytes into a Word: lo is the low byte.
func FromBytes(lo, hi Byte) Word {
	return Word(uint16(lo) | uint16(hi)<<8)
}

// Byte is an unsigned 8-bit value that wraps modulo 2^8.
type Byte uint8

// NewByte truncates an int to a Byte, wrapping modulo 2^8.
func NewByte(v int) Byte {
	return Byte(uint8(v))
}

// ZeroExtend widens b to a Word with the upper byte cleared.
func (b Byte) ZeroExtend() Word {
	return Word(uint16(b))
}

// Unsigned returns b's value as an int.
func (b Byte) Unsigned() int {
	return int(uint8(b))
}
