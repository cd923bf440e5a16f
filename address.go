package stm

// Address is the opaque, pointer-sized handle callers use to denote a
// position in shared memory. Internally it packs a validity bit, an
// 8-bit segment index and a 55-bit byte offset within that segment;
// callers never see this layout.
//
// Arithmetic on an Address only ever changes the offset: Address.plus
// preserves the segment index, so (base + k*align) for any legal k stays
// a valid address into the same segment.
type Address uint64

const (
	addressValidBit  = uint64(1) << 63
	addressSegShift  = 55
	addressSegMask   = uint64(0xFF)
	addressOffsetMax = uint64(1)<<addressSegShift - 1
)

// NullAddress is returned in place of a legitimate Address when no
// address applies; its validity bit is clear so it can never collide with
// an address resolve() would accept.
const NullAddress Address = 0

func newAddress(segment uint8, offset uint64) Address {
	if offset > addressOffsetMax {
		panic("stm: offset exceeds addressable range for a segment")
	}
	return Address(addressValidBit | uint64(segment)<<addressSegShift | offset)
}

// valid reports whether a is a well-formed non-null address.
func (a Address) valid() bool {
	return uint64(a)&addressValidBit != 0
}

// segment returns the index of the segment a refers into.
func (a Address) segment() uint8 {
	return uint8((uint64(a) >> addressSegShift) & addressSegMask)
}

// offset returns the byte offset of a within its segment.
func (a Address) offset() uint64 {
	return uint64(a) & addressOffsetMax
}

// plus returns the address delta bytes further into the same segment,
// leaving the segment index untouched.
func (a Address) plus(delta uint64) Address {
	return newAddress(a.segment(), a.offset()+delta)
}
