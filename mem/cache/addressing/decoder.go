// Package addressing splits memory addresses into the tag, set index, and
// block offset fields used to locate a block in a set-associative cache.
package addressing

// A Location is the result of decoding an address.
type Location struct {
	Tag         uint64
	SetIndex    uint64
	BlockOffset uint64
}

// A Decoder decodes addresses for a cache with 2^Log2NumSets sets and
// 2^Log2BlockSize byte blocks.
//
// Decoding is defined for every 64-bit address. Field widths whose sum
// reaches 64 bits simply produce a zero tag.
type Decoder struct {
	Log2NumSets   int
	Log2BlockSize int
}

// NewDecoder creates a Decoder with the given field widths.
func NewDecoder(log2NumSets, log2BlockSize int) Decoder {
	return Decoder{
		Log2NumSets:   log2NumSets,
		Log2BlockSize: log2BlockSize,
	}
}

// Decode returns the tag, set index and block offset of addr.
func (d Decoder) Decode(addr uint64) Location {
	return Location{
		Tag:         d.Tag(addr),
		SetIndex:    d.SetIndex(addr),
		BlockOffset: d.BlockOffset(addr),
	}
}

// Tag returns the bits of addr above the set index and block offset.
func (d Decoder) Tag(addr uint64) uint64 {
	return addr >> uint(d.Log2NumSets+d.Log2BlockSize)
}

// SetIndex returns the set that addr maps to.
func (d Decoder) SetIndex(addr uint64) uint64 {
	return (addr >> uint(d.Log2BlockSize)) & mask(d.Log2NumSets)
}

// BlockOffset returns the byte position of addr inside its block.
func (d Decoder) BlockOffset(addr uint64) uint64 {
	return addr & mask(d.Log2BlockSize)
}

// BlockAddress returns addr with the block offset bits cleared.
func (d Decoder) BlockAddress(addr uint64) uint64 {
	return addr &^ mask(d.Log2BlockSize)
}

func mask(bits int) uint64 {
	return (uint64(1) << uint(bits)) - 1
}
