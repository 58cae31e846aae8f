package analyzer

import "math/bits"

// BitSet is a fixed-width set of small integers
type BitSet struct {
	words []uint64
}

// NewBitSet creates an empty set able to hold values in [0, n)
func NewBitSet(n int) *BitSet {
	return &BitSet{words: make([]uint64, (n+63)/64)}
}

// Set adds i to the set
func (b *BitSet) Set(i int) {
	b.words[i/64] |= 1 << (uint(i) % 64)
}

// Has reports whether i is in the set
func (b *BitSet) Has(i int) bool {
	return b.words[i/64]&(1<<(uint(i)%64)) != 0
}

// Fill adds every value in [0, n) to the set
func (b *BitSet) Fill(n int) {
	for i := 0; i < n; i++ {
		b.Set(i)
	}
}

// IntersectWith keeps only values also present in other
func (b *BitSet) IntersectWith(other *BitSet) {
	for i := range b.words {
		b.words[i] &= other.words[i]
	}
}

// UnionWith adds every value of other
func (b *BitSet) UnionWith(other *BitSet) {
	for i := range b.words {
		b.words[i] |= other.words[i]
	}
}

// Copy returns an independent copy of the set
func (b *BitSet) Copy() *BitSet {
	return &BitSet{words: append([]uint64(nil), b.words...)}
}

// Equal reports whether both sets hold the same values
func (b *BitSet) Equal(other *BitSet) bool {
	for i := range b.words {
		if b.words[i] != other.words[i] {
			return false
		}
	}
	return true
}

// Count returns the number of values in the set
func (b *BitSet) Count() int {
	c := 0
	for _, w := range b.words {
		c += bits.OnesCount64(w)
	}
	return c
}
