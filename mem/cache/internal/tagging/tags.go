// Package tagging keeps the per-line bookkeeping of a set-associative cache:
// which tag each line holds, whether it is valid, and when it was last
// touched.
package tagging

// TagArray owns the sets and lines of a cache.
type TagArray interface {
	// Lookup finds the valid block holding tag in the given set.
	Lookup(setID int, tag uint64) (Block, bool)

	// Update writes the block back to its set and way.
	Update(block Block)

	// Visit refreshes the recency stamp of a block.
	Visit(block Block, stamp uint64)

	// GetSet returns the set with the given index.
	GetSet(setID int) *Set

	// NumSets returns the number of sets.
	NumSets() int

	// NumWays returns the number of blocks in each set.
	NumWays() int

	// Reset marks every block invalid and clears all recency stamps.
	Reset()
}

// NewTagArray creates a TagArray with every block empty.
func NewTagArray(numSets, numWays int) TagArray {
	t := &tagArrayImpl{
		numSets: numSets,
		numWays: numWays,
	}

	t.Reset()

	return t
}

// A Block is the bookkeeping information of one cache line. A block with
// IsValid false and Recency 0 has never been used.
type Block struct {
	SetID   int
	WayID   int
	Tag     uint64
	IsValid bool
	Recency uint64
}

// A Set is the fixed group of blocks a memory block may be placed in. The
// position of a block inside Blocks carries no ordering meaning.
type Set struct {
	Blocks []Block
}

type tagArrayImpl struct {
	numSets int
	numWays int
	sets    []Set
}

func (t *tagArrayImpl) NumSets() int {
	return t.numSets
}

func (t *tagArrayImpl) NumWays() int {
	return t.numWays
}

func (t *tagArrayImpl) GetSet(setID int) *Set {
	return &t.sets[setID]
}

func (t *tagArrayImpl) Lookup(setID int, tag uint64) (Block, bool) {
	set := &t.sets[setID]
	for _, block := range set.Blocks {
		if block.IsValid && block.Tag == tag {
			return block, true
		}
	}

	return Block{}, false
}

func (t *tagArrayImpl) Update(block Block) {
	t.sets[block.SetID].Blocks[block.WayID] = block
}

func (t *tagArrayImpl) Visit(block Block, stamp uint64) {
	t.sets[block.SetID].Blocks[block.WayID].Recency = stamp
}

func (t *tagArrayImpl) Reset() {
	blocks := make([]Block, t.numSets*t.numWays)
	t.sets = make([]Set, t.numSets)

	for i := 0; i < t.numSets; i++ {
		set := blocks[i*t.numWays : (i+1)*t.numWays : (i+1)*t.numWays]
		for j := range set {
			set[j] = Block{SetID: i, WayID: j}
		}

		t.sets[i].Blocks = set
	}
}
