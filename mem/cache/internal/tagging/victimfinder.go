package tagging

// A VictimFinder decides which block of a set receives an incoming block on a
// miss. It must return an invalid block whenever the set has one.
type VictimFinder interface {
	FindVictim(tags TagArray, setID int) Block
}

// MRUVictimFinder fills empty blocks first and otherwise evicts the most
// recently used block. Ties go to the lowest way.
type MRUVictimFinder struct {
}

// NewMRUVictimFinder returns a newly constructed mru evictor.
func NewMRUVictimFinder() *MRUVictimFinder {
	e := new(MRUVictimFinder)
	return e
}

// FindVictim returns the first empty block, or the most recently used one.
func (e *MRUVictimFinder) FindVictim(tags TagArray, setID int) Block {
	set := tags.GetSet(setID)

	if block, found := firstInvalid(set); found {
		return block
	}

	victim := set.Blocks[0]
	for _, block := range set.Blocks[1:] {
		if block.Recency > victim.Recency {
			victim = block
		}
	}

	return victim
}

// LRUVictimFinder fills empty blocks first and otherwise evicts the least
// recently used block. Ties go to the lowest way.
type LRUVictimFinder struct {
}

// NewLRUVictimFinder returns a newly constructed lru evictor.
func NewLRUVictimFinder() *LRUVictimFinder {
	e := new(LRUVictimFinder)
	return e
}

// FindVictim returns the first empty block, or the least recently used one.
func (e *LRUVictimFinder) FindVictim(tags TagArray, setID int) Block {
	set := tags.GetSet(setID)

	if block, found := firstInvalid(set); found {
		return block
	}

	victim := set.Blocks[0]
	for _, block := range set.Blocks[1:] {
		if block.Recency < victim.Recency {
			victim = block
		}
	}

	return victim
}

func firstInvalid(set *Set) (Block, bool) {
	for _, block := range set.Blocks {
		if !block.IsValid {
			return block, true
		}
	}

	return Block{}, false
}
