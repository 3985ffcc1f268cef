package cache

// LineState is a copy of one cache line.
type LineState struct {
	Valid   bool   `json:"valid"`
	Tag     uint64 `json:"tag"`
	Recency uint64 `json:"recency"`
}

// SetState is a copy of one cache set.
type SetState struct {
	Index uint64      `json:"index"`
	Lines []LineState `json:"lines"`
}

// A Snapshot is a deep copy of a model's lines and counters. It does not
// share memory with the model.
type Snapshot struct {
	Name      string     `json:"name"`
	Policy    string     `json:"policy"`
	NumSets   int        `json:"num_sets"`
	NumWays   int        `json:"num_ways"`
	BlockSize uint64     `json:"block_size"`
	Stats     Stats      `json:"stats"`
	Sets      []SetState `json:"sets"`
}

// Snapshot copies the current state of the model.
func (m *Model) Snapshot() Snapshot {
	s := Snapshot{
		Name:      m.name,
		Policy:    m.policy,
		NumSets:   m.tags.NumSets(),
		NumWays:   m.tags.NumWays(),
		BlockSize: m.BlockSize(),
		Stats:     m.stats,
		Sets:      make([]SetState, m.tags.NumSets()),
	}

	for i := range s.Sets {
		set := m.tags.GetSet(i)
		lines := make([]LineState, len(set.Blocks))

		for j, block := range set.Blocks {
			lines[j] = LineState{
				Valid:   block.IsValid,
				Tag:     block.Tag,
				Recency: block.Recency,
			}
		}

		s.Sets[i] = SetState{Index: uint64(i), Lines: lines}
	}

	return s
}

// Set returns the state of the set with the given index.
func (s Snapshot) Set(index uint64) (SetState, bool) {
	if index >= uint64(len(s.Sets)) {
		return SetState{}, false
	}

	return s.Sets[index], true
}
