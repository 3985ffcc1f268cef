package cache

import (
	"github.com/sarchlab/cachesim/mem/cache/addressing"
	"github.com/sarchlab/cachesim/mem/cache/internal/tagging"
)

// Storage is allocated up front, so the geometry is bounded.
const (
	maxLog2NumSets = 24
	maxNumLines    = 1 << 24
)

// Builder can build cache models.
type Builder struct {
	log2NumSets      int
	log2BlockSize    int
	wayAssociativity int
	replacePolicy    string
}

// MakeBuilder creates a new builder. Geometry must be supplied by the caller;
// the replacement policy defaults to "mru".
func MakeBuilder() Builder {
	return Builder{
		replacePolicy: "mru",
	}
}

// WithLog2NumSets sets the number of set index bits (s).
func (b Builder) WithLog2NumSets(log2NumSets int) Builder {
	b.log2NumSets = log2NumSets
	return b
}

// WithLog2BlockSize sets the number of block offset bits (b).
func (b Builder) WithLog2BlockSize(log2BlockSize int) Builder {
	b.log2BlockSize = log2BlockSize
	return b
}

// WithWayAssociativity sets the number of lines per set (E).
func (b Builder) WithWayAssociativity(wayAssociativity int) Builder {
	b.wayAssociativity = wayAssociativity
	return b
}

// WithReplacePolicy sets the replacement policy, "mru" or "lru".
func (b Builder) WithReplacePolicy(policy string) Builder {
	b.replacePolicy = policy
	return b
}

// Build validates the configuration and builds a model with every line
// empty. Nothing is allocated when the configuration is rejected.
func (b Builder) Build(name string) (*Model, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	victimFinder, err := b.createVictimFinder()
	if err != nil {
		return nil, err
	}

	numSets := 1 << b.log2NumSets

	m := &Model{
		name:         name,
		decoder:      addressing.NewDecoder(b.log2NumSets, b.log2BlockSize),
		tags:         tagging.NewTagArray(numSets, b.wayAssociativity),
		victimFinder: victimFinder,
		policy:       b.replacePolicy,
		clock:        1,
	}

	return m, nil
}

func (b Builder) validate() error {
	if b.log2NumSets < 1 {
		return newConfigError("s", b.log2NumSets, "must be positive")
	}

	if b.log2BlockSize < 1 {
		return newConfigError("b", b.log2BlockSize, "must be positive")
	}

	if b.wayAssociativity < 1 {
		return newConfigError("E", b.wayAssociativity, "must be positive")
	}

	if b.log2NumSets > maxLog2NumSets {
		return newConfigError("s", b.log2NumSets, "too many sets")
	}

	if b.wayAssociativity > maxNumLines>>b.log2NumSets {
		return newConfigError("E", b.wayAssociativity, "too many lines")
	}

	if b.log2NumSets+b.log2BlockSize > 64 {
		return newConfigError("b", b.log2BlockSize,
			"set index and block offset exceed 64 address bits")
	}

	return nil
}

func (b Builder) createVictimFinder() (tagging.VictimFinder, error) {
	switch b.replacePolicy {
	case "mru":
		return tagging.NewMRUVictimFinder(), nil
	case "lru":
		return tagging.NewLRUVictimFinder(), nil
	default:
		return nil, &ConfigError{
			Field:  "policy",
			Policy: b.replacePolicy,
			Reason: "unknown replace policy",
		}
	}
}
