package trace

import (
	"errors"
	"io"

	"github.com/sarchlab/cachesim/instrumentation/hooking"
	"github.com/sarchlab/cachesim/mem/cache"
)

// HookPosRecordReplayed marks that all accesses of a record are done. The
// hook item is a ReplayedRecord.
var HookPosRecordReplayed = &hooking.HookPos{Name: "RecordReplayed"}

// A ReplayedRecord is a record together with the results of its accesses.
// Results is only valid during the hook invocation.
type ReplayedRecord struct {
	Record  Record
	Results []cache.AccessResult
}

// An Accessor is a cache that a trace can be replayed against.
type Accessor interface {
	Access(addr uint64) cache.AccessResult
	Stats() cache.Stats
}

// A Replayer feeds trace records to a cache, one access per load or store
// and two for a modify.
type Replayer struct {
	hooking.HookableBase

	model   Accessor
	results [2]cache.AccessResult
}

// NewReplayer creates a Replayer that drives model.
func NewReplayer(model Accessor) *Replayer {
	return &Replayer{model: model}
}

// Replay reads r to the end and returns the counters of the model. Reading
// stops at the first error.
func (p *Replayer) Replay(r *Reader) (cache.Stats, error) {
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return p.model.Stats(), err
		}

		p.ReplayRecord(rec)
	}

	return p.model.Stats(), nil
}

// ReplayRecord performs the accesses of one record. The returned slice is
// reused by the next call.
func (p *Replayer) ReplayRecord(rec Record) []cache.AccessResult {
	n := rec.Kind.NumAccesses()
	for i := 0; i < n; i++ {
		p.results[i] = p.model.Access(rec.Address)
	}

	results := p.results[:n]

	if p.NumHooks() > 0 {
		p.InvokeHook(hooking.HookCtx{
			Domain: p,
			Pos:    HookPosRecordReplayed,
			Item:   ReplayedRecord{Record: rec, Results: results},
		})
	}

	return results
}
