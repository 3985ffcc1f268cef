package cache

import (
	"github.com/sarchlab/cachesim/instrumentation/hooking"
	"github.com/sarchlab/cachesim/mem/cache/addressing"
)

// HookPosAccess marks the completion of an access. The hook item is an
// AccessEvent.
var HookPosAccess = &hooking.HookPos{Name: "Access"}

// An AccessEvent describes one completed access.
type AccessEvent struct {
	Address    uint64
	SetIndex   uint64
	Tag        uint64
	WayID      int
	Result     AccessResult
	EvictedTag uint64
}

func (m *Model) traceAccess(
	addr uint64,
	loc addressing.Location,
	wayID int,
	result AccessResult,
	evictedTag uint64,
) {
	if m.NumHooks() == 0 {
		return
	}

	ctx := hooking.HookCtx{
		Domain: m,
		Pos:    HookPosAccess,
		Item: AccessEvent{
			Address:    addr,
			SetIndex:   loc.SetIndex,
			Tag:        loc.Tag,
			WayID:      wayID,
			Result:     result,
			EvictedTag: evictedTag,
		},
	}

	m.InvokeHook(ctx)
}
