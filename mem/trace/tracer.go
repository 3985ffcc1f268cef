package trace

import (
	"log"
	"strings"

	"github.com/rs/xid"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/instrumentation/hooking"
	"github.com/sarchlab/cachesim/mem/cache"
)

// A VerboseTracer is a hook that logs each replayed record followed by the
// outcome of its accesses, for example "M 20,1 miss eviction hit".
type VerboseTracer struct {
	logger *log.Logger
}

// NewVerboseTracer creates a VerboseTracer. Attach it to a Replayer.
func NewVerboseTracer(logger *log.Logger) *VerboseTracer {
	return &VerboseTracer{logger: logger}
}

// Func logs the record carried by ctx.
func (t *VerboseTracer) Func(ctx hooking.HookCtx) {
	if ctx.Pos != HookPosRecordReplayed {
		return
	}

	replayed, ok := ctx.Item.(ReplayedRecord)
	if !ok || len(replayed.Results) == 0 {
		return
	}

	var sb strings.Builder
	for _, result := range replayed.Results {
		sb.WriteByte(' ')
		sb.WriteString(result.String())
	}

	t.logger.Printf("%s %x,%d%s",
		replayed.Record.Kind,
		replayed.Record.Address,
		replayed.Record.Size,
		sb.String(),
	)
}

// accessEntry is one access in the database.
type accessEntry struct {
	ID         string
	Cache      string
	Seq        uint64
	Address    uint64
	SetIndex   uint64
	Tag        uint64
	WayID      int
	Result     string
	EvictedTag uint64
}

// summaryEntry holds the final counters of a model in the database.
type summaryEntry struct {
	ID        string
	Cache     string
	Policy    string
	NumSets   int
	NumWays   int
	BlockSize uint64
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

const (
	accessTable  = "cache_accesses"
	summaryTable = "cache_summary"
)

// A DBTracer is a hook that records every access of a cache model into a
// data recorder.
type DBTracer struct {
	dataRecorder datarecording.DataRecorder
	seq          uint64
}

// NewDBTracer creates a DBTracer and the tables it writes to. Attach it to a
// cache.Model.
func NewDBTracer(dataRecorder datarecording.DataRecorder) *DBTracer {
	t := &DBTracer{dataRecorder: dataRecorder}

	t.dataRecorder.CreateTable(accessTable, accessEntry{})
	t.dataRecorder.CreateTable(summaryTable, summaryEntry{})

	return t
}

// Func records the access carried by ctx.
func (t *DBTracer) Func(ctx hooking.HookCtx) {
	if ctx.Pos != cache.HookPosAccess {
		return
	}

	event, ok := ctx.Item.(cache.AccessEvent)
	if !ok {
		return
	}

	name := ""
	if model, ok := ctx.Domain.(*cache.Model); ok {
		name = model.Name()
	}

	t.seq++

	t.dataRecorder.InsertData(accessTable, accessEntry{
		ID:         xid.New().String(),
		Cache:      name,
		Seq:        t.seq,
		Address:    event.Address,
		SetIndex:   event.SetIndex,
		Tag:        event.Tag,
		WayID:      event.WayID,
		Result:     event.Result.String(),
		EvictedTag: event.EvictedTag,
	})
}

// RecordSummary stores the configuration and final counters of model.
func (t *DBTracer) RecordSummary(model *cache.Model) {
	stats := model.Stats()

	t.dataRecorder.InsertData(summaryTable, summaryEntry{
		ID:        xid.New().String(),
		Cache:     model.Name(),
		Policy:    model.Policy(),
		NumSets:   model.NumSets(),
		NumWays:   model.NumWays(),
		BlockSize: model.BlockSize(),
		Hits:      stats.Hits,
		Misses:    stats.Misses,
		Evictions: stats.Evictions,
	})
}
