// Package trace reads Valgrind memory traces and replays them against a cache
// model.
package trace

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
)

// Kind is the type of a memory operation in a trace.
type Kind byte

// Trace record kinds, named by the letter Valgrind writes for them.
const (
	Instruction Kind = 'I'
	Load        Kind = 'L'
	Store       Kind = 'S'
	Modify      Kind = 'M'
)

func (k Kind) String() string {
	return string(rune(k))
}

// NumAccesses returns how many cache accesses a record of this kind makes.
func (k Kind) NumAccesses() int {
	switch k {
	case Load, Store:
		return 1
	case Modify:
		return 2
	default:
		return 0
	}
}

// A Record is one operation of a trace.
type Record struct {
	Kind    Kind
	Address uint64
	Size    uint32
	Line    int
}

// A Reader reads records from a trace, one line at a time. Lines have the
// form " X addr,size" where addr is hexadecimal. Instruction fetches usually
// start in the first column.
type Reader struct {
	source  string
	scanner *bufio.Scanner
	line    int
}

// NewReader creates a Reader. The source names the trace in errors.
func NewReader(source string, r io.Reader) *Reader {
	return &Reader{
		source:  source,
		scanner: bufio.NewScanner(r),
	}
}

// Open opens the trace file at path. The caller closes the returned file.
func Open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &SourceError{Path: path, Err: err}
	}

	return f, nil
}

// Next returns the next record. It returns io.EOF after the last record.
func (r *Reader) Next() (Record, error) {
	for r.scanner.Scan() {
		r.line++

		text := r.scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}

		return r.parse(text)
	}

	if err := r.scanner.Err(); err != nil {
		return Record{}, &SourceError{Path: r.source, Err: err}
	}

	return Record{}, io.EOF
}

func (r *Reader) parse(text string) (Record, error) {
	fields := strings.TrimLeft(text, " \t")

	kind := Kind(fields[0])
	switch kind {
	case Instruction, Load, Store, Modify:
	default:
		return Record{}, r.malformed(text, "unknown operation")
	}

	rest := fields[1:]
	if rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
		return Record{}, r.malformed(text, "missing separator after operation")
	}

	addrText, sizeText, found := strings.Cut(strings.TrimSpace(rest), ",")
	if !found {
		return Record{}, r.malformed(text, "missing size")
	}

	addr, err := strconv.ParseUint(strings.TrimSpace(addrText), 16, 64)
	if err != nil {
		return Record{}, r.malformed(text, "bad address")
	}

	size, err := strconv.ParseUint(strings.TrimSpace(sizeText), 10, 32)
	if err != nil {
		return Record{}, r.malformed(text, "bad size")
	}

	return Record{
		Kind:    kind,
		Address: addr,
		Size:    uint32(size),
		Line:    r.line,
	}, nil
}

func (r *Reader) malformed(text, reason string) error {
	return &MalformedRecordError{
		Source: r.source,
		Line:   r.line,
		Text:   text,
		Reason: reason,
	}
}
