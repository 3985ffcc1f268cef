package trace

import "fmt"

// A SourceError reports a trace that cannot be opened or read.
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("trace %s: %v", e.Path, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// A MalformedRecordError reports a trace line that is not a valid record.
type MalformedRecordError struct {
	Source string
	Line   int
	Text   string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("%s:%d: malformed record %q: %s",
		e.Source, e.Line, e.Text, e.Reason)
}
