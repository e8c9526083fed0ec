package store

import (
	"io"

	"github.com/shamaton/msgpack/v2"

	"github.com/stepwise-dev/stepwise/debug"
)

// TraceEntry is the persisted form of one computed trace: the source text
// it came from and its snapshot sequence.
type TraceEntry struct {
	Source    string           `msgpack:"source"`
	Lines     []string         `msgpack:"lines"`
	Snapshots []debug.Snapshot `msgpack:"snapshots"`
}

func (t *TraceEntry) Serialize(w io.Writer) error {
	return msgpack.MarshalWrite(w, t)
}

func (t *TraceEntry) Deserialize(r io.Reader) error {
	return msgpack.UnmarshalRead(r, t)
}
