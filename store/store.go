// Package store is a keyed byte store for computed traces, so serving the
// same source twice does not pay for a second instrumented execution.
package store

import (
	"io"

	"github.com/dgryski/go-farm"
)

// Hash identifies an entry; Key derives one from source text.
type Hash uint64

func Key(src string) Hash {
	return Hash(farm.Hash64([]byte(src)))
}

// Serde is implemented by anything the store can persist.
type Serde interface {
	Serialize(w io.Writer) error
	Deserialize(r io.Reader) error
}

type Store interface {
	Put(key Hash, item Serde) error
	Get(key Hash, into Serde) (bool, error)
	Has(key Hash) bool
}
