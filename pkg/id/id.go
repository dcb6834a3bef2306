package id

import (
	"encoding/binary"
	"errors"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ID is a stream record identifier.
type ID struct {
	Ms  uint64
	Seq uint64
}

var (
	// Min sorts before every ID a Generator can emit.
	Min = ID{}
	// Max sorts after every ID.
	Max = ID{Ms: math.MaxUint64, Seq: math.MaxUint64}
)

// ErrInvalid is returned by Parse for malformed input.
var ErrInvalid = errors.New("invalid stream ID")

// String renders "<ms>-<seq>".
func (i ID) String() string {
	return strconv.FormatUint(i.Ms, 10) + "-" + strconv.FormatUint(i.Seq, 10)
}

// IsZero reports whether i is the zero ID (0-0).
func (i ID) IsZero() bool { return i.Ms == 0 && i.Seq == 0 }

// Bytes returns the 16-byte big-endian representation.
func (i ID) Bytes() []byte {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[0:8], i.Ms)
	binary.BigEndian.PutUint64(b[8:16], i.Seq)
	return b
}

// FromBytes decodes the representation produced by Bytes.
func FromBytes(b []byte) (ID, bool) {
	if len(b) != 16 {
		return ID{}, false
	}
	return ID{Ms: binary.BigEndian.Uint64(b[0:8]), Seq: binary.BigEndian.Uint64(b[8:16])}, true
}

// Compare returns -1, 0, 1.
func (i ID) Compare(other ID) int {
	switch {
	case i.Ms < other.Ms:
		return -1
	case i.Ms > other.Ms:
		return 1
	case i.Seq < other.Seq:
		return -1
	case i.Seq > other.Seq:
		return 1
	}
	return 0
}

// Less reports whether i sorts before other.
func (i ID) Less(other ID) bool { return i.Compare(other) < 0 }

// Next returns the smallest ID greater than i, or i itself when i is Max.
func (i ID) Next() ID {
	switch {
	case i.Seq < math.MaxUint64:
		return ID{Ms: i.Ms, Seq: i.Seq + 1}
	case i.Ms < math.MaxUint64:
		return ID{Ms: i.Ms + 1}
	}
	return i
}

// Prev returns the largest ID smaller than i, or i itself when i is Min.
func (i ID) Prev() ID {
	switch {
	case i.Seq > 0:
		return ID{Ms: i.Ms, Seq: i.Seq - 1}
	case i.Ms > 0:
		return ID{Ms: i.Ms - 1, Seq: math.MaxUint64}
	}
	return i
}

// Parse accepts "<ms>-<seq>" or "<ms>" (sequence 0).
func Parse(s string) (ID, error) {
	msPart, seqPart, hasSeq := strings.Cut(s, "-")
	ms, err := strconv.ParseUint(msPart, 10, 64)
	if err != nil {
		return ID{}, ErrInvalid
	}
	if !hasSeq {
		return ID{Ms: ms}, nil
	}
	seq, err := strconv.ParseUint(seqPart, 10, 64)
	if err != nil {
		return ID{}, ErrInvalid
	}
	return ID{Ms: ms, Seq: seq}, nil
}

// ParseBound parses a range bound. "-" and "+" map to Min and Max. A bare
// "<ms>" is completed with sequence 0 for a start bound and the maximum
// sequence for an end bound, matching XRANGE.
func ParseBound(s string, end bool) (ID, error) {
	switch s {
	case "-":
		return Min, nil
	case "+":
		return Max, nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return ID{}, err
	}
	if end && !strings.Contains(s, "-") {
		parsed.Seq = math.MaxUint64
	}
	return parsed, nil
}

// Generator produces strictly increasing IDs per process.
type Generator struct {
	mu   sync.Mutex
	last ID
}

// NewGenerator creates a new Generator.
func NewGenerator() *Generator { return &Generator{} }

// NowMs returns current time in milliseconds since Unix epoch.
var NowMs = func() int64 { return time.Now().UnixMilli() }

// Restore raises the generator's floor to last. Lower values are ignored.
func (g *Generator) Restore(last ID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.last.Less(last) {
		g.last = last
	}
}

// Last returns the most recent ID issued or restored.
func (g *Generator) Last() ID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

// Next returns a new ID strictly greater than every ID issued before.
func (g *Generator) Next() ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	var next ID
	if ms := NowMs(); ms > 0 && uint64(ms) > g.last.Ms {
		next = ID{Ms: uint64(ms)}
	} else {
		next = g.last.Next()
	}
	g.last = next
	return next
}
