package prng

import "time"

// Readiness is a bit set describing whether the generator can produce
// output at a paranoia level.
type Readiness int

const (
	NotReady       Readiness = 0
	Ready          Readiness = 1
	RequiresReseed Readiness = 2
)

func (r Readiness) String() string {
	switch r {
	case NotReady:
		return "not ready"
	case Ready:
		return "ready"
	case RequiresReseed:
		return "requires reseed"
	case Ready | RequiresReseed:
		return "ready, requires reseed"
	}
	return "unknown"
}

// ParanoiaLevels maps a paranoia level to the bits of entropy required.
var ParanoiaLevels = [...]int{0, 48, 64, 96, 128, 192, 256, 384, 512, 768, 1024}

const (
	// DefaultParanoia is used when a caller passes a negative level.
	DefaultParanoia = 6

	// ReseedInterval is the minimum time between timed reseeds.
	ReseedInterval = 30 * time.Second

	// BitsPerReseed is the pool-0 entropy needed before a timed reseed.
	BitsPerReseed = 80

	// MaxWordsPerBurst is how many words are produced under one key.
	MaxWordsPerBurst = 65536

	// SeedBits is the entropy credited to the system seed of NewSeeded.
	SeedBits = 1024

	systemSource = "crypto/rand"
)

// Event names a listener notification.
type Event string

const (
	// EventSeeded fires once, when the generator first becomes ready.
	// The argument is the accumulated strength in bits.
	EventSeeded Event = "seeded"
	// EventProgress fires on each entropy addition made while not ready.
	// The argument is Progress at the default paranoia.
	EventProgress Event = "progress"
)
