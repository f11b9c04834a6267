// Package prng implements a Fortuna-style generator: entropy is hashed
// into a growing set of SHA-256 pools, the pools reseed an AES-256 key on a
// doubling schedule, and output is AES in counter mode, re-keyed after
// every request.
package prng

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fieldcrypt/client-go/internal/bitarray"
	"github.com/fieldcrypt/client-go/internal/blockcipher"
	"github.com/fieldcrypt/client-go/internal/digest"
)

// Listener receives event notifications.
type Listener func(value float64)

// ListenerID identifies a registered listener.
type ListenerID int

// Option configures a Generator.
type Option func(*Generator)

// WithClock sets the time source used for reseed scheduling and entropy
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// WithSystemSource sets the reader mixed into every reseed and used by
// NewSeeded. Defaults to crypto/rand.
func WithSystemSource(r io.Reader) Option {
	return func(g *Generator) {
		g.sys = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Entry) Option {
	return func(g *Generator) {
		g.log = l
	}
}

// Generator is safe for concurrent use. The ready check, any reseed and
// the output of one RandomWords call happen under a single lock.
type Generator struct {
	mu sync.Mutex

	pools        []*digest.SHA256
	poolEntropy  []int
	reseedCount  int
	robins       map[string]int
	collectorIDs map[string]uint32
	nextID       uint32
	eventID      uint32

	strength     int
	poolStrength int
	nextReseed   time.Time

	key     [8]uint32
	counter [4]uint32
	cipher  *blockcipher.AES

	defaultParanoia int

	listeners    map[Event]map[ListenerID]Listener
	nextListener ListenerID

	now func() time.Time
	sys io.Reader
	log *logrus.Entry

	collectMu  sync.Mutex
	collectRun *collectRun
}

// New returns an empty generator. It is not ready until entropy is added.
func New(opts ...Option) *Generator {
	g := &Generator{
		pools:           []*digest.SHA256{digest.New()},
		poolEntropy:     []int{0},
		robins:          make(map[string]int),
		collectorIDs:    make(map[string]uint32),
		defaultParanoia: DefaultParanoia,
		listeners: map[Event]map[ListenerID]Listener{
			EventSeeded:   {},
			EventProgress: {},
		},
		now: time.Now,
		sys: rand.Reader,
		log: logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log = g.log.WithField("component", "prng")
	return g
}

// NewSeeded returns a generator credited with SeedBits of entropy read
// from the system source.
func NewSeeded(opts ...Option) (*Generator, error) {
	g := New(opts...)

	words, err := g.readSystemWords(SeedBits / 32)
	if err != nil {
		return nil, err
	}
	if err := g.AddEntropy(words, SeedBits, systemSource); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Generator) readSystemWords(n int) ([]uint32, error) {
	buf := make([]byte, 4*n)
	if _, err := io.ReadFull(g.sys, buf); err != nil {
		return nil, fmt.Errorf("random: read system source: %w", err)
	}
	words := make([]uint32, n)
	for i := range words {
		words[i] = binary.BigEndian.Uint32(buf[4*i:])
	}
	return words, nil
}

// SetDefaultParanoia sets the level used when callers pass a negative one.
func (g *Generator) SetDefaultParanoia(paranoia int) error {
	if paranoia < 0 || paranoia >= len(ParanoiaLevels) {
		return fmt.Errorf("%w: %d", ErrInvalidParanoia, paranoia)
	}
	g.mu.Lock()
	g.defaultParanoia = paranoia
	g.mu.Unlock()
	return nil
}

func (g *Generator) required(paranoia int) int {
	if paranoia < 0 {
		paranoia = g.defaultParanoia
	}
	if paranoia >= len(ParanoiaLevels) {
		paranoia = len(ParanoiaLevels) - 1
	}
	return ParanoiaLevels[paranoia]
}

// IsReady reports readiness at a paranoia level; negative means default.
func (g *Generator) IsReady(paranoia int) Readiness {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.isReady(paranoia)
}

func (g *Generator) isReady(paranoia int) Readiness {
	required := g.required(paranoia)

	if g.strength > 0 && g.strength >= required {
		if g.poolEntropy[0] > BitsPerReseed && g.now().After(g.nextReseed) {
			return Ready | RequiresReseed
		}
		return Ready
	}
	if g.poolStrength >= required {
		return RequiresReseed | NotReady
	}
	return NotReady
}

// Progress returns the fraction of the required entropy collected, in [0, 1].
func (g *Generator) Progress(paranoia int) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.progress(paranoia)
}

// PoolStrength returns the estimated entropy bits collected in the pools
// since the last reseed.
func (g *Generator) PoolStrength() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.poolStrength
}

func (g *Generator) progress(paranoia int) float64 {
	required := g.required(paranoia)
	if g.strength >= required || g.poolStrength > required {
		return 1
	}
	return float64(g.poolStrength) / float64(required)
}

// RandomWords returns n random words. It fails with ErrNotReady when the
// generator has too little entropy for paranoia.
func (g *Generator) RandomWords(n, paranoia int) ([]uint32, error) {
	if n < 0 {
		return nil, fmt.Errorf("random: negative word count %d", n)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	readiness := g.isReady(paranoia)
	if readiness == NotReady {
		NotReadyCounter.Inc()
		return nil, fmt.Errorf("%w: %d of %d bits", ErrNotReady, g.poolStrength, g.required(paranoia))
	}
	if readiness&RequiresReseed != 0 {
		if err := g.reseedFromPools(readiness&Ready == 0); err != nil {
			return nil, err
		}
	}

	out := make([]uint32, 0, n+3)
	for i := 0; i < n; i += 4 {
		if i > 0 && i%MaxWordsPerBurst == 0 {
			g.gate()
		}
		w := g.gen4Words()
		out = append(out, w[:]...)
	}
	g.gate()

	return out[:n], nil
}

// AddEntropy hashes data into the next pool for source and credits
// estimatedBits to it. data may be an integer, a []uint32 or a string; a
// negative estimate selects a default for the type (1 bit per integer, the
// significant bits of each word, or 1 bit per byte).
func (g *Generator) AddEntropy(data any, estimatedBits int, source string) error {
	if source == "" {
		source = "user"
	}

	var (
		kind   uint32
		header int
		words  []uint32
		text   string
	)
	switch v := data.(type) {
	case uint32:
		kind, words, header = 1, []uint32{v}, 1
	case int:
		kind, words, header = 1, []uint32{uint32(v)}, 1
	case int32:
		kind, words, header = 1, []uint32{uint32(v)}, 1
	case int64:
		kind, words, header = 1, []uint32{uint32(v)}, 1
	case []uint32:
		kind, words, header = 2, v, len(v)
	case string:
		kind, text, header = 3, v, len(v)
	default:
		return fmt.Errorf("%w: got %T", ErrUnsupportedEntropy, data)
	}

	if estimatedBits < 0 {
		switch kind {
		case 1:
			estimatedBits = 1
		case 2:
			estimatedBits = 0
			for _, w := range words {
				estimatedBits += bits.Len32(w)
			}
		case 3:
			estimatedBits = len(text)
		}
	}

	g.mu.Lock()
	oldReady := g.isReady(-1)

	id, ok := g.collectorIDs[source]
	if !ok {
		id = g.nextID
		g.collectorIDs[source] = id
		g.nextID++
	}
	robin := g.robins[source]
	g.robins[source] = (robin + 1) % len(g.pools)

	t := uint32(g.now().UnixMilli())
	event := []uint32{id, g.eventID, kind, uint32(estimatedBits), t, uint32(header)}
	g.eventID++

	pool := g.pools[robin]
	pool.Update(bitarray.FromWords(append(event, words...)...))
	if kind == 3 {
		pool.UpdateString(text)
	}

	g.poolEntropy[robin] += estimatedBits
	g.poolStrength += estimatedBits

	var notify []func()
	if oldReady == NotReady {
		if g.isReady(-1) != NotReady {
			notify = append(notify, g.fire(EventSeeded, float64(max(g.strength, g.poolStrength))))
		}
		notify = append(notify, g.fire(EventProgress, g.progress(-1)))
	}
	g.mu.Unlock()

	EntropyBitsCounter.WithLabelValues(source).Add(float64(estimatedBits))
	for _, f := range notify {
		f()
	}
	return nil
}

// reseedFromPools mixes system randomness and finalized pools into the key.
// Pool i takes part in every 2^i-th reseed unless full is set, and a new
// pool is added once the last one has been used.
func (g *Generator) reseedFromPools(full bool) error {
	sys, err := g.readSystemWords(16)
	if err != nil {
		return err
	}

	g.nextReseed = g.now().Add(ReseedInterval)
	ms := uint64(g.nextReseed.UnixMilli())
	seed := append([]uint32{uint32(ms >> 32), uint32(ms)}, sys...)

	strength := 0
	for i := range g.pools {
		seed = append(seed, g.pools[i].Finalize().Words()...)
		strength += g.poolEntropy[i]
		g.poolEntropy[i] = 0

		if !full && g.reseedCount&(1<<i) != 0 {
			break
		}
	}

	if g.reseedCount >= 1<<len(g.pools) {
		g.pools = append(g.pools, digest.New())
		g.poolEntropy = append(g.poolEntropy, 0)
	}

	g.poolStrength -= strength
	if strength > g.strength {
		g.strength = strength
	}

	g.reseedCount++
	g.reseed(seed)

	ReseedCounter.Inc()
	g.log.WithFields(logrus.Fields{
		"reseed_count": g.reseedCount,
		"pools":        len(g.pools),
		"full":         full,
	}).Debugln("Generator reseeded")
	return nil
}

// reseed sets key = SHA-256(key || seed).
func (g *Generator) reseed(seed []uint32) {
	h := digest.New().
		Update(bitarray.FromWords(g.key[:]...)).
		Update(bitarray.FromWords(seed...)).
		Finalize()
	copy(g.key[:], h.Words())
	g.rekey()
	g.incrementCounter()
}

// gate replaces the key with the next two output blocks.
func (g *Generator) gate() {
	a, b := g.gen4Words(), g.gen4Words()
	copy(g.key[:4], a[:])
	copy(g.key[4:], b[:])
	g.rekey()
}

func (g *Generator) rekey() {
	c, err := blockcipher.NewAES(g.key[:])
	if err != nil {
		panic(err) // the key is always eight words
	}
	g.cipher = c
}

// gen4Words encrypts the incremented counter.
func (g *Generator) gen4Words() [4]uint32 {
	g.incrementCounter()
	return g.cipher.Encrypt(g.counter)
}

// incrementCounter adds one to the counter, word 0 first.
func (g *Generator) incrementCounter() {
	for i := range g.counter {
		g.counter[i]++
		if g.counter[i] != 0 {
			break
		}
	}
}

// AddListener registers fn for event.
func (g *Generator) AddListener(event Event, fn Listener) ListenerID {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.listeners[event] == nil {
		g.listeners[event] = make(map[ListenerID]Listener)
	}
	id := g.nextListener
	g.nextListener++
	g.listeners[event][id] = fn
	return id
}

// RemoveListener unregisters a listener. Unknown IDs are ignored.
func (g *Generator) RemoveListener(event Event, id ListenerID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.listeners[event], id)
}

// fire snapshots the listeners for event; the returned func calls them
// and must run without g.mu held.
func (g *Generator) fire(event Event, value float64) func() {
	fns := make([]Listener, 0, len(g.listeners[event]))
	for _, fn := range g.listeners[event] {
		fns = append(fns, fn)
	}
	return func() {
		for _, fn := range fns {
			fn(value)
		}
	}
}
