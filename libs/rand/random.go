// Package rand provides a pseudo-random number generator seeded with OS
// randomness. None of the functions are suitable for cryptographic use.
package rand

import (
	crand "crypto/rand"
	"encoding/binary"
	mrand "math/rand"

	cmtsync "github.com/cometbft/flowcontrol/libs/sync"
)

// Rand is a prng seeded from crypto/rand. It is safe for concurrent use.
type Rand struct {
	cmtsync.Mutex
	rand *mrand.Rand
}

var grand = NewRand()

// NewRand returns a generator seeded with OS randomness.
func NewRand() *Rand {
	return &Rand{rand: mrand.New(mrand.NewSource(newSeed()))} //nolint:gosec
}

func newSeed() int64 {
	var seed [8]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic(err)
	}
	return int64(binary.BigEndian.Uint64(seed[:]))
}

// Seed resets the global generator. Tests use it for reproducible runs.
func Seed(seed int64) {
	grand.Seed(seed)
}

func Int63n(n int64) int64 { return grand.Int63n(n) }

func Intn(n int) int { return grand.Intn(n) }

func Bytes(n int) []byte { return grand.Bytes(n) }

func (r *Rand) Seed(seed int64) {
	r.Lock()
	r.rand.Seed(seed)
	r.Unlock()
}

func (r *Rand) Int63n(n int64) int64 {
	r.Lock()
	i := r.rand.Int63n(n)
	r.Unlock()
	return i
}

func (r *Rand) Intn(n int) int {
	r.Lock()
	i := r.rand.Intn(n)
	r.Unlock()
	return i
}

// Bytes returns n random bytes generated from the internal prng.
func (r *Rand) Bytes(n int) []byte {
	bs := make([]byte, n)
	r.Lock()
	for i := range bs {
		bs[i] = byte(r.rand.Intn(256))
	}
	r.Unlock()
	return bs
}
