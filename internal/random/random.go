package random

import (
	"crypto/rand"
	"math/big"
	mathrand "math/rand/v2"
	"sync"
)

var allowedLetters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

// Letters returns n random ASCII letters drawn from crypto/rand.
func Letters(n uint) (string, error) {
	letters := make([]rune, n)
	for i := range letters {
		letterIndex, err := rand.Int(rand.Reader, big.NewInt(int64(len(allowedLetters))))
		if err != nil {
			return "", err
		}
		letters[i] = allowedLetters[letterIndex.Int64()]
	}
	return string(letters), nil
}

// Coin is a fair coin. Implementations must return heads with probability 0.5.
type Coin interface {
	Flip() (bool, error)
}

// CryptoCoin flips using crypto/rand.
type CryptoCoin struct{}

func (CryptoCoin) Flip() (bool, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(2)) //nolint:mnd // two sides
	if err != nil {
		return false, err
	}
	return n.Int64() == 1, nil
}

// SeededCoin is a deterministic coin for tests and replays. It is safe for concurrent use.
type SeededCoin struct {
	mu  sync.Mutex
	rng *mathrand.Rand
}

func NewSeededCoin(seed uint64) *SeededCoin {
	return &SeededCoin{
		rng: mathrand.New(mathrand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), //nolint:gosec // not for secrets.
	}
}

func (c *SeededCoin) Flip() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.IntN(2) == 1, nil //nolint:mnd // two sides
}

// FixedCoin always lands on the same side.
type FixedCoin bool

func (c FixedCoin) Flip() (bool, error) {
	return bool(c), nil
}
