package draw

import (
	"math/rand/v2"
	"sync"

	"prizedraw/internal/models"
)

// Sampler draws winners without replacement by shuffling the pool and taking
// a prefix. Every permutation is equally likely.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampler returns a sampler over src. A nil src uses a randomly seeded PCG.
func NewSampler(src rand.Source) *Sampler {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Sampler{rng: rand.New(src)}
}

// Sample returns min(count, len(pool)) distinct participants. A short result
// is not an error; the caller decides whether it is enough.
func (s *Sampler) Sample(pool []models.Participant, count int) []models.Participant {
	if count <= 0 || len(pool) == 0 {
		return nil
	}
	shuffled := make([]models.Participant, len(pool))
	copy(shuffled, pool)

	s.mu.Lock()
	s.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	s.mu.Unlock()

	if count > len(shuffled) {
		count = len(shuffled)
	}
	return shuffled[:count]
}
