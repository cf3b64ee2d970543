package bank

import "math/rand"

// Picker selects questions for one session. Selection is random within the
// unused pool but reproducible for a fixed seed, so tests can pin the order
// while candidates cannot predict it.
type Picker struct {
	bank *Bank
	rng  *rand.Rand
}

// NewPicker creates a per-session picker over the shared bank.
func NewPicker(b *Bank, seed int64) *Picker {
	return &Picker{
		bank: b,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// fallbackOrder lists the tiers to draw from when the requested one has no
// unused questions left: nearer tiers first, lower before higher. The
// session's difficulty pointer is not affected by a fallback draw.
func fallbackOrder(d Difficulty) []Difficulty {
	switch d {
	case Easy:
		return []Difficulty{Medium, Hard}
	case Medium:
		return []Difficulty{Easy, Hard}
	default:
		return []Difficulty{Medium, Easy}
	}
}

// Next returns a random unused question at the given difficulty, falling back
// to adjacent tiers for supply only. It returns ErrNoQuestions when every
// unused pool is empty. The bank itself is never mutated.
func (p *Picker) Next(d Difficulty, excluded map[string]bool) (*Question, error) {
	for _, tier := range append([]Difficulty{d}, fallbackOrder(d)...) {
		var unused []*Question
		for _, q := range p.bank.pools[tier] {
			if !excluded[q.ID] {
				unused = append(unused, q)
			}
		}

		if len(unused) > 0 {
			return unused[p.rng.Intn(len(unused))], nil
		}
	}

	return nil, ErrNoQuestions
}
