package testfixtures

import "math/rand/v2"

// SeededRandom returns a deterministic PCG backed generator.
func SeededRandom(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// ScriptedRandom replays a fixed list of values, each reduced modulo n. Once the
// script is exhausted it returns 0.
type ScriptedRandom struct {
	values []int
	next   int
}

// NewScriptedRandom builds a ScriptedRandom replaying values in order.
func NewScriptedRandom(values ...int) *ScriptedRandom {
	return &ScriptedRandom{values: values}
}

// IntN returns the next scripted value in [0, n).
func (s *ScriptedRandom) IntN(n int) int {
	if s.next >= len(s.values) || n <= 0 {
		return 0
	}
	v := s.values[s.next] % n
	s.next++
	if v < 0 {
		v += n
	}
	return v
}
