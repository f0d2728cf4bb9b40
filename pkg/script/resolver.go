package script

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
)

// Sampler draws uniform samples in [0,1).
type Sampler interface {
	Float64() float64
}

// SamplerFunc adapts a function to Sampler.
type SamplerFunc func() float64

func (f SamplerFunc) Float64() float64 { return f() }

// NewSeededSampler returns a PCG sampler seeded from crypto/rand.
func NewSeededSampler() (Sampler, error) {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		return nil, fmt.Errorf("read random seed: %w", err)
	}
	return rand.New(rand.NewPCG(binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:]))), nil
}

// Stats summarizes the scripts known to a resolver.
type Stats struct {
	TotalScripts int      `json:"total_scripts"`
	TotalSteps   int      `json:"total_steps"`
	Keys         []string `json:"available_keys"`
}

// Resolver turns scenario keys into step path structures, drawing branch
// outcomes from its sampler. Two resolutions of the same key may differ, so
// callers that render a structure more than once must keep the result.
type Resolver struct {
	mu      sync.Mutex
	scripts map[string]Script
	sampler Sampler
}

// NewResolver creates a resolver over the given scripts. A nil sampler falls
// back to a seeded PCG, or to the global source if seeding fails.
func NewResolver(sampler Sampler, scripts ...Script) *Resolver {
	if sampler == nil {
		s, err := NewSeededSampler()
		if err != nil {
			s = SamplerFunc(rand.Float64)
		}
		sampler = s
	}
	r := &Resolver{
		scripts: make(map[string]Script, len(scripts)),
		sampler: sampler,
	}
	for _, s := range scripts {
		r.scripts[s.Key] = s
	}
	return r
}

// NewDefaultResolver creates a resolver over the built-in scripts.
func NewDefaultResolver(sampler Sampler) *Resolver {
	return NewResolver(sampler, Builtin()...)
}

// Add registers or replaces a script.
func (r *Resolver) Add(s Script) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scripts[s.Key] = s
}

// Script returns the unresolved script for a key.
func (r *Resolver) Script(key string) (Script, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.scripts[key]
	return s, ok
}

// Keys returns the known scenario keys, sorted.
func (r *Resolver) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.scripts))
	for k := range r.scripts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Stats reports script and step totals.
func (r *Resolver) Stats() Stats {
	keys := r.Keys()
	r.mu.Lock()
	defer r.mu.Unlock()
	st := Stats{TotalScripts: len(keys), Keys: keys}
	for _, k := range keys {
		st.TotalSteps += len(r.scripts[k].Steps)
	}
	return st
}

// Resolve draws branch outcomes for the script under key and returns the
// full 5-column structure. Unknown keys and short scripts resolve to
// DefaultStructure.
func (r *Resolver) Resolve(key string) Structure {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.scripts[key]
	if !ok || len(s.Steps) < StepCount {
		return DefaultStructure()
	}

	st := Structure{}
	st[ColumnKing] = kingStep
	st[ColumnGoal] = goalStep
	for i := 0; i < StepCount; i++ {
		st[i+1] = stepInfo(r.pick(s.Steps[i]))
	}
	return st
}

// pick draws at most one sample for a step.
func (r *Resolver) pick(s Step) Step {
	if s.Branch == nil {
		return s
	}
	if r.sampler.Float64() < s.Branch.Probability {
		return s.Branch.Alternative
	}
	return s
}

var (
	ErrMissingKey     = errors.New("script key is required")
	ErrTooFewSteps    = errors.New("script needs at least 3 steps")
	ErrBadProbability = errors.New("branch probability must be within [0,1]")
)

// Validate checks that a script can be resolved without falling back.
func Validate(s Script) error {
	if s.Key == "" {
		return ErrMissingKey
	}
	if len(s.Steps) < StepCount {
		return fmt.Errorf("%s: %w", s.Key, ErrTooFewSteps)
	}
	for i, step := range s.Steps {
		if step.Title == "" {
			return fmt.Errorf("%s: step %d has no title", s.Key, i+1)
		}
		if step.Branch == nil {
			continue
		}
		if p := step.Branch.Probability; p < 0 || p > 1 {
			return fmt.Errorf("%s: step %d: %w", s.Key, i+1, ErrBadProbability)
		}
		if step.Branch.Alternative.Title == "" {
			return fmt.Errorf("%s: step %d branch has no title", s.Key, i+1)
		}
	}
	return nil
}
