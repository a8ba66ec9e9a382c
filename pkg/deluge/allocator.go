package deluge

import (
	"math/rand/v2"
	"sort"
)

// pool hands out each of its values at most once, in random order
type pool[T comparable] struct {
	resource  string
	domain    []T
	remaining []T
	used      []T
}

func newPool[T comparable](resource string, domain []T) *pool[T] {
	p := &pool[T]{resource: resource, domain: domain}
	p.reset()
	return p
}

func (p *pool[T]) reset() {
	p.remaining = append(p.remaining[:0], p.domain...)
	p.used = p.used[:0]
}

// take removes a uniformly chosen value from the remaining candidates
func (p *pool[T]) take(r *rand.Rand) (T, error) {
	var zero T
	if len(p.remaining) == 0 {
		return zero, &ExhaustedError{Resource: p.resource, Size: len(p.domain)}
	}
	i := r.IntN(len(p.remaining))
	v := p.remaining[i]
	last := len(p.remaining) - 1
	p.remaining[i] = p.remaining[last]
	p.remaining = p.remaining[:last]
	p.used = append(p.used, v)
	return v, nil
}

// AllocatePreset returns a preset name not yet used in the current scope
func (inj *Injector) AllocatePreset() (string, error) {
	return inj.presets.take(inj.rand)
}

// AllocateColor returns a color offset in [-63, 63] not yet used in the
// current scope.
func (inj *Injector) AllocateColor() (int, error) {
	return inj.colors.take(inj.rand)
}

// UsedPresets returns the presets handed out since the last reset, sorted
func (inj *Injector) UsedPresets() []string {
	out := append([]string(nil), inj.presets.used...)
	sort.Strings(out)
	return out
}

// UsedColors returns the color offsets handed out since the last reset, sorted
func (inj *Injector) UsedColors() []int {
	out := append([]int(nil), inj.colors.used...)
	sort.Ints(out)
	return out
}

// Reset starts a fresh allocation scope. Inject calls it on entry.
func (inj *Injector) Reset() {
	inj.presets.reset()
	inj.colors.reset()
}
