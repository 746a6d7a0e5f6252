package ssao

import (
	"fmt"
	"slices"
)

// Keywords is a group of mutually exclusive shader keywords. Enabling one
// member clears the others, so at most one is active at any time.
//
// The zero value is an empty group that accepts no keywords.
type Keywords struct {
	names  []string
	active int // index into names, -1 when none is enabled
}

// NewKeywords creates an exclusive group with no keyword enabled.
// Duplicate names are ignored.
func NewKeywords(names ...string) Keywords {
	k := Keywords{active: -1}
	for _, n := range names {
		if n != "" && !slices.Contains(k.names, n) {
			k.names = append(k.names, n)
		}
	}
	return k
}

// Has reports whether name belongs to the group.
func (k *Keywords) Has(name string) bool {
	return slices.Contains(k.names, name)
}

// Enable makes name the single active keyword of the group.
func (k *Keywords) Enable(name string) error {
	i := slices.Index(k.names, name)
	if i < 0 {
		return fmt.Errorf("ssao: keyword %q: %w", name, ErrUnknownKeyword)
	}
	k.active = i
	return nil
}

// Clear disables every keyword of the group.
func (k *Keywords) Clear() {
	k.active = -1
}

// Active returns the enabled keyword, if any.
func (k *Keywords) Active() (string, bool) {
	if k.active < 0 || k.active >= len(k.names) {
		return "", false
	}
	return k.names[k.active], true
}

// Index returns the position of the enabled keyword, or -1.
func (k *Keywords) Index() int {
	if _, ok := k.Active(); !ok {
		return -1
	}
	return k.active
}

// Enabled lists the enabled keywords. It never holds more than one entry.
func (k *Keywords) Enabled() []string {
	if name, ok := k.Active(); ok {
		return []string{name}
	}
	return nil
}
