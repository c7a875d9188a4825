package ecs

import "math/bits"

// Bitmask records component presence, one bit per ComponentID.
type Bitmask [4]uint64

// Set marks id as present.
func (m *Bitmask) Set(id ComponentID) {
	m[id>>6] |= 1 << (id & 63)
}

// Clear marks id as absent.
func (m *Bitmask) Clear(id ComponentID) {
	m[id>>6] &^= 1 << (id & 63)
}

// Has reports whether id is present.
func (m Bitmask) Has(id ComponentID) bool {
	return m[id>>6]&(1<<(id&63)) != 0
}

// ContainsAll reports whether every bit of other is set in m.
func (m Bitmask) ContainsAll(other Bitmask) bool {
	for i := range m {
		if m[i]&other[i] != other[i] {
			return false
		}
	}
	return true
}

// ContainsAny reports whether m and other share a bit.
func (m Bitmask) ContainsAny(other Bitmask) bool {
	for i := range m {
		if m[i]&other[i] != 0 {
			return true
		}
	}
	return false
}

// IsZero reports whether no bit is set.
func (m Bitmask) IsZero() bool {
	return m == Bitmask{}
}

// Count returns the number of set bits.
func (m Bitmask) Count() int {
	n := 0
	for _, w := range m {
		n += bits.OnesCount64(w)
	}
	return n
}
