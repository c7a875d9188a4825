package itemstack

import (
	"fmt"

	"github.com/df-mc/dragonfly/server/item"
)

// Split takes up to amount items off s. taken holds min(amount, count) items;
// remaining is empty when nothing is left.
func Split(s item.Stack, amount int) (taken, remaining item.Stack, err error) {
	if amount <= 0 {
		return item.Stack{}, s, fmt.Errorf("%w: split amount must be positive, got %d", ErrInvalidArgument, amount)
	}
	if s.Empty() {
		return item.Stack{}, item.Stack{}, nil
	}
	n := min(amount, s.Count())
	taken = s.Grow(n - s.Count())
	if n == s.Count() {
		return taken, item.Stack{}, nil
	}
	return taken, s.Grow(-n), nil
}

// ClampDurability clamps d to [0, max].
func ClampDurability(d, max int) int {
	if d < 0 {
		return 0
	}
	if d > max {
		return max
	}
	return d
}

// DamageBy lowers the durability of s by n without breaking it. Stacks without
// durability and unbreakable stacks are returned unchanged.
func DamageBy(s item.Stack, n int) item.Stack {
	if s.MaxDurability() <= 0 || s.Unbreakable() {
		return s
	}
	return s.WithDurability(ClampDurability(s.Durability()-n, s.MaxDurability()))
}

// Repair raises the durability of s by n, up to its maximum.
func Repair(s item.Stack, n int) item.Stack {
	if s.MaxDurability() <= 0 {
		return s
	}
	return s.WithDurability(ClampDurability(s.Durability()+n, s.MaxDurability()))
}
