package quota

import (
	"errors"
	"math"
	"sync"
)

// DefaultReserve is the number of daily provider requests a pass leaves untouched.
const DefaultReserve = 30

var ErrExhausted = errors.New("provider quota exhausted")

// Budget tracks the provider requests one pass may still spend. A nil *Budget
// is unlimited. It is safe for concurrent use.
type Budget struct {
	mu        sync.Mutex
	limit     int
	remaining int
	reserve   int
	consumed  int
	unlimited bool
}

type Snapshot struct {
	Limit     int  `json:"limit"`
	Remaining int  `json:"remaining"`
	Reserve   int  `json:"reserve"`
	Consumed  int  `json:"consumed"`
	Unlimited bool `json:"unlimited"`
}

func NewBudget(limit, remaining, reserve int) *Budget {
	if remaining < 0 {
		remaining = 0
	}
	if reserve < 0 {
		reserve = 0
	}
	return &Budget{
		limit:     limit,
		remaining: remaining,
		reserve:   reserve,
	}
}

func Unlimited() *Budget {
	return &Budget{unlimited: true}
}

// TryConsume spends n units if doing so keeps the reserve intact.
func (b *Budget) TryConsume(n int) bool {
	if b == nil || n <= 0 {
		return true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.unlimited {
		b.consumed += n
		return true
	}
	if b.remaining-n < b.reserve {
		return false
	}
	b.remaining -= n
	b.consumed += n
	return true
}

func (b *Budget) Consume(n int) error {
	if !b.TryConsume(n) {
		return ErrExhausted
	}
	return nil
}

// Refund returns units spent on a call that never reached the provider.
func (b *Budget) Refund(n int) {
	if b == nil || n <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.consumed < n {
		n = b.consumed
	}
	b.consumed -= n
	if !b.unlimited {
		b.remaining += n
	}
}

// Available is the number of units that can be spent above the reserve.
func (b *Budget) Available() int {
	if b == nil {
		return math.MaxInt
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.unlimited {
		return math.MaxInt
	}
	if b.remaining <= b.reserve {
		return 0
	}
	return b.remaining - b.reserve
}

// Affordable returns how many work items costing costPerItem fit in the budget.
func (b *Budget) Affordable(costPerItem int) int {
	available := b.Available()
	if costPerItem <= 0 || available == math.MaxInt {
		return available
	}
	return available / costPerItem
}

func (b *Budget) Exhausted() bool {
	return b.Available() == 0
}

// Observe lowers the remaining count to what the provider reports.
func (b *Budget) Observe(remaining int) {
	if b == nil || remaining < 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.unlimited {
		return
	}
	if remaining < b.remaining {
		b.remaining = remaining
	}
}

func (b *Budget) Snapshot() Snapshot {
	if b == nil {
		return Snapshot{Unlimited: true}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return Snapshot{
		Limit:     b.limit,
		Remaining: b.remaining,
		Reserve:   b.reserve,
		Consumed:  b.consumed,
		Unlimited: b.unlimited,
	}
}
