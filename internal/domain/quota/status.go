package quota

import "context"

// Status is the provider's daily request accounting.
type Status struct {
	LimitDay int `json:"limit_day"`
	Current  int `json:"current"`
}

func (s Status) Remaining() int {
	if s.LimitDay <= s.Current {
		return 0
	}
	return s.LimitDay - s.Current
}

// Budget opens a budget over what is left today.
func (s Status) Budget(reserve int) *Budget {
	return NewBudget(s.LimitDay, s.Remaining(), reserve)
}

type Source interface {
	FetchQuotaStatus(ctx context.Context) (Status, error)
}
