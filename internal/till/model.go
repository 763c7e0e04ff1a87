package till

import "time"

// Period is one cash-register session. Orders can only close while a period
// for the current business date is open.
type Period struct {
	ID           int64
	BusinessDate time.Time
	OpenedAt     time.Time
	ClosedAt     *time.Time
}

func (p *Period) IsOpen() bool {
	return p.ClosedAt == nil
}
