package table

type State string

const (
	StateAvailable      State = "AVAILABLE"
	StateOpen           State = "OPEN"
	StatePendingPayment State = "PENDING_PAYMENT"
	StateClosed         State = "CLOSED"
)

func (s State) Valid() bool {
	switch s {
	case StateAvailable, StateOpen, StatePendingPayment, StateClosed:
		return true
	}
	return false
}

type Table struct {
	ID       int64
	Name     string
	State    State
	RoomID   int64
	RoomName string
}
