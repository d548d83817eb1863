package cache

// ValidationError reports a malformed key or path list.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// ReservationError reports that a cache operation had nowhere to look.
type ReservationError struct {
	Msg string
}

func (e *ReservationError) Error() string {
	return e.Msg
}
