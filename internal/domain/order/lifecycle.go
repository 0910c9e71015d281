package order

// transitions is the forward edge set of the fulfilment state machine.
// Cancellation is deliberately absent: it goes through Cancel, never
// the generic status setter.
var transitions = map[Status][]Status{
	StatusPending:        {StatusScheduled, StatusConfirmed},
	StatusScheduled:      {StatusConfirmed},
	StatusConfirmed:      {StatusPickedUp},
	StatusPickedUp:       {StatusAtFacility},
	StatusAtFacility:     {StatusCleaning},
	StatusCleaning:       {StatusReady},
	StatusReady:          {StatusOutForDelivery},
	StatusOutForDelivery: {StatusDelivered},
}

// CanTransition reports whether the generic status setter may move an
// order from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Cancellable reports whether a customer may still cancel from the
// given status.
func Cancellable(from Status) bool {
	switch from {
	case StatusPending, StatusConfirmed, StatusScheduled:
		return true
	}
	return false
}
