package model

// Actor is the read model this service consumes from the portal's user
// store. The user service owns the records; scheduling only reads them.
type Actor struct {
	ID   string
	Role Role

	// Availability window in minutes from midnight. Nil when the actor has
	// not configured working hours; such an actor has no bookable slots.
	WindowStart *int
	WindowEnd   *int

	// BookingApproved gates student-initiated bookings. Teachers are
	// always approved.
	BookingApproved bool

	Deleted bool
}

func (a Actor) HasWindow() bool {
	return a.WindowStart != nil && a.WindowEnd != nil
}
