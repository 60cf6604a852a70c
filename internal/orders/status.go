package orders

import "strings"

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

// Statuses lists every known status in lifecycle order.
var Statuses = []Status{StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled}

// adminNext is the set of status overwrites an administrator may apply.
// Every known status may be set from every other one.
var adminNext = func() map[Status]map[Status]bool {
	m := make(map[Status]map[Status]bool, len(Statuses))
	for _, from := range Statuses {
		m[from] = make(map[Status]bool, len(Statuses))
		for _, to := range Statuses {
			m[from][to] = true
		}
	}
	return m
}()

// cancelFrom holds the statuses an owner may cancel from.
var cancelFrom = map[Status]bool{StatusPending: true}

func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Statuses {
		if st == known {
			return st, true
		}
	}
	return "", false
}

func CanTransition(from, to Status) bool {
	return adminNext[from][to]
}

func CanCancel(from Status) bool {
	return cancelFrom[from]
}
