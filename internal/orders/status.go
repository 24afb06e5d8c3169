package orders

type Status string

const (
	StatusNew       Status = "NEW"
	StatusConfirmed Status = "CONFIRMED"
	StatusPrep      Status = "PREP"
	StatusInTransit Status = "IN_TRANSIT"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

func ValidStatus(s Status) bool {
	switch s {
	case StatusNew, StatusConfirmed, StatusPrep, StatusInTransit, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal statuses have no outgoing transitions for any role.
func IsTerminal(s Status) bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Role is the permission class of the actor requesting a transition. The
// caller resolves it before reaching the core; it is trusted here.
type Role string

const (
	RoleOperations Role = "operations"
	RoleCourier    Role = "courier"
)

func ValidRole(r Role) bool {
	return r == RoleOperations || r == RoleCourier
}

// validNext is the exhaustive actor-scoped transition table. Anything
// outside an actor's row is rejected.
var validNext = map[Role]map[Status]map[Status]bool{
	RoleOperations: {
		StatusNew:       {StatusConfirmed: true, StatusPrep: true},
		StatusConfirmed: {StatusPrep: true, StatusCancelled: true},
		StatusPrep:      {StatusInTransit: true, StatusCancelled: true},
	},
	RoleCourier: {
		StatusNew:       {StatusConfirmed: true, StatusPrep: true},
		StatusConfirmed: {StatusInTransit: true},
		StatusPrep:      {StatusInTransit: true},
		StatusInTransit: {StatusDelivered: true, StatusCancelled: true},
	},
}

func CanTransition(role Role, from, to Status) bool {
	return validNext[role][from][to]
}
