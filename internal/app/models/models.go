package models

// RoleType defines the user role type
type RoleType string

const (
	RoleStudent RoleType = "student"
	RoleMentor  RoleType = "mentor"
)

// Valid reports whether r is one of the known roles
func (r RoleType) Valid() bool {
	return r == RoleStudent || r == RoleMentor
}

// Availability is a mentor's self-reported capacity
type Availability string

const (
	AvailabilityAvailable   Availability = "available"
	AvailabilityBusy        Availability = "busy"
	AvailabilityUnavailable Availability = "unavailable"
)

// Valid reports whether a is one of the known availability values
func (a Availability) Valid() bool {
	switch a {
	case AvailabilityAvailable, AvailabilityBusy, AvailabilityUnavailable:
		return true
	}
	return false
}

// MentorshipStatus tracks where a student is in the pairing lifecycle
type MentorshipStatus string

const (
	MentorshipNone      MentorshipStatus = "none"
	MentorshipPending   MentorshipStatus = "pending"
	MentorshipActive    MentorshipStatus = "active"
	MentorshipCompleted MentorshipStatus = "completed"
)
