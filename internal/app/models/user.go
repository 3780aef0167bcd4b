package models

import (
	"time"
)

// User defines the user model based on the 'users' table
type User struct {
	ID        int64    `json:"id" db:"id" example:"1"`
	Name      string   `json:"name" db:"name" example:"Ada Lovelace"`
	Email     string   `json:"email" db:"email" example:"ada@example.com"`
	Password  string   `json:"-" db:"password"`
	Role      RoleType `json:"role" db:"role" example:"student"`

	// Mentor profile
	Domain       string       `json:"domain,omitempty" db:"domain" example:"Backend"`
	Experience   string       `json:"experience,omitempty" db:"experience"`
	Bio          string       `json:"bio,omitempty" db:"bio"`
	Availability Availability `json:"availability,omitempty" db:"availability" example:"available"`
	Rating       float64      `json:"rating" db:"rating" example:"4.5"`
	TotalRatings int          `json:"totalRatings" db:"total_ratings"`

	// Owned by the mentorship workflow
	AssignedMentorID *int64          `json:"assignedMentor,omitempty" db:"assigned_mentor_id"`
	MentorshipStatus MentorshipStatus `json:"mentorshipStatus" db:"mentorship_status" example:"none"`

	// Owned by gamification
	Gamification Gamification `json:"gamification"`

	UnreadNotifications int        `json:"unreadNotifications" db:"unread_notifications"`
	LastActiveAt        *time.Time `json:"lastActive,omitempty" db:"last_active_at"`
	CreatedAt           time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt           time.Time  `json:"updatedAt" db:"updated_at"`
}

// IsMentor reports whether the user has the mentor role
func (u *User) IsMentor() bool {
	return u != nil && u.Role == RoleMentor
}

// IsStudent reports whether the user has the student role
func (u *User) IsStudent() bool {
	return u != nil && u.Role == RoleStudent
}

// HasMentor reports whether the student is assigned to any mentor
func (u *User) HasMentor() bool {
	return u != nil && u.AssignedMentorID != nil
}

// IsAssignedTo reports whether the student is assigned to mentorID
func (u *User) IsAssignedTo(mentorID int64) bool {
	return u.HasMentor() && *u.AssignedMentorID == mentorID
}

// Paired reports whether a and b form a student/mentor pairing, in either order
func Paired(a, b *User) bool {
	switch {
	case a.IsStudent() && b.IsMentor():
		return a.IsAssignedTo(b.ID)
	case a.IsMentor() && b.IsStudent():
		return b.IsAssignedTo(a.ID)
	}
	return false
}
