package models

import (
	"fmt"
	"time"

	"github.com/yigit/mentorconnect/internal/pkg/apperrors"
)

// RequestStatus is the state of a mentorship request. Both answers are terminal.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestRejected RequestStatus = "rejected"
)

// MaxRequestMessageLength bounds the note a student attaches to a request
const MaxRequestMessageLength = 500

// MentorshipRequest is a student's ask to be mentored by a specific mentor
type MentorshipRequest struct {
	ID              int64         `json:"id" db:"id"`
	StudentID       int64         `json:"studentId" db:"student_id"`
	MentorID        int64         `json:"mentorId" db:"mentor_id"`
	Status          RequestStatus `json:"status" db:"status" example:"pending"`
	Message         string        `json:"message" db:"message"`
	ResponseMessage string        `json:"responseMessage,omitempty" db:"response_message"`
	CreatedAt       time.Time     `json:"createdAt" db:"created_at"`
	RespondedAt     *time.Time    `json:"respondedAt,omitempty" db:"responded_at"`

	// Related entities
	Student *User `json:"student,omitempty"`
	Mentor  *User `json:"mentor,omitempty"`
}

// Resolve moves a pending request to its terminal decision
func (r *MentorshipRequest) Resolve(decision RequestStatus, responseMessage string, now time.Time) error {
	if decision != RequestAccepted && decision != RequestRejected {
		return apperrors.NewInvalidArgumentError(fmt.Sprintf("decision must be %q or %q", RequestAccepted, RequestRejected))
	}
	if r.Status != RequestPending {
		return fmt.Errorf("%w: request is already %s", apperrors.ErrRequestAlreadyClosed, r.Status)
	}

	r.Status = decision
	r.ResponseMessage = responseMessage
	r.RespondedAt = &now
	return nil
}

// MentorReview is a student's rating of their mentor
type MentorReview struct {
	ID        int64     `json:"id" db:"id"`
	MentorID  int64     `json:"mentorId" db:"mentor_id"`
	StudentID int64     `json:"studentId" db:"student_id"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   string    `json:"comment,omitempty" db:"comment"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// PairingMode says which slice of users a viewer is shown
type PairingMode string

const (
	// PairingBrowse lists every mentor to an unassigned student
	PairingBrowse PairingMode = "browse"
	// PairingLocked shows an assigned student only their mentor
	PairingLocked PairingMode = "locked"
	// PairingMentees shows a mentor the students assigned to them
	PairingMentees PairingMode = "mentees"
)

// PairingView is the result of looking up who a viewer may work with
type PairingView struct {
	Mode  PairingMode `json:"mode"`
	Users []*User     `json:"users"`
}
