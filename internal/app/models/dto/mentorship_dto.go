package dto

import "github.com/yigit/mentorconnect/internal/app/models"

// SendRequestRequest is a student's mentorship request
type SendRequestRequest struct {
	MentorID int64  `json:"mentorId" binding:"required,min=1"`
	Message  string `json:"message" binding:"max=500"`
}

// RespondRequestRequest is the mentor's answer to a request
type RespondRequestRequest struct {
	Status          models.RequestStatus `json:"status" binding:"required"`
	ResponseMessage string               `json:"responseMessage"`
}

// RateMentorRequest is a student's rating of their mentor
type RateMentorRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment" binding:"max=1000"`
}

// UpdateAvailabilityRequest changes a mentor's availability
type UpdateAvailabilityRequest struct {
	Availability models.Availability `json:"availability" binding:"required,valid"`
}

// UnreadNotificationsResponse is the unread counter of the caller
type UnreadNotificationsResponse struct {
	Unread int `json:"unread" example:"2"`
}
