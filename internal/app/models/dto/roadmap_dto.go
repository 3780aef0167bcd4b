package dto

import (
	"time"

	"github.com/yigit/mentorconnect/internal/app/models"
)

// UnitInput describes one task, assignment or video on creation
type UnitInput struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// CreateRoadmapRequest is a mentor's new learning plan for a student
type CreateRoadmapRequest struct {
	Title       string      `json:"title" binding:"required,max=200"`
	Description string      `json:"description" binding:"required"`
	StudentID   int64       `json:"student" binding:"required,min=1"`
	Deadline    time.Time   `json:"deadline" binding:"required"`
	Tasks       []UnitInput `json:"tasks" binding:"dive"`
	Videos      []UnitInput `json:"videos" binding:"dive"`
	Assignments []UnitInput `json:"assignments" binding:"dive"`
}

// SubmitUnitRequest carries a student's work. Version, when set, must match
// the unit's current version or the write is refused.
type SubmitUnitRequest struct {
	SubmissionText string `json:"submissionText"`
	SubmissionLink string `json:"submissionLink"`
	Comment        string `json:"comment"`
	Version        *int64 `json:"version"`
}

// ReviewUnitRequest carries the mentor's decision
type ReviewUnitRequest struct {
	Status   models.UnitStatus `json:"status" binding:"required"`
	Feedback string            `json:"feedback"`
	Version  *int64            `json:"version"`
}

// WatchVideoRequest is the student's self-report on a video
type WatchVideoRequest struct {
	Comment string `json:"comment"`
	Version *int64 `json:"version"`
}

// VerifyVideoRequest is the mentor's confirmation of a watched video
type VerifyVideoRequest struct {
	Version *int64 `json:"version"`
}

// UpdateRoadmapStatusRequest changes the item-level status
type UpdateRoadmapStatusRequest struct {
	Status models.RoadmapStatus `json:"status" binding:"required,valid"`
}

// AskQuestionRequest is a student's question on a roadmap
type AskQuestionRequest struct {
	Question string `json:"question" binding:"required,notblank,max=2000"`
}

// AnswerQuestionRequest is the mentor's answer
type AnswerQuestionRequest struct {
	Answer string `json:"answer" binding:"required,notblank,max=5000"`
}

// UnitUpdateResponse is returned by every unit transition. Roadmap carries
// the recomputed progress.
type UnitUpdateResponse struct {
	Unit    *models.RoadmapUnit `json:"unit"`
	Roadmap *models.RoadmapItem `json:"roadmap"`
}
