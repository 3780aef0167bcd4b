package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/yigit/mentorconnect/internal/pkg/apperrors"
)

// RoadmapStatus is the item-level lifecycle of a roadmap
type RoadmapStatus string

const (
	RoadmapActive    RoadmapStatus = "active"
	RoadmapCompleted RoadmapStatus = "completed"
	RoadmapArchived  RoadmapStatus = "archived"
)

// Valid reports whether s is a known roadmap status
func (s RoadmapStatus) Valid() bool {
	switch s {
	case RoadmapActive, RoadmapCompleted, RoadmapArchived:
		return true
	}
	return false
}

// UnitKind distinguishes the three kinds of reviewable unit
type UnitKind string

const (
	UnitTask       UnitKind = "task"
	UnitAssignment UnitKind = "assignment"
	UnitVideo      UnitKind = "video"
)

// UnitStatus is the state of a unit. Tasks and assignments use
// pending/submitted/approved/rejected; videos use pending/watched/verified.
type UnitStatus string

const (
	UnitPending   UnitStatus = "pending"
	UnitSubmitted UnitStatus = "submitted"
	UnitApproved  UnitStatus = "approved"
	UnitRejected  UnitStatus = "rejected"
	UnitWatched   UnitStatus = "watched"
	UnitVerified  UnitStatus = "verified"
)

// DefaultApprovalFeedback is stored when a mentor approves without a comment
const DefaultApprovalFeedback = "Great work!"

// RoadmapUnit is a task, assignment or video inside a roadmap item
type RoadmapUnit struct {
	ID              int64      `json:"id" db:"id"`
	RoadmapID       int64      `json:"roadmapId" db:"roadmap_id"`
	Kind            UnitKind   `json:"kind" db:"kind"`
	Position        int        `json:"position" db:"position"`
	Title           string     `json:"title" db:"title"`
	Description     string     `json:"description,omitempty" db:"description"`
	URL             string     `json:"url,omitempty" db:"url"`
	Status          UnitStatus `json:"status" db:"status"`
	Submission      string     `json:"submission,omitempty" db:"submission"`
	SubmissionLink  string     `json:"submissionLink,omitempty" db:"submission_link"`
	StudentComments string     `json:"studentComments,omitempty" db:"student_comments"`
	MentorComments  string     `json:"mentorComments,omitempty" db:"mentor_comments"`
	SubmittedAt     *time.Time `json:"submittedAt,omitempty" db:"submitted_at"`
	ReviewedAt      *time.Time `json:"reviewedAt,omitempty" db:"reviewed_at"`
	WatchedAt       *time.Time `json:"watchedAt,omitempty" db:"watched_at"`
	Version         int64      `json:"version" db:"version"`
}

// Reviewable reports whether the unit follows the submit/review machine
func (u *RoadmapUnit) Reviewable() bool {
	return u.Kind == UnitTask || u.Kind == UnitAssignment
}

// Done reports whether the unit counts towards progress
func (u *RoadmapUnit) Done() bool {
	switch u.Kind {
	case UnitVideo:
		return u.Status == UnitWatched || u.Status == UnitVerified
	default:
		return u.Status == UnitApproved
	}
}

// Submit records a student's work. Allowed from pending and, for a
// resubmission, from rejected; the previous mentor feedback is cleared.
func (u *RoadmapUnit) Submit(text, link, comment string, now time.Time) error {
	if !u.Reviewable() {
		return apperrors.NewInvalidStateError(fmt.Sprintf("%s units cannot be submitted", u.Kind))
	}
	if u.Status != UnitPending && u.Status != UnitRejected {
		return apperrors.NewInvalidStateError(fmt.Sprintf("cannot submit a unit that is %s", u.Status))
	}

	u.Status = UnitSubmitted
	u.Submission = text
	if u.Kind == UnitAssignment {
		u.SubmissionLink = link
	}
	u.StudentComments = comment
	u.MentorComments = ""
	u.SubmittedAt = &now
	u.ReviewedAt = nil
	return nil
}

// Review records the mentor's decision on a submitted unit
// The unit's state is checked before the decision and feedback.
func (u *RoadmapUnit) Review(decision UnitStatus, feedback string, now time.Time) error {
	if !u.Reviewable() {
		return apperrors.NewInvalidStateError(fmt.Sprintf("%s units cannot be reviewed", u.Kind))
	}
	if u.Status != UnitSubmitted {
		return apperrors.NewInvalidStateError(fmt.Sprintf("cannot review a unit that is %s", u.Status))
	}
	if decision != UnitApproved && decision != UnitRejected {
		return apperrors.NewInvalidArgumentError(fmt.Sprintf("decision must be %q or %q", UnitApproved, UnitRejected))
	}
	feedback = strings.TrimSpace(feedback)
	if decision == UnitRejected && feedback == "" {
		return apperrors.NewInvalidArgumentError("feedback is required when rejecting")
	}
	if feedback == "" {
		feedback = DefaultApprovalFeedback
	}

	u.Status = decision
	u.MentorComments = feedback
	u.ReviewedAt = &now
	return nil
}

// MarkWatched is the student's self-report on a video
func (u *RoadmapUnit) MarkWatched(comment string, now time.Time) error {
	if u.Kind != UnitVideo {
		return apperrors.NewInvalidStateError(fmt.Sprintf("%s units cannot be watched", u.Kind))
	}
	if u.Status != UnitPending {
		return apperrors.NewInvalidStateError(fmt.Sprintf("cannot mark a video that is %s as watched", u.Status))
	}

	u.Status = UnitWatched
	u.StudentComments = comment
	u.WatchedAt = &now
	return nil
}

// Verify is the mentor's confirmation of a watched video
func (u *RoadmapUnit) Verify(now time.Time) error {
	if u.Kind != UnitVideo {
		return apperrors.NewInvalidStateError(fmt.Sprintf("%s units cannot be verified", u.Kind))
	}
	if u.Status != UnitWatched {
		return apperrors.NewInvalidStateError(fmt.Sprintf("cannot verify a video that is %s", u.Status))
	}

	u.Status = UnitVerified
	u.ReviewedAt = &now
	return nil
}

// Question is a free-form question a student asks on a roadmap
type Question struct {
	ID         int64      `json:"id" db:"id"`
	RoadmapID  int64      `json:"roadmapId" db:"roadmap_id"`
	Question   string     `json:"question" db:"question"`
	Answer     string     `json:"answer,omitempty" db:"answer"`
	AskedAt    time.Time  `json:"askedAt" db:"asked_at"`
	AnsweredAt *time.Time `json:"answeredAt,omitempty" db:"answered_at"`
}

// RoadmapItem is a learning plan a mentor builds for one student
type RoadmapItem struct {
	ID          int64         `json:"id" db:"id"`
	Title       string        `json:"title" db:"title"`
	Description string        `json:"description" db:"description"`
	MentorID    int64         `json:"mentorId" db:"mentor_id"`
	StudentID   int64         `json:"studentId" db:"student_id"`
	Status      RoadmapStatus `json:"status" db:"status"`
	Deadline    time.Time     `json:"deadline" db:"deadline"`
	CreatedAt   time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time     `json:"updatedAt" db:"updated_at"`

	Tasks       []RoadmapUnit `json:"tasks"`
	Videos      []RoadmapUnit `json:"videos"`
	Assignments []RoadmapUnit `json:"assignments"`
	Questions   []Question    `json:"questions"`

	// Derived on every read, never stored
	ProgressPercentage int `json:"progressPercentage"`
}

// AddUnit files u under the slice for its kind
func (r *RoadmapItem) AddUnit(u RoadmapUnit) {
	switch u.Kind {
	case UnitTask:
		r.Tasks = append(r.Tasks, u)
	case UnitAssignment:
		r.Assignments = append(r.Assignments, u)
	case UnitVideo:
		r.Videos = append(r.Videos, u)
	}
}

// Unit finds a unit of the given kind by id
func (r *RoadmapItem) Unit(kind UnitKind, unitID int64) (*RoadmapUnit, bool) {
	var units []RoadmapUnit
	switch kind {
	case UnitTask:
		units = r.Tasks
	case UnitAssignment:
		units = r.Assignments
	case UnitVideo:
		units = r.Videos
	}
	for i := range units {
		if units[i].ID == unitID {
			return &units[i], true
		}
	}
	return nil, false
}

// TotalUnits counts tasks, videos and assignments
func (r *RoadmapItem) TotalUnits() int {
	return len(r.Tasks) + len(r.Videos) + len(r.Assignments)
}

// ComputeProgress returns the rounded share of completed units, 0..100.
// An item without units is at 0.
func ComputeProgress(item *RoadmapItem) int {
	if item == nil {
		return 0
	}
	total := item.TotalUnits()
	if total == 0 {
		return 0
	}

	done := 0
	for _, units := range [][]RoadmapUnit{item.Tasks, item.Videos, item.Assignments} {
		for i := range units {
			if units[i].Done() {
				done++
			}
		}
	}

	return int(math.Round(100 * float64(done) / float64(total)))
}

// RefreshProgress recomputes ProgressPercentage in place
func (r *RoadmapItem) RefreshProgress() {
	r.ProgressPercentage = ComputeProgress(r)
}
