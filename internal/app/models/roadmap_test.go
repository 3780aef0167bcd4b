package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/mentorconnect/internal/pkg/apperrors"
)

var reviewTime = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func task(status UnitStatus) RoadmapUnit {
	return RoadmapUnit{ID: 1, Kind: UnitTask, Title: "Build a CLI", Status: status}
}

func TestComputeProgress(t *testing.T) {
	t.Run("zero units", func(t *testing.T) {
		assert.Equal(t, 0, ComputeProgress(&RoadmapItem{}))
		assert.Equal(t, 0, ComputeProgress(nil))
	})

	t.Run("one of two tasks approved", func(t *testing.T) {
		item := &RoadmapItem{Tasks: []RoadmapUnit{task(UnitApproved), task(UnitPending)}}
		assert.Equal(t, 50, ComputeProgress(item))
	})

	t.Run("watched and verified videos both count", func(t *testing.T) {
		item := &RoadmapItem{Videos: []RoadmapUnit{
			{Kind: UnitVideo, Status: UnitWatched},
			{Kind: UnitVideo, Status: UnitVerified},
			{Kind: UnitVideo, Status: UnitPending},
		}}
		assert.Equal(t, 67, ComputeProgress(item))
	})

	t.Run("submitted and rejected do not count", func(t *testing.T) {
		item := &RoadmapItem{
			Tasks:       []RoadmapUnit{task(UnitSubmitted), task(UnitRejected)},
			Assignments: []RoadmapUnit{{Kind: UnitAssignment, Status: UnitApproved}},
		}
		assert.Equal(t, 33, ComputeProgress(item))
	})

	t.Run("everything done", func(t *testing.T) {
		item := &RoadmapItem{
			Tasks:       []RoadmapUnit{task(UnitApproved)},
			Videos:      []RoadmapUnit{{Kind: UnitVideo, Status: UnitVerified}},
			Assignments: []RoadmapUnit{{Kind: UnitAssignment, Status: UnitApproved}},
		}
		item.RefreshProgress()
		assert.Equal(t, 100, item.ProgressPercentage)
	})
}

func TestUnitSubmit(t *testing.T) {
	t.Run("pending to submitted", func(t *testing.T) {
		u := task(UnitPending)
		require.NoError(t, u.Submit("my answer", "http://ignored", "done", reviewTime))

		assert.Equal(t, UnitSubmitted, u.Status)
		assert.Equal(t, "my answer", u.Submission)
		assert.Empty(t, u.SubmissionLink, "tasks do not carry links")
		assert.Equal(t, "done", u.StudentComments)
		assert.Equal(t, reviewTime, *u.SubmittedAt)
	})

	t.Run("assignment keeps the link", func(t *testing.T) {
		u := RoadmapUnit{Kind: UnitAssignment, Status: UnitPending}
		require.NoError(t, u.Submit("text", "https://github.com/x/y", "", reviewTime))
		assert.Equal(t, "https://github.com/x/y", u.SubmissionLink)
	})

	t.Run("resubmit after rejection clears mentor comments", func(t *testing.T) {
		u := task(UnitRejected)
		u.Submission = "first try"
		u.MentorComments = "missing tests"

		require.NoError(t, u.Submit("second try", "", "added tests", reviewTime))

		assert.Equal(t, UnitSubmitted, u.Status)
		assert.Equal(t, "second try", u.Submission)
		assert.Empty(t, u.MentorComments)
	})

	for _, status := range []UnitStatus{UnitApproved, UnitSubmitted} {
		t.Run("rejects from "+string(status), func(t *testing.T) {
			u := task(status)
			err := u.Submit("x", "", "", reviewTime)
			assert.ErrorIs(t, err, apperrors.ErrInvalidState)
			assert.Equal(t, status, u.Status)
		})
	}

	t.Run("videos cannot be submitted", func(t *testing.T) {
		u := RoadmapUnit{Kind: UnitVideo, Status: UnitPending}
		assert.ErrorIs(t, u.Submit("x", "", "", reviewTime), apperrors.ErrInvalidState)
	})
}

func TestUnitReview(t *testing.T) {
	t.Run("approve with default feedback", func(t *testing.T) {
		u := task(UnitSubmitted)
		require.NoError(t, u.Review(UnitApproved, "  ", reviewTime))

		assert.Equal(t, UnitApproved, u.Status)
		assert.Equal(t, DefaultApprovalFeedback, u.MentorComments)
		assert.Equal(t, reviewTime, *u.ReviewedAt)
	})

	t.Run("reject needs feedback", func(t *testing.T) {
		u := task(UnitSubmitted)
		assert.ErrorIs(t, u.Review(UnitRejected, "", reviewTime), apperrors.ErrInvalidArgument)
		assert.Equal(t, UnitSubmitted, u.Status)

		require.NoError(t, u.Review(UnitRejected, "needs error handling", reviewTime))
		assert.Equal(t, UnitRejected, u.Status)
		assert.Equal(t, "needs error handling", u.MentorComments)
	})

	t.Run("never submitted", func(t *testing.T) {
		u := task(UnitPending)
		assert.ErrorIs(t, u.Review(UnitApproved, "", reviewTime), apperrors.ErrInvalidState)
	})

	t.Run("state is checked before feedback", func(t *testing.T) {
		u := task(UnitPending)
		err := u.Review(UnitRejected, "", reviewTime)
		assert.ErrorIs(t, err, apperrors.ErrInvalidState)
		assert.NotErrorIs(t, err, apperrors.ErrInvalidArgument)
		assert.Equal(t, UnitPending, u.Status)
	})

	t.Run("already approved", func(t *testing.T) {
		u := task(UnitApproved)
		assert.ErrorIs(t, u.Review(UnitRejected, "changed my mind", reviewTime), apperrors.ErrInvalidState)
	})

	t.Run("unknown decision", func(t *testing.T) {
		u := task(UnitSubmitted)
		assert.ErrorIs(t, u.Review(UnitWatched, "", reviewTime), apperrors.ErrInvalidArgument)
	})
}

func TestVideoLifecycle(t *testing.T) {
	u := RoadmapUnit{Kind: UnitVideo, Status: UnitPending}

	assert.ErrorIs(t, u.Verify(reviewTime), apperrors.ErrInvalidState)

	require.NoError(t, u.MarkWatched("great talk", reviewTime))
	assert.Equal(t, UnitWatched, u.Status)
	assert.True(t, u.Done())

	assert.ErrorIs(t, u.MarkWatched("", reviewTime), apperrors.ErrInvalidState)

	require.NoError(t, u.Verify(reviewTime))
	assert.Equal(t, UnitVerified, u.Status)
	assert.ErrorIs(t, u.Verify(reviewTime), apperrors.ErrInvalidState)
}

func TestRoadmapItemUnitLookupIsKindScoped(t *testing.T) {
	item := &RoadmapItem{}
	item.AddUnit(RoadmapUnit{ID: 7, Kind: UnitTask})
	item.AddUnit(RoadmapUnit{ID: 8, Kind: UnitAssignment})

	_, ok := item.Unit(UnitTask, 7)
	assert.True(t, ok)

	_, ok = item.Unit(UnitAssignment, 7)
	assert.False(t, ok)

	assert.Equal(t, 2, item.TotalUnits())
}
