package services

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/yigit/mentorconnect/internal/app/models"
	"github.com/yigit/mentorconnect/internal/pkg/apperrors"
)

func TestSendRequest_Success(t *testing.T) {
	e := newEnv()
	svc := e.mentorship()
	ctx := context.Background()

	mentor := e.users.mentor("mia")
	student := e.users.student("sam")

	req, err := svc.SendRequest(ctx, student.ID, mentor.ID, "please teach me Go")
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, req.Status)
	assert.Equal(t, mentor.ID, req.Mentor.ID)

	assert.Equal(t, 1, e.users.get(mentor.ID).UnreadNotifications)
	assert.Equal(t, models.MentorshipPending, e.users.get(student.ID).MentorshipStatus)
}

func TestSendRequest_Failures(t *testing.T) {
	e := newEnv()
	svc := e.mentorship()
	ctx := context.Background()

	mentor := e.users.mentor("mia")
	other := e.users.student("olga")
	student := e.users.student("sam")
	assigned, assignedMentor := e.pair()

	tests := []struct {
		name      string
		studentID int64
		mentorID  int64
		message   string
		kind      error
		target    error
	}{
		{"mentor cannot send", mentor.ID, assignedMentor.ID, "", apperrors.ErrPermissionDenied, nil},
		{"message too long", student.ID, mentor.ID, strings.Repeat("x", 501), apperrors.ErrInvalidArgument, nil},
		{"unknown mentor", student.ID, 999, "", apperrors.ErrResourceNotFound, apperrors.ErrUserNotFound},
		{"target is not a mentor", student.ID, other.ID, "", apperrors.ErrConflict, apperrors.ErrNotAMentor},
		{"already assigned", assigned.ID, mentor.ID, "", apperrors.ErrConflict, apperrors.ErrAlreadyAssigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SendRequest(ctx, tt.studentID, tt.mentorID, tt.message)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperrors.Kind(err))
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}

	assert.Equal(t, 0, e.users.get(mentor.ID).UnreadNotifications)
}

func TestSendRequest_DuplicateRegardlessOfStatus(t *testing.T) {
	e := newEnv()
	svc := e.mentorship()
	ctx := context.Background()

	mentor := e.users.mentor("mia")
	student := e.users.student("sam")

	req, err := svc.SendRequest(ctx, student.ID, mentor.ID, "")
	require.NoError(t, err)

	_, err = svc.SendRequest(ctx, student.ID, mentor.ID, "again")
	assert.ErrorIs(t, err, apperrors.ErrRequestExists)

	_, err = svc.Respond(ctx, req.ID, mentor.ID, models.RequestRejected, "not now")
	require.NoError(t, err)

	_, err = svc.SendRequest(ctx, student.ID, mentor.ID, "after rejection")
	assert.ErrorIs(t, err, apperrors.ErrRequestExists)
	assert.Equal(t, 1, e.users.get(mentor.ID).UnreadNotifications)
}

func TestRespond_Accept(t *testing.T) {
	e := newEnv()
	svc := e.mentorship()
	ctx := context.Background()

	mentor := e.users.mentor("mia")
	student := e.users.student("sam")
	req, err := svc.SendRequest(ctx, student.ID, mentor.ID, "")
	require.NoError(t, err)

	resolved, err := svc.Respond(ctx, req.ID, mentor.ID, models.RequestAccepted, "welcome")
	require.NoError(t, err)
	assert.Equal(t, models.RequestAccepted, resolved.Status)
	assert.Equal(t, "welcome", resolved.ResponseMessage)
	require.NotNil(t, resolved.RespondedAt)
	assert.Equal(t, testNow, *resolved.RespondedAt)

	s := e.users.get(student.ID)
	assert.True(t, s.IsAssignedTo(mentor.ID))
	assert.Equal(t, models.MentorshipActive, s.MentorshipStatus)

	_, err = svc.Respond(ctx, req.ID, mentor.ID, models.RequestRejected, "")
	assert.ErrorIs(t, err, apperrors.ErrRequestAlreadyClosed)
	assert.Equal(t, apperrors.ErrConflict, apperrors.Kind(err))
}

func TestRespond_Failures(t *testing.T) {
	e := newEnv()
	svc := e.mentorship()
	ctx := context.Background()

	mentor := e.users.mentor("mia")
	otherMentor := e.users.mentor("max")
	student := e.users.student("sam")
	req, err := svc.SendRequest(ctx, student.ID, mentor.ID, "")
	require.NoError(t, err)

	_, err = svc.Respond(ctx, 999, mentor.ID, models.RequestAccepted, "")
	assert.Equal(t, apperrors.ErrResourceNotFound, apperrors.Kind(err))

	_, err = svc.Respond(ctx, req.ID, otherMentor.ID, models.RequestAccepted, "")
	assert.Equal(t, apperrors.ErrPermissionDenied, apperrors.Kind(err))

	_, err = svc.Respond(ctx, req.ID, mentor.ID, models.RequestPending, "")
	assert.Equal(t, apperrors.ErrInvalidArgument, apperrors.Kind(err))

	stored, err := e.requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, stored.Status)
}

func TestRespond_RejectResetsStatusWhenNothingPending(t *testing.T) {
	e := newEnv()
	svc := e.mentorship()
	ctx := context.Background()

	first := e.users.mentor("mia")
	second := e.users.mentor("max")
	student := e.users.student("sam")

	r1, err := svc.SendRequest(ctx, student.ID, first.ID, "")
	require.NoError(t, err)
	r2, err := svc.SendRequest(ctx, student.ID, second.ID, "")
	require.NoError(t, err)

	_, err = svc.Respond(ctx, r1.ID, first.ID, models.RequestRejected, "full")
	require.NoError(t, err)
	assert.Equal(t, models.MentorshipPending, e.users.get(student.ID).MentorshipStatus)

	_, err = svc.Respond(ctx, r2.ID, second.ID, models.RequestRejected, "full too")
	require.NoError(t, err)
	assert.Equal(t, models.MentorshipNone, e.users.get(student.ID).MentorshipStatus)
}

func TestRespond_SecondAcceptanceForAssignedStudent(t *testing.T) {
	e := newEnv()
	svc := e.mentorship()
	ctx := context.Background()

	first := e.users.mentor("mia")
	second := e.users.mentor("max")
	student := e.users.student("sam")

	r1, err := svc.SendRequest(ctx, student.ID, first.ID, "")
	require.NoError(t, err)
	r2, err := svc.SendRequest(ctx, student.ID, second.ID, "")
	require.NoError(t, err)

	_, err = svc.Respond(ctx, r1.ID, first.ID, models.RequestAccepted, "")
	require.NoError(t, err)

	_, err = svc.Respond(ctx, r2.ID, second.ID, models.RequestAccepted, "")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyAssigned)

	stored, err := e.requests.GetByID(ctx, r2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, stored.Status)
	assert.True(t, e.users.get(student.ID).IsAssignedTo(first.ID))
}

// gatedUserRepo holds the first `parties` reads of one user until all of
// them have arrived, so every caller acts on the same stale row.
type gatedUserRepo struct {
	*fakeUserRepo
	userID  int64
	parties int32
	calls   atomic.Int32
	arrived sync.WaitGroup
}

func newGatedUserRepo(users *fakeUserRepo, userID int64, parties int) *gatedUserRepo {
	g := &gatedUserRepo{fakeUserRepo: users, userID: userID, parties: int32(parties)}
	g.arrived.Add(parties)
	return g
}

func (g *gatedUserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := g.fakeUserRepo.GetByID(ctx, id)
	if id == g.userID && g.calls.Add(1) <= g.parties {
		g.arrived.Done()
		g.arrived.Wait()
	}
	return u, err
}

func TestRespond_ConcurrentAcceptsKeepPairingExclusive(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	first := e.users.mentor("mia")
	second := e.users.mentor("max")
	student := e.users.student("sam")

	r1, err := e.mentorship().SendRequest(ctx, student.ID, first.ID, "")
	require.NoError(t, err)
	r2, err := e.mentorship().SendRequest(ctx, student.ID, second.ID, "")
	require.NoError(t, err)

	gated := newGatedUserRepo(e.users, student.ID, 2)
	svc := NewMentorshipService(gated, e.requests, e.authz, e.clock(), zerolog.Nop())

	type attempt struct {
		requestID, mentorID int64
	}
	attempts := []attempt{{r1.ID, first.ID}, {r2.ID, second.ID}}
	errs := make([]error, len(attempts))

	var wg sync.WaitGroup
	for i, a := range attempts {
		wg.Add(1)
		go func(i int, a attempt) {
			defer wg.Done()
			_, errs[i] = svc.Respond(ctx, a.requestID, a.mentorID, models.RequestAccepted, "")
		}(i, a)
	}
	wg.Wait()

	winner := -1
	for i, err := range errs {
		if err == nil {
			require.Equal(t, -1, winner, "both accepts succeeded")
			winner = i
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrAlreadyAssigned)
	}
	require.NotEqual(t, -1, winner, "no accept succeeded")
	loser := 1 - winner

	s := e.users.get(student.ID)
	assert.True(t, s.IsAssignedTo(attempts[winner].mentorID))

	won, err := e.requests.GetByID(ctx, attempts[winner].requestID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestAccepted, won.Status)

	lost, err := e.requests.GetByID(ctx, attempts[loser].requestID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, lost.Status)
}

func TestRespond_ConcurrentRespondersOneWins(t *testing.T) {
	e := newEnv()
	svc := e.mentorship()
	ctx := context.Background()

	mentor := e.users.mentor("mia")
	student := e.users.student("sam")
	req, err := svc.SendRequest(ctx, student.ID, mentor.ID, "")
	require.NoError(t, err)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		decision := models.RequestAccepted
		if i%2 == 1 {
			decision = models.RequestRejected
		}
		wg.Add(1)
		go func(decision models.RequestStatus) {
			defer wg.Done()
			_, err := svc.Respond(ctx, req.ID, mentor.ID, decision, "")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if apperrors.Kind(err) == apperrors.ErrConflict {
				conflicts++
			}
		}(decision)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)

	stored, err := e.requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	s := e.users.get(student.ID)
	if stored.Status == models.RequestAccepted {
		assert.True(t, s.IsAssignedTo(mentor.ID))
	} else {
		assert.False(t, s.HasMentor())
	}
}

func TestGetPairingView(t *testing.T) {
	e := newEnv()
	svc := e.mentorship()
	ctx := context.Background()

	e.users.mentor("mia")
	e.users.mentor("max")
	loner := e.users.student("lou")
	student, mentor := e.pair()

	view, err := svc.GetPairingView(ctx, loner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PairingBrowse, view.Mode)
	assert.Len(t, view.Users, 3)

	view, err = svc.GetPairingView(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PairingLocked, view.Mode)
	require.Len(t, view.Users, 1)
	assert.Equal(t, mentor.ID, view.Users[0].ID)

	view, err = svc.GetPairingView(ctx, mentor.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PairingMentees, view.Mode)
	require.Len(t, view.Users, 1)
	assert.Equal(t, student.ID, view.Users[0].ID)
}

func TestGetPairingView_RepairsLostAssignment(t *testing.T) {
	e := newEnv()
	svc := e.mentorship()
	ctx := context.Background()

	mentor := e.users.mentor("mia")
	student := e.users.student("sam")

	// accepted request whose assignment write never happened
	req := &models.MentorshipRequest{StudentID: student.ID, MentorID: mentor.ID}
	require.NoError(t, e.requests.Create(ctx, req))
	require.NoError(t, req.Resolve(models.RequestAccepted, "", testNow))
	require.NoError(t, e.requests.Resolve(ctx, req))
	require.False(t, e.users.get(student.ID).HasMentor())

	view, err := svc.GetPairingView(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PairingLocked, view.Mode)
	require.Len(t, view.Users, 1)
	assert.Equal(t, mentor.ID, view.Users[0].ID)

	s := e.users.get(student.ID)
	assert.True(t, s.IsAssignedTo(mentor.ID))
	assert.Equal(t, models.MentorshipActive, s.MentorshipStatus)
}

func TestListRequests(t *testing.T) {
	e := newEnv()
	svc := e.mentorship()
	ctx := context.Background()

	mentor := e.users.mentor("mia")
	a := e.users.student("ann")
	b := e.users.student("bob")

	_, err := svc.SendRequest(ctx, a.ID, mentor.ID, "")
	require.NoError(t, err)
	rb, err := svc.SendRequest(ctx, b.ID, mentor.ID, "")
	require.NoError(t, err)

	pending, err := svc.ListPendingRequests(ctx, mentor.ID)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, rb.ID, pending[0].ID, "newest first")

	mine, err := svc.ListMyRequests(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = svc.ListPendingRequests(ctx, a.ID)
	assert.Equal(t, apperrors.ErrPermissionDenied, apperrors.Kind(err))
	_, err = svc.ListMyRequests(ctx, mentor.ID)
	assert.Equal(t, apperrors.ErrPermissionDenied, apperrors.Kind(err))
}

func TestRateMentor(t *testing.T) {
	e := newEnv()
	svc := e.mentorship()
	ctx := context.Background()

	student, mentor := e.pair()
	stranger := e.users.mentor("max")

	_, err := svc.RateMentor(ctx, student.ID, mentor.ID, 6, "")
	assert.Equal(t, apperrors.ErrInvalidArgument, apperrors.Kind(err))

	_, err = svc.RateMentor(ctx, student.ID, stranger.ID, 5, "")
	assert.Equal(t, apperrors.ErrPermissionDenied, apperrors.Kind(err))

	rated, err := svc.RateMentor(ctx, student.ID, mentor.ID, 4, "helpful")
	require.NoError(t, err)
	assert.Equal(t, 1, rated.TotalRatings)
	assert.InDelta(t, 4.0, rated.Rating, 0.001)

	// re-rating replaces the earlier score
	rated, err = svc.RateMentor(ctx, student.ID, mentor.ID, 2, "")
	require.NoError(t, err)
	assert.Equal(t, 1, rated.TotalRatings)
	assert.InDelta(t, 2.0, rated.Rating, 0.001)
}

func TestAvailabilityAndNotifications(t *testing.T) {
	e := newEnv()
	svc := e.mentorship()
	ctx := context.Background()

	mentor := e.users.mentor("mia")
	student := e.users.student("sam")

	assert.Equal(t, apperrors.ErrInvalidArgument, apperrors.Kind(svc.UpdateAvailability(ctx, mentor.ID, "asleep")))
	assert.Equal(t, apperrors.ErrPermissionDenied, apperrors.Kind(svc.UpdateAvailability(ctx, student.ID, models.AvailabilityBusy)))
	require.NoError(t, svc.UpdateAvailability(ctx, mentor.ID, models.AvailabilityBusy))
	assert.Equal(t, models.AvailabilityBusy, e.users.get(mentor.ID).Availability)

	_, err := svc.SendRequest(ctx, student.ID, mentor.ID, "")
	require.NoError(t, err)
	unread, err := svc.UnreadNotifications(ctx, mentor.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	require.NoError(t, svc.ClearNotifications(ctx, mentor.ID))
	unread, err = svc.UnreadNotifications(ctx, mentor.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, unread)
}
