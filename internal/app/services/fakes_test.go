package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	appAuth "github.com/yigit/mentorconnect/internal/app/auth"
	"github.com/yigit/mentorconnect/internal/app/models"
	"github.com/yigit/mentorconnect/internal/pkg/apperrors"
	"github.com/yigit/mentorconnect/internal/pkg/timeutil"
	"github.com/yigit/mentorconnect/internal/pkg/websocket"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func cloneUser(u *models.User) *models.User {
	c := *u
	if u.AssignedMentorID != nil {
		id := *u.AssignedMentorID
		c.AssignedMentorID = &id
	}
	if u.Gamification.LastActivityDate != nil {
		d := *u.Gamification.LastActivityDate
		c.Gamification.LastActivityDate = &d
	}
	c.Gamification.Badges = append([]models.Badge{}, u.Gamification.Badges...)
	return &c
}

type fakeUserRepo struct {
	mu      sync.Mutex
	nextID  int64
	users   map[int64]*models.User
	reviews map[[2]int64]int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int64]*models.User{}, reviews: map[[2]int64]int{}}
}

func (r *fakeUserRepo) add(u *models.User) *models.User {
	if _, err := r.Create(context.Background(), u); err != nil {
		panic(err)
	}
	return u
}

func (r *fakeUserRepo) student(name string) *models.User {
	return r.add(&models.User{Name: name, Email: name + "@example.com", Role: models.RoleStudent})
}

func (r *fakeUserRepo) mentor(name string) *models.User {
	return r.add(&models.User{Name: name, Email: name + "@example.com", Role: models.RoleMentor})
}

func (r *fakeUserRepo) get(id int64) *models.User {
	u, err := r.GetByID(context.Background(), id)
	if err != nil {
		panic(err)
	}
	return u
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return 0, apperrors.ErrEmailAlreadyExists
		}
	}
	r.nextID++
	user.ID = r.nextID
	if user.MentorshipStatus == "" {
		user.MentorshipStatus = models.MentorshipNone
	}
	if user.Role == models.RoleMentor && user.Availability == "" {
		user.Availability = models.AvailabilityAvailable
	}
	user.Gamification = models.NewGamification()
	user.CreatedAt = testNow
	user.UpdatedAt = testNow
	r.users[user.ID] = cloneUser(user)
	return user.ID, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (r *fakeUserRepo) filter(keep func(*models.User) bool) []*models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.User{}
	for _, u := range r.users {
		if keep(u) {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeUserRepo) ListMentors(context.Context) ([]*models.User, error) {
	return r.filter(func(u *models.User) bool { return u.IsMentor() }), nil
}

func (r *fakeUserRepo) ListMentees(_ context.Context, mentorID int64) ([]*models.User, error) {
	return r.filter(func(u *models.User) bool { return u.IsStudent() && u.IsAssignedTo(mentorID) }), nil
}

func (r *fakeUserRepo) update(id int64, fn func(u *models.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	fn(u)
	return nil
}

func (r *fakeUserRepo) AssignMentor(_ context.Context, studentID, mentorID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.assignLocked(studentID, mentorID)
}

// assignLocked mirrors the conditional UPDATE; r.mu must be held
func (r *fakeUserRepo) assignLocked(studentID, mentorID int64) error {
	u, ok := r.users[studentID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	if u.HasMentor() && !u.IsAssignedTo(mentorID) {
		return apperrors.ErrAlreadyAssigned
	}
	u.AssignedMentorID = &mentorID
	u.MentorshipStatus = models.MentorshipActive
	return nil
}

func (r *fakeUserRepo) SetMentorshipStatus(_ context.Context, userID int64, status models.MentorshipStatus) error {
	return r.update(userID, func(u *models.User) { u.MentorshipStatus = status })
}

func (r *fakeUserRepo) IncrementUnreadNotifications(_ context.Context, userID int64) error {
	return r.update(userID, func(u *models.User) { u.UnreadNotifications++ })
}

func (r *fakeUserRepo) ClearUnreadNotifications(_ context.Context, userID int64) error {
	return r.update(userID, func(u *models.User) { u.UnreadNotifications = 0 })
}

func (r *fakeUserRepo) UpdateAvailability(_ context.Context, userID int64, availability models.Availability) error {
	return r.update(userID, func(u *models.User) { u.Availability = availability })
}

func (r *fakeUserRepo) TouchLastActive(_ context.Context, userID int64, at time.Time) error {
	return r.update(userID, func(u *models.User) { u.LastActiveAt = &at })
}

// UpdateGamification holds the repo lock across fn like the row lock does
func (r *fakeUserRepo) UpdateGamification(_ context.Context, userID int64, fn func(user *models.User) error) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[userID]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	work := cloneUser(stored)
	if err := fn(work); err != nil {
		return nil, err
	}
	badges := stored.Gamification.Badges
	stored.Gamification = work.Gamification
	stored.Gamification.Badges = badges
	return cloneUser(stored), nil
}

func (r *fakeUserRepo) AddBadge(_ context.Context, userID int64, badge *models.Badge) error {
	return r.update(userID, func(u *models.User) {
		badge.ID = int64(len(u.Gamification.Badges) + 1)
		u.Gamification.AddBadge(*badge)
	})
}

func (r *fakeUserRepo) UpsertReview(_ context.Context, review *models.MentorReview) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mentor, ok := r.users[review.MentorID]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	r.reviews[[2]int64{review.MentorID, review.StudentID}] = review.Rating

	sum, n := 0, 0
	for k, v := range r.reviews {
		if k[0] == review.MentorID {
			sum += v
			n++
		}
	}
	mentor.TotalRatings = n
	mentor.Rating = float64(sum) / float64(n)
	return cloneUser(mentor), nil
}

type fakeMentorshipRepo struct {
	mu       sync.Mutex
	nextID   int64
	requests map[int64]*models.MentorshipRequest
	// users backs Accept, which writes the request and the student together
	users *fakeUserRepo
}

func newFakeMentorshipRepo(users *fakeUserRepo) *fakeMentorshipRepo {
	return &fakeMentorshipRepo{requests: map[int64]*models.MentorshipRequest{}, users: users}
}

func cloneRequest(r *models.MentorshipRequest) *models.MentorshipRequest {
	c := *r
	return &c
}

func (r *fakeMentorshipRepo) Create(_ context.Context, req *models.MentorshipRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.requests {
		if existing.StudentID == req.StudentID && existing.MentorID == req.MentorID {
			return apperrors.ErrRequestExists
		}
	}
	r.nextID++
	req.ID = r.nextID
	if req.Status == "" {
		req.Status = models.RequestPending
	}
	req.CreatedAt = testNow.Add(time.Duration(req.ID) * time.Second)
	r.requests[req.ID] = cloneRequest(req)
	return nil
}

func (r *fakeMentorshipRepo) GetByID(_ context.Context, id int64) (*models.MentorshipRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, apperrors.ErrRequestNotFound
	}
	return cloneRequest(req), nil
}

func (r *fakeMentorshipRepo) ExistsForPair(_ context.Context, studentID, mentorID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.requests {
		if req.StudentID == studentID && req.MentorID == mentorID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeMentorshipRepo) list(keep func(*models.MentorshipRequest) bool) []*models.MentorshipRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.MentorshipRequest{}
	for _, req := range r.requests {
		if keep(req) {
			out = append(out, cloneRequest(req))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *fakeMentorshipRepo) ListByStudent(_ context.Context, studentID int64) ([]*models.MentorshipRequest, error) {
	return r.list(func(req *models.MentorshipRequest) bool { return req.StudentID == studentID }), nil
}

func (r *fakeMentorshipRepo) ListPendingByMentor(_ context.Context, mentorID int64) ([]*models.MentorshipRequest, error) {
	return r.list(func(req *models.MentorshipRequest) bool {
		return req.MentorID == mentorID && req.Status == models.RequestPending
	}), nil
}

func (r *fakeMentorshipRepo) Resolve(_ context.Context, req *models.MentorshipRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.requests[req.ID]
	if !ok || stored.Status != models.RequestPending {
		return apperrors.ErrRequestAlreadyClosed
	}
	stored.Status = req.Status
	stored.ResponseMessage = req.ResponseMessage
	stored.RespondedAt = req.RespondedAt
	return nil
}

func (r *fakeMentorshipRepo) Accept(_ context.Context, req *models.MentorshipRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users.mu.Lock()
	defer r.users.mu.Unlock()

	student, ok := r.users.users[req.StudentID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	if student.HasMentor() && !student.IsAssignedTo(req.MentorID) {
		return apperrors.ErrAlreadyAssigned
	}
	stored, ok := r.requests[req.ID]
	if !ok || stored.Status != models.RequestPending {
		return apperrors.ErrRequestAlreadyClosed
	}

	stored.Status = req.Status
	stored.ResponseMessage = req.ResponseMessage
	stored.RespondedAt = req.RespondedAt
	return r.users.assignLocked(req.StudentID, req.MentorID)
}

func (r *fakeMentorshipRepo) FindAcceptedForStudent(_ context.Context, studentID int64) (*models.MentorshipRequest, error) {
	accepted := r.list(func(req *models.MentorshipRequest) bool {
		return req.StudentID == studentID && req.Status == models.RequestAccepted
	})
	if len(accepted) == 0 {
		return nil, apperrors.ErrRequestNotFound
	}
	return accepted[0], nil
}

type fakeRoadmapRepo struct {
	mu         sync.Mutex
	nextID     int64
	nextUnitID int64
	items      map[int64]*models.RoadmapItem

	// beforeUnitWrite runs ahead of the version check, standing in for a
	// concurrent writer
	beforeUnitWrite func(unit *models.RoadmapUnit)
}

func newFakeRoadmapRepo() *fakeRoadmapRepo {
	return &fakeRoadmapRepo{items: map[int64]*models.RoadmapItem{}}
}

func cloneItem(item *models.RoadmapItem) *models.RoadmapItem {
	c := *item
	c.Tasks = append([]models.RoadmapUnit{}, item.Tasks...)
	c.Videos = append([]models.RoadmapUnit{}, item.Videos...)
	c.Assignments = append([]models.RoadmapUnit{}, item.Assignments...)
	c.Questions = append([]models.Question{}, item.Questions...)
	return &c
}

func (r *fakeRoadmapRepo) Create(_ context.Context, item *models.RoadmapItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	item.ID = r.nextID
	item.CreatedAt = testNow
	item.UpdatedAt = testNow
	for _, units := range [][]models.RoadmapUnit{item.Tasks, item.Videos, item.Assignments} {
		for i := range units {
			r.nextUnitID++
			units[i].ID = r.nextUnitID
			units[i].RoadmapID = item.ID
			units[i].Version = 1
		}
	}
	r.items[item.ID] = cloneItem(item)
	return nil
}

func (r *fakeRoadmapRepo) GetByID(_ context.Context, id int64) (*models.RoadmapItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, apperrors.ErrRoadmapNotFound
	}
	return cloneItem(item), nil
}

func (r *fakeRoadmapRepo) list(keep func(*models.RoadmapItem) bool) []*models.RoadmapItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.RoadmapItem{}
	for _, item := range r.items {
		if keep(item) {
			out = append(out, cloneItem(item))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *fakeRoadmapRepo) ListByStudent(_ context.Context, studentID int64) ([]*models.RoadmapItem, error) {
	return r.list(func(item *models.RoadmapItem) bool { return item.StudentID == studentID }), nil
}

func (r *fakeRoadmapRepo) ListByMentor(_ context.Context, mentorID int64) ([]*models.RoadmapItem, error) {
	return r.list(func(item *models.RoadmapItem) bool { return item.MentorID == mentorID }), nil
}

func (r *fakeRoadmapRepo) UpdateStatus(_ context.Context, id int64, status models.RoadmapStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return apperrors.ErrRoadmapNotFound
	}
	item.Status = status
	return nil
}

func (r *fakeRoadmapRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return apperrors.ErrRoadmapNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakeRoadmapRepo) UpdateUnit(_ context.Context, unit *models.RoadmapUnit, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[unit.RoadmapID]
	if !ok {
		return apperrors.ErrStaleUnit
	}
	stored, ok := item.Unit(unit.Kind, unit.ID)
	if !ok {
		return apperrors.ErrStaleUnit
	}
	if r.beforeUnitWrite != nil {
		r.beforeUnitWrite(stored)
	}
	if stored.Version != expectedVersion {
		return apperrors.ErrStaleUnit
	}
	unit.Version = expectedVersion + 1
	*stored = *unit
	return nil
}

func (r *fakeRoadmapRepo) AddQuestion(_ context.Context, q *models.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[q.RoadmapID]
	if !ok {
		return apperrors.ErrRoadmapNotFound
	}
	q.ID = int64(len(item.Questions) + 1)
	q.AskedAt = testNow
	item.Questions = append(item.Questions, *q)
	return nil
}

func (r *fakeRoadmapRepo) AnswerQuestion(_ context.Context, q *models.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[q.RoadmapID]
	if !ok {
		return apperrors.ErrQuestionNotFound
	}
	for i := range item.Questions {
		if item.Questions[i].ID == q.ID {
			item.Questions[i] = *q
			return nil
		}
	}
	return apperrors.ErrQuestionNotFound
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []*models.Message
}

func (r *fakeMessageRepo) Create(_ context.Context, msg *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg.ID = int64(len(r.messages) + 1)
	msg.CreatedAt = testNow.Add(time.Duration(msg.ID) * time.Second)
	c := *msg
	r.messages = append(r.messages, &c)
	return nil
}

func (r *fakeMessageRepo) ListConversation(_ context.Context, a, b int64, limit uint64) ([]*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Message{}
	for _, m := range r.messages {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			c := *m
			out = append(out, &c)
		}
	}
	if limit > 0 && uint64(len(out)) > limit {
		out = out[uint64(len(out))-limit:]
	}
	return out, nil
}

func (r *fakeMessageRepo) MarkRead(_ context.Context, readerID, otherID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.messages {
		if m.SenderID == otherID && m.ReceiverID == readerID && !m.Read {
			m.Read = true
			n++
		}
	}
	return n, nil
}

type storedToken struct {
	userID    int64
	expiresAt time.Time
	revoked   bool
}

type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*storedToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: map[string]*storedToken{}}
}

func (r *fakeTokenRepo) Create(_ context.Context, token string, userID int64, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = &storedToken{userID: userID, expiresAt: expiresAt}
	return nil
}

func (r *fakeTokenRepo) Consume(_ context.Context, token string, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[token]
	switch {
	case !ok:
		return 0, apperrors.ErrTokenNotFound
	case t.revoked:
		return 0, apperrors.ErrTokenRevoked
	case t.expiresAt.Before(now):
		return 0, apperrors.ErrTokenExpired
	}
	t.revoked = true
	return t.userID, nil
}

func (r *fakeTokenRepo) RevokeAllForUser(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.userID == userID {
			t.revoked = true
		}
	}
	return nil
}

func (r *fakeTokenRepo) CleanupExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, t := range r.tokens {
		if t.expiresAt.Before(now) {
			delete(r.tokens, k)
			n++
		}
	}
	return n, nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []websocket.Event
	err    error
}

func (b *recordingBus) Publish(_ context.Context, e websocket.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.events = append(b.events, e)
	return nil
}

func (b *recordingBus) Start(context.Context, func(websocket.Event)) error { return nil }

func (b *recordingBus) Close() error { return nil }

// env wires every service over the same fakes
type env struct {
	users    *fakeUserRepo
	requests *fakeMentorshipRepo
	roadmaps *fakeRoadmapRepo
	messages *fakeMessageRepo
	tokens   *fakeTokenRepo
	bus      *recordingBus
	now      time.Time
	authz    *appAuth.AuthorizationService
}

func newEnv() *env {
	e := &env{
		users:    newFakeUserRepo(),
		roadmaps: newFakeRoadmapRepo(),
		messages: &fakeMessageRepo{},
		tokens:   newFakeTokenRepo(),
		bus:      &recordingBus{},
		now:      testNow,
	}
	e.requests = newFakeMentorshipRepo(e.users)
	e.authz = appAuth.NewAuthorizationService(e.users)
	return e
}

func (e *env) clock() timeutil.Clock {
	return func() time.Time { return e.now }
}

func (e *env) mentorship() MentorshipService {
	return NewMentorshipService(e.users, e.requests, e.authz, e.clock(), zerolog.Nop())
}

func (e *env) gamification(loc *time.Location) GamificationService {
	return NewGamificationService(e.users, e.authz, e.clock(), loc, zerolog.Nop())
}

func (e *env) roadmap(xpPerApproval int) RoadmapService {
	return NewRoadmapService(e.roadmaps, e.users, e.authz, e.gamification(time.UTC), xpPerApproval, e.clock(), zerolog.Nop())
}

func (e *env) chat(opts ChatOptions) ChatService {
	return NewChatService(e.users, e.messages, e.authz, e.bus, nil, opts, zerolog.Nop())
}

// pair creates a student assigned to a mentor
func (e *env) pair() (*models.User, *models.User) {
	mentor := e.users.mentor("mentor")
	student := e.users.student("student")
	if err := e.users.AssignMentor(context.Background(), student.ID, mentor.ID); err != nil {
		panic(err)
	}
	return e.users.get(student.ID), mentor
}
