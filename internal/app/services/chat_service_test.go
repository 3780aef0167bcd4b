package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/mentorconnect/internal/app/models"
	"github.com/yigit/mentorconnect/internal/pkg/apperrors"
	"github.com/yigit/mentorconnect/internal/pkg/websocket"
)

var pairedChat = ChatOptions{RequirePairing: true, MaxMessageLength: 50}

func TestSendMessage_PersistsThenPublishesToReceiver(t *testing.T) {
	e := newEnv()
	svc := e.chat(pairedChat)
	ctx := context.Background()
	student, mentor := e.pair()

	msg, err := svc.SendMessage(ctx, student.ID, mentor.ID, "hello mentor")
	require.NoError(t, err)
	assert.NotZero(t, msg.ID)
	assert.False(t, msg.Read)

	require.Len(t, e.bus.events, 1)
	event := e.bus.events[0]
	assert.Equal(t, websocket.EventReceiveMessage, event.Type)
	assert.Equal(t, mentor.ID, event.ReceiverID)

	var delivered models.Message
	require.NoError(t, json.Unmarshal(event.Payload, &delivered))
	assert.Equal(t, msg.ID, delivered.ID)
	assert.Equal(t, "hello mentor", delivered.Content)
}

func TestSendMessage_PublishFailureKeepsMessage(t *testing.T) {
	e := newEnv()
	e.bus.err = errors.New("redis down")
	svc := e.chat(pairedChat)
	ctx := context.Background()
	student, mentor := e.pair()

	msg, err := svc.SendMessage(ctx, mentor.ID, student.ID, "still saved")
	require.NoError(t, err)

	history, err := svc.GetHistory(ctx, student.ID, mentor.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, msg.ID, history[0].ID)
}

func TestSendMessage_Validation(t *testing.T) {
	e := newEnv()
	svc := e.chat(pairedChat)
	ctx := context.Background()
	student, mentor := e.pair()
	stranger := e.users.mentor("max")

	tests := []struct {
		name     string
		sender   int64
		receiver int64
		content  string
		kind     error
	}{
		{"blank", student.ID, mentor.ID, "   ", apperrors.ErrInvalidArgument},
		{"too long", student.ID, mentor.ID, strings.Repeat("a", 51), apperrors.ErrInvalidArgument},
		{"self", student.ID, student.ID, "hi me", apperrors.ErrInvalidArgument},
		{"not paired", student.ID, stranger.ID, "hi", apperrors.ErrPermissionDenied},
		{"unknown receiver", student.ID, 999, "hi", apperrors.ErrResourceNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SendMessage(ctx, tt.sender, tt.receiver, tt.content)
			assert.Equal(t, tt.kind, apperrors.Kind(err))
		})
	}
	assert.Empty(t, e.bus.events)
}

func TestSendMessage_PairingCanBeDisabled(t *testing.T) {
	e := newEnv()
	svc := e.chat(ChatOptions{RequirePairing: false})
	ctx := context.Background()
	a := e.users.student("ann")
	b := e.users.student("bob")

	_, err := svc.SendMessage(ctx, a.ID, b.ID, "study group?")
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, a.ID, 999, "anyone?")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestHistoryAndMarkRead(t *testing.T) {
	e := newEnv()
	svc := e.chat(pairedChat)
	ctx := context.Background()
	student, mentor := e.pair()

	for _, m := range []struct {
		from, to int64
		text     string
	}{
		{student.ID, mentor.ID, "one"},
		{mentor.ID, student.ID, "two"},
		{student.ID, mentor.ID, "three"},
	} {
		_, err := svc.SendMessage(ctx, m.from, m.to, m.text)
		require.NoError(t, err)
	}

	history, err := svc.GetHistory(ctx, mentor.ID, student.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, []string{"one", "two", "three"}, []string{history[0].Content, history[1].Content, history[2].Content})

	updated, err := svc.MarkRead(ctx, mentor.ID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	updated, err = svc.MarkRead(ctx, mentor.ID, student.ID)
	require.NoError(t, err)
	assert.Zero(t, updated)

	// the mentor's own message stays unread until the student reads it
	history, err = svc.GetHistory(ctx, student.ID, mentor.ID)
	require.NoError(t, err)
	assert.False(t, history[1].Read)

	stranger := e.users.student("lou")
	_, err = svc.GetHistory(ctx, stranger.ID, mentor.ID)
	assert.Equal(t, apperrors.ErrPermissionDenied, apperrors.Kind(err))
}

func TestSendMessage_DeliveredThroughHub(t *testing.T) {
	e := newEnv()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := websocket.NewHub(nil, zerolog.Nop())
	go hub.Run(ctx)
	bus := websocket.NewLocalBus()
	require.NoError(t, bus.Start(ctx, hub.Dispatch))

	svc := NewChatService(e.users, e.messages, e.authz, bus, hub, pairedChat, zerolog.Nop())
	student, mentor := e.pair()

	receiver := websocket.NewClient(hub, nil, mentor.ID, zerolog.Nop())
	hub.Register(receiver)
	hub.Join(receiver)
	// the hub handles events in order, so this returns after the join
	sentinel := websocket.NewClient(hub, nil, -1, zerolog.Nop())
	hub.Register(sentinel)
	hub.Unregister(sentinel)

	online, err := svc.IsOnline(ctx, mentor.ID)
	require.NoError(t, err)
	assert.True(t, online)

	_, err = svc.SendMessage(ctx, student.ID, mentor.ID, "ping")
	require.NoError(t, err)

	select {
	case frame := <-receiver.Send():
		var env websocket.Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		assert.Equal(t, websocket.EventReceiveMessage, env.Type)
	case <-time.After(time.Second):
		t.Fatal("receiver got nothing")
	}

	online, err = svc.IsOnline(ctx, student.ID)
	require.NoError(t, err)
	assert.False(t, online)
}
