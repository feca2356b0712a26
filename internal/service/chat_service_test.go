package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sawariz0r/3d-voice-room/internal/assistant"
	"github.com/sawariz0r/3d-voice-room/internal/assistant/mocks"
	"github.com/sawariz0r/3d-voice-room/internal/domain"
	"github.com/sawariz0r/3d-voice-room/internal/moderation"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newChatRoom(t *testing.T, asst assistant.Assistant, opts ChatOptions) (*ChatService, *fakeNotifier, string) {
	t.Helper()
	ctx := context.Background()
	registry, engine, notifier := newTestEngine(t)
	notifier.connect("a", "b")

	roomID, err := registry.CreateRoom(ctx, "Practice", "Spanish", "Travel", "a")
	require.NoError(t, err)
	_, err = engine.Join(ctx, roomID, "a", "Alice")
	require.NoError(t, err)
	_, err = engine.Join(ctx, roomID, "b", "Bob")
	require.NoError(t, err)
	notifier.reset()

	mod, err := moderation.NewModerator([]string{"crap"}, '*')
	require.NoError(t, err)

	svc := NewChatService(registry, notifier, mod, asst, opts)
	svc.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	return svc, notifier, roomID
}

func TestChatService_Send_Broadcasts_To_Everyone(t *testing.T) {
	req := require.New(t)
	svc, notifier, roomID := newChatRoom(t, nil, ChatOptions{})

	msg, err := svc.Send(context.Background(), roomID, "b", "  hola a todos  ")

	req.NoError(err)
	req.Equal(domain.ChatMessage{UserID: "b", Text: "hola a todos", Timestamp: 1_700_000_000_000}, msg)
	last := notifier.lastBroadcast()
	req.Equal(domain.EventNewMessage, last.Event)
	req.Empty(last.Except)
	req.Equal(msg, last.Payload)
}

func TestChatService_Send_Censors(t *testing.T) {
	svc, notifier, roomID := newChatRoom(t, nil, ChatOptions{})

	msg, err := svc.Send(context.Background(), roomID, "a", "what a CRAP day")

	require.NoError(t, err)
	require.Equal(t, "what a **** day", msg.Text)
	require.Equal(t, msg, notifier.lastBroadcast().Payload)
}

func TestChatService_Send_Detects_Language(t *testing.T) {
	svc, _, roomID := newChatRoom(t, nil, ChatOptions{DetectLanguage: true})

	msg, err := svc.Send(context.Background(), roomID, "a",
		"Ceci est une phrase assez longue pour que la langue soit reconnue sans aucun doute.")

	require.NoError(t, err)
	require.Equal(t, "fr", msg.Lang)
}

func TestChatService_Send_Rejects(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		roomID  string
		userID  string
		text    string
		wantErr error
	}{
		{name: "empty text", userID: "a", text: "   ", wantErr: domain.ErrValidation},
		{name: "too long", userID: "a", text: strings.Repeat("x", 11), wantErr: domain.ErrValidation},
		{name: "not a member", userID: "ghost", text: "hi", wantErr: domain.ErrNotInRoom},
		{name: "unknown room", roomID: "missing", userID: "a", text: "hi", wantErr: domain.ErrRoomNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, notifier, roomID := newChatRoom(t, nil, ChatOptions{MaxLength: 10})
			if tt.roomID != "" {
				roomID = tt.roomID
			}

			_, err := svc.Send(ctx, roomID, tt.userID, tt.text)

			require.ErrorIs(t, err, tt.wantErr)
			require.Empty(t, notifier.broadcasts)
		})
	}
}

func TestChatService_Mention_Triggers_Assistant(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	asst := mocks.NewMockAssistant(ctrl)
	svc, notifier, roomID := newChatRoom(t, asst, ChatOptions{})

	asst.EXPECT().
		Reply(gomock.Any(), assistant.Prompt{
			Message:  "@ai como se dice hello?",
			Users:    []string{"Alice", "Bob"},
			Topic:    "Travel",
			Language: "Spanish",
		}).
		Return("Se dice hola.", nil)

	_, err := svc.Send(context.Background(), roomID, "b", "@ai como se dice hello?")
	req.NoError(err)
	svc.Wait()

	last := notifier.lastBroadcast()
	req.Equal(domain.EventNewMessage, last.Event)
	reply, ok := last.Payload.(domain.ChatMessage)
	req.True(ok)
	req.Equal(domain.AIHostID, reply.UserID)
	req.Equal("Se dice hola.", reply.Text)
}

func TestChatService_Assistant_Error_Falls_Back(t *testing.T) {
	ctrl := gomock.NewController(t)
	asst := mocks.NewMockAssistant(ctrl)
	svc, notifier, roomID := newChatRoom(t, asst, ChatOptions{})

	asst.EXPECT().Reply(gomock.Any(), gomock.Any()).Return("", errors.New("quota exceeded"))

	_, err := svc.Send(context.Background(), roomID, "a", "hey @host")
	require.NoError(t, err)
	svc.Wait()

	reply := notifier.lastBroadcast().Payload.(domain.ChatMessage)
	require.Equal(t, assistant.ListeningReply, reply.Text)
}

func TestChatService_Stop_Abandons_Delayed_Reply(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	asst := mocks.NewMockAssistant(ctrl)
	svc, notifier, roomID := newChatRoom(t, asst, ChatOptions{ReplyDelay: time.Hour})

	asst.EXPECT().Reply(gomock.Any(), gomock.Any()).Return("Hola!", nil)

	// Given a reply that is waiting out its delay
	_, err := svc.Send(context.Background(), roomID, "a", "@ai hola")
	req.NoError(err)

	// When the service stops
	stopped := make(chan struct{})
	go func() {
		svc.Stop()
		close(stopped)
	}()

	// Then it returns without the delay and nothing is posted
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop waited for the reply delay")
	}
	req.Equal([]string{domain.EventNewMessage}, notifier.broadcastEvents())

	// And later mentions are not forwarded
	_, err = svc.Send(context.Background(), roomID, "a", "@ai again")
	req.NoError(err)
	svc.Wait()
	req.Equal([]string{domain.EventNewMessage, domain.EventNewMessage}, notifier.broadcastEvents())
}

func TestChatService_No_Mention_No_Assistant_Call(t *testing.T) {
	ctrl := gomock.NewController(t)
	asst := mocks.NewMockAssistant(ctrl)
	svc, notifier, roomID := newChatRoom(t, asst, ChatOptions{})

	_, err := svc.Send(context.Background(), roomID, "a", "plain message")
	require.NoError(t, err)
	svc.Wait()

	require.Equal(t, []string{domain.EventNewMessage}, notifier.broadcastEvents())
}

func TestChatService_VoiceActivity_Excludes_Sender(t *testing.T) {
	req := require.New(t)
	svc, notifier, roomID := newChatRoom(t, nil, ChatOptions{})

	req.NoError(svc.VoiceActivity(context.Background(), roomID, "a", 0.42))

	last := notifier.lastBroadcast()
	req.Equal(domain.EventUserVoiceActivity, last.Event)
	req.Equal("a", last.Except)
	req.Equal(domain.VoiceActivity{UserID: "a", Volume: 0.42}, last.Payload)

	req.ErrorIs(svc.VoiceActivity(context.Background(), roomID, "ghost", 1), domain.ErrNotInRoom)
}
