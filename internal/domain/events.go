package domain

// Inbound event names.
const (
	EventGetRooms       = "get-rooms"
	EventCreateRoom     = "create-room"
	EventJoinRoom       = "join-room"
	EventLeaveRoom      = "leave-room"
	EventSendMessage    = "send-message"
	EventVoiceActivity  = "voice-activity"
	EventRaiseHand      = "raise-hand"
	EventPromoteUser    = "promote-user"
	EventMoveToAudience = "move-to-audience"
	EventSetMic         = "set-mic"
	EventSignal         = "signal"
)

// Outbound event names.
const (
	EventWelcome           = "welcome"
	EventRoomList          = "room-list"
	EventRoomCreated       = "room-created"
	EventRoomState         = "room-state"
	EventUserJoined        = "user-joined"
	EventUserLeft          = "user-left"
	EventUserUpdated       = "user-updated"
	EventRoomInfoUpdate    = "room-info-update"
	EventNewMessage        = "new-message"
	EventUserVoiceActivity = "user-voice-activity"
	EventError             = "error"
)
