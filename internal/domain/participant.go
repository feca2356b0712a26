package domain

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Participant is one connection's membership inside a room. ID equals the
// connection id.
type Participant struct {
	ID         string   `json:"id"`
	Username   string   `json:"username"`
	IsSpeaker  bool     `json:"isSpeaker"`
	IsHost     bool     `json:"isHost"`
	HandRaised bool     `json:"handRaised"`
	Position   Position `json:"position"`
	Color      string   `json:"color"`
	MicActive  bool     `json:"micActive"`
}
