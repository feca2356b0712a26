package idgen

import (
	"crypto/rand"
	"io"
)

const (
	roomIDLen     = 7
	roomAlphabet  = "0123456789abcdefghijklmnopqrstuvwxyz"
	rejectAboveOf = 256 - (256 % len(roomAlphabet))
)

// NewRoomID returns a short base-36 token. Collisions are possible; callers
// retry.
func NewRoomID() (string, error) {
	return newToken(rand.Reader, roomIDLen)
}

func newToken(r io.Reader, n int) (string, error) {
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			// rejection sampling keeps the alphabet uniform
			if int(b) >= rejectAboveOf {
				continue
			}
			out = append(out, roomAlphabet[int(b)%len(roomAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
