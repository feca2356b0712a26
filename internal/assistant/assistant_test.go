package assistant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMentioned(t *testing.T) {
	req := require.New(t)

	req.True(Mentioned("hey @AI how do I say hello?"))
	req.True(Mentioned("@host can I speak"))
	req.False(Mentioned("just chatting"))
	req.False(Mentioned("email me at ai dot com"))
}

func TestUnavailable_Reply(t *testing.T) {
	got, err := Unavailable{}.Reply(context.Background(), Prompt{Message: "@ai hi"})

	require.NoError(t, err)
	require.Equal(t, UnavailableReply, got)
}
