package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModerator_Censor(t *testing.T) {
	req := require.New(t)
	m, err := NewModerator([]string{"idiot", "crap"}, '*')
	req.NoError(err)

	tests := []struct {
		name  string
		in    string
		want  string
		words []string
	}{
		{name: "clean text", in: "hello everyone", want: "hello everyone"},
		{name: "plain word", in: "you idiot", want: "you *****", words: []string{"idiot"}},
		{name: "mixed case", in: "CRAP happens", want: "**** happens", words: []string{"crap"}},
		{name: "leet", in: "1d10t!", want: "*****!", words: []string{"idiot"}},
		{name: "split by dots", in: "c.r.a.p", want: "*******", words: []string{"crap"}},
		{name: "across a word boundary", in: "magic rap battle", want: "magic rap battle"},
		{name: "inside a longer word", in: "scrap metal", want: "scrap metal"},
		{name: "across punctuation into a word", in: "magic,rap", want: "magic,rap"},
		{name: "many spaces", in: "oh   crap   again", want: "oh   ****   again", words: []string{"crap"}},
		{name: "twice", in: "crap, crap", want: "****, ****", words: []string{"crap", "crap"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, words := m.Censor(tt.in)
			require.Equal(t, tt.want, got)
			require.ElementsMatch(t, tt.words, words)
		})
	}
}

func TestModerator_Phrase_Spans_Whitespace(t *testing.T) {
	req := require.New(t)
	m, err := NewModerator([]string{"  shut   up "}, '#')
	req.NoError(err)

	got, words := m.Censor("just shut\tup now")

	req.Equal("just ####### now", got)
	req.Equal([]string{"shut up"}, words)
}

func TestModerator_EmptyListPassesThrough(t *testing.T) {
	req := require.New(t)

	m, err := NewModerator(nil, 0)
	req.NoError(err)

	got, words := m.Censor("anything goes")
	req.Equal("anything goes", got)
	req.Empty(words)
}

func TestModerator_NilIsSafe(t *testing.T) {
	var m *Moderator

	got, words := m.Censor("hi")

	require.Equal(t, "hi", got)
	require.Nil(t, words)
}
