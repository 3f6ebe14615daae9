package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModerator_Censor(t *testing.T) {
	moderator, err := NewModerator([]string{"badword", "slur"}, '*')
	require.NoError(t, err)

	t.Run("should replace a forbidden word", func(t *testing.T) {
		req := require.New(t)

		out, hits := moderator.Censor("this is a badword here")

		req.Equal("this is a ******* here", out)
		req.Equal(1, hits)
	})

	t.Run("should catch leet-speak variants", func(t *testing.T) {
		req := require.New(t)

		out, hits := moderator.Censor("b4dw0rd")

		req.Equal("*******", out)
		req.Equal(1, hits)
	})

	t.Run("should leave clean text untouched", func(t *testing.T) {
		req := require.New(t)

		out, hits := moderator.Censor("hello there")

		req.Equal("hello there", out)
		req.Zero(hits)
	})

	t.Run("should count multiple spans", func(t *testing.T) {
		req := require.New(t)

		_, hits := moderator.Censor("badword and slur")

		req.Equal(2, hits)
	})
}

func TestModerator_EmptyWordList(t *testing.T) {
	req := require.New(t)
	moderator, err := NewModerator(nil, '*')
	req.NoError(err)
	req.Zero(moderator.PatternCount())

	out, hits := moderator.Censor("anything goes")

	req.Equal("anything goes", out)
	req.Zero(hits)
}
