package errors

import (
	"github.com/stretchr/testify/require"
	"log/slog"
	"slices"
	"testing"
)

func sourceOf(t *testing.T, v slog.Value) string {
	t.Helper()
	group := v.Group()
	i := slices.IndexFunc(group, func(attr slog.Attr) bool { return attr.Key == "source" })
	require.GreaterOrEqual(t, i, 0, "no source attribute")
	return group[i].Value.String()
}

func TestNew(t *testing.T) {
	err := New("case generation failed", slog.String("game_id", "123"))
	require.Equal(t, "case generation failed", err.Error())
	require.Contains(t, err.LogValue().Group(), slog.String("game_id", "123"))
	require.Contains(t, sourceOf(t, err.LogValue()), "annotatederror_test.go")

	// Sentinels compare by identity, not by message.
	sentinel := NewSentinel("upstream failure")
	require.NotErrorIs(t, err.Wrap(NewSentinel("upstream failure")), sentinel)
	require.ErrorIs(t, err.Wrap(sentinel), sentinel)
}

func TestWrap(t *testing.T) {
	sentinel := NewSentinel("not found")
	wrapped := Wrap(sentinel, "load game", slog.String("game_id", "abc"))
	require.ErrorIs(t, wrapped, sentinel)
	require.Equal(t, "load game: not found", wrapped.Error())

	var annotated AnnotatedError
	require.True(t, As(wrapped, &annotated))
	require.Contains(t, annotated.LogValue().Group(), slog.String("game_id", "abc"))
	require.Contains(t, sourceOf(t, annotated.LogValue()), "annotatederror_test.go")
}

func TestSlogError(t *testing.T) {
	plain := SlogError(NewSentinel("boom"))
	require.Equal(t, "error", plain.Key)
	require.Equal(t, "boom", plain.Value.String())

	annotated := SlogError(Wrap(NewSentinel("boom"), "outer", slog.Int("attempt", 1)))
	require.Equal(t, slog.KindGroup, annotated.Value.Kind())
	group := annotated.Value.Group()
	require.Contains(t, group, slog.String("message", "outer: boom"))
	require.Contains(t, group, slog.Int("attempt", 1))
}
