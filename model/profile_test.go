package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaybackProfileClamped(t *testing.T) {
	tests := []struct {
		name  string
		in    PlaybackProfile
		check func(t *testing.T, p PlaybackProfile)
	}{
		{
			name: "volume and pitch out of range",
			in:   PlaybackProfile{Volume: 4, Pitch: -9, MaxDistance: 10},
			check: func(t *testing.T, p PlaybackProfile) {
				assert.Equal(t, 1.0, p.Volume)
				assert.Equal(t, MinPitch, p.Pitch)
			},
		},
		{
			name: "max distance below min distance",
			in:   PlaybackProfile{Volume: 1, MinDistance: 50, MaxDistance: 10},
			check: func(t *testing.T, p PlaybackProfile) {
				assert.Equal(t, 50.0, p.MinDistance)
				assert.InDelta(t, 50+DistanceMargin, p.MaxDistance, 1e-9)
			},
		},
		{
			name: "negative distances and fades",
			in:   PlaybackProfile{MinDistance: -1, MaxDistance: -5, FadeIn: -2, FadeOut: -3},
			check: func(t *testing.T, p PlaybackProfile) {
				assert.Equal(t, 0.0, p.MinDistance)
				assert.InDelta(t, DistanceMargin, p.MaxDistance, 1e-9)
				assert.Equal(t, 0.0, p.FadeIn)
				assert.Equal(t, 0.0, p.FadeOut)
			},
		},
		{
			name: "NaN falls back to defaults",
			in:   PlaybackProfile{Volume: math.NaN(), Pitch: math.NaN(), Spread: 720, MaxDistance: 20},
			check: func(t *testing.T, p PlaybackProfile) {
				assert.Equal(t, 1.0, p.Volume)
				assert.Equal(t, 1.0, p.Pitch)
				assert.Equal(t, MaxSpread, p.Spread)
			},
		},
		{
			name: "unknown curve",
			in:   PlaybackProfile{MaxDistance: 10, RolloffCurve: RolloffCurve(9)},
			check: func(t *testing.T, p PlaybackProfile) {
				assert.Equal(t, RolloffLogarithmic, p.RolloffCurve)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.in
			out := tt.in.Clamped()
			tt.check(t, out)
			assert.True(t, out.IsValid())
			assert.Equal(t, out, out.Clamped(), "clamping is idempotent")
			if !math.IsNaN(original.Volume) {
				assert.Equal(t, original, tt.in, "receiver is not modified")
			}
		})
	}
}

func TestPlaybackProfileApproxEqual(t *testing.T) {
	base := FallbackProfile()

	near := base
	near.Volume -= ProfileEpsilon / 2
	assert.True(t, base.ApproxEqual(near))

	far := base
	far.Pitch += 0.01
	assert.False(t, base.ApproxEqual(far))

	looped := base
	looped.Loop = true
	assert.False(t, base.ApproxEqual(looped))
}

func TestRolloffCurveJSON(t *testing.T) {
	p := FallbackProfile()
	p.RolloffCurve = RolloffLinear

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"rolloffCurve":"Linear"`)

	var back PlaybackProfile
	require.NoError(t, json.Unmarshal([]byte(`{"rolloffCurve":"custom"}`), &back))
	assert.Equal(t, RolloffCustom, back.RolloffCurve)

	assert.Error(t, json.Unmarshal([]byte(`{"rolloffCurve":"spiral"}`), &back))
}
