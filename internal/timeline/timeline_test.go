package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertOverwrites(t *testing.T) {
	tl := New("d1")

	_, err := tl.Insert(4, "up", 40, 30)
	require.NoError(t, err)
	_, err = tl.Insert(4, "land", 0, 0)
	require.NoError(t, err)

	kf, ok := tl.At(4)
	require.True(t, ok)
	assert.Equal(t, Keyframe{Frame: 4, Motion: "land"}, kf)
	assert.Equal(t, 1, tl.Len())
}

func TestEditsRejectNegativeFrames(t *testing.T) {
	tl := New("d1")

	_, err := tl.Insert(-1, "up", 0, 0)
	assert.ErrorIs(t, err, ErrInvalidFrame)
	_, err = tl.Remove(-3)
	assert.ErrorIs(t, err, ErrInvalidFrame)
	_, _, err = tl.Update(-1, Patch{})
	assert.ErrorIs(t, err, ErrInvalidFrame)
	_, _, err = tl.Move(1, -1)
	assert.ErrorIs(t, err, ErrInvalidFrame)
}

func TestRemove(t *testing.T) {
	tl := New("d1")
	tl.Insert(2, "up", 10, 10)

	ok, err := tl.Remove(2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = tl.Remove(2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdatePartial(t *testing.T) {
	tl := New("d1")
	tl.Insert(6, "forward", 40, 30)

	speed := 80
	kf, ok, err := tl.Update(6, Patch{Speed: &speed})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Keyframe{Frame: 6, Motion: "forward", Speed: 80, Steps: 30}, kf)

	name := "backward"
	kf, _, _ = tl.Update(6, Patch{Motion: &name})
	assert.Equal(t, "backward", kf.Motion)
	assert.Equal(t, 80, kf.Speed)

	_, ok, err = tl.Update(7, Patch{Speed: &speed})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMove(t *testing.T) {
	tl := New("d1")
	tl.Insert(1, "up", 10, 10)
	tl.Insert(5, "down", 20, 20)

	kf, ok, err := tl.Move(1, 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, kf.Frame)
	assert.Equal(t, []Keyframe{{Frame: 5, Motion: "up", Speed: 10, Steps: 10}}, tl.Keyframes())

	_, ok, err = tl.Move(9, 2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKeyframesSorted(t *testing.T) {
	tl := New("d1")
	for _, f := range []int{9, 0, 4, 12} {
		tl.Insert(f, "land", 0, 0)
	}

	var frames []int
	for _, kf := range tl.Keyframes() {
		frames = append(frames, kf.Frame)
	}
	assert.Equal(t, []int{0, 4, 9, 12}, frames)
}

func TestDropFrame(t *testing.T) {
	tests := []struct {
		x    float64
		want int
	}{
		{0, 0},
		{9.9, 0},
		{10, 1},
		{29, 1},
		{31, 2},
		{180, 9},
		{-4, 0},
	}
	for _, tt := range tests {
		got, err := DropFrame(tt.x, 20)
		require.NoError(t, err, tt.x)
		assert.Equal(t, tt.want, got, tt.x)
	}

	_, err := DropFrame(-40, 20)
	assert.ErrorIs(t, err, ErrInvalidFrame)
	_, err = DropFrame(40, 0)
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestEvaluateEdges(t *testing.T) {
	tl := New("d1")
	tl.Insert(9, "up", 40, 30)

	assert.Empty(t, tl.evaluate(7, false, 0))
	assert.Empty(t, tl.evaluate(8, false, 0))
	assert.Len(t, tl.evaluate(9, false, 0), 1)
	assert.Empty(t, tl.evaluate(9, false, 0), "stationary play-head")
	assert.Empty(t, tl.evaluate(10, false, 0))
	assert.Equal(t, 10, tl.LastFired())

	assert.Empty(t, tl.evaluate(10, true, 0))
	assert.Equal(t, NoFrame, tl.LastFired())
}

func TestEvaluateBackwardSeek(t *testing.T) {
	tl := New("d1")
	tl.Insert(3, "up", 0, 0)

	for f := 0; f <= 5; f++ {
		tl.evaluate(f, false, 0)
	}
	assert.Len(t, tl.evaluate(3, false, 0), 1, "seeking back onto a keyframe fires it again")
	assert.Empty(t, tl.evaluate(4, false, 0))
}

func TestEvaluateCatchUp(t *testing.T) {
	tl := New("d1")
	tl.Insert(3, "up", 0, 0)
	tl.Insert(4, "down", 0, 0)
	tl.Insert(6, "land", 0, 0)

	tl.evaluate(2, false, 2)
	fired := tl.evaluate(5, false, 2)
	require.Len(t, fired, 2)
	assert.Equal(t, 3, fired[0].Frame)
	assert.Equal(t, 4, fired[1].Frame)

	// a jump past the catch-up window behaves like a seek
	tl.evaluate(0, true, 2)
	tl.evaluate(0, false, 2)
	fired = tl.evaluate(6, false, 2)
	require.Len(t, fired, 1)
	assert.Equal(t, 6, fired[0].Frame)
}

func TestEvaluateStrictSkipsJumpedFrames(t *testing.T) {
	tl := New("d1")
	tl.Insert(3, "up", 0, 0)

	tl.evaluate(2, false, 0)
	assert.Empty(t, tl.evaluate(4, false, 0))
}
