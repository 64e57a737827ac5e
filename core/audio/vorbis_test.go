package audio

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"soundswap/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVorbisDecoderFailureThroughCache(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "noise.ogg", bytes.Repeat([]byte("not an ogg stream "), 64))

	c := NewAssetCache(CacheOptions{
		Capacity:        4,
		DecodeTimeout:   5 * time.Second,
		FailureCooldown: time.Minute,
	})
	defer c.Close()

	require.Equal(t, LoadPending, c.Load(path).Status)

	deadline := time.Now().Add(5 * time.Second)
	for c.HasPending() && time.Now().Before(deadline) {
		c.PollPending()
		time.Sleep(5 * time.Millisecond)
	}
	require.False(t, c.HasPending(), "decode did not finish")

	res := c.Load(path)
	require.Equal(t, LoadFailure, res.Status)
	assert.ErrorIs(t, res.Err, model.ErrDecodeFailure)
	assert.Equal(t, LoadFailure, c.Load(path).Status, "failure is cached during the cooldown")
}

func TestVorbisDecoderMissingFile(t *testing.T) {
	h := NewVorbisDecoder().Start("/does/not/exist.ogg")
	require.Eventually(t, h.Done, 2*time.Second, 5*time.Millisecond)
	_, err := h.Poll()
	assert.ErrorIs(t, err, model.ErrFileNotFound)
}

func TestVorbisHandleCancelStopsDecode(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	h := startVorbis("stream.ogg", func() (io.ReadCloser, error) { return pr, nil })
	assert.False(t, h.Done(), "decode blocks until data arrives")
	_, err := h.Poll()
	assert.Error(t, err)

	h.Cancel()
	select {
	case <-h.done:
	case <-time.After(2 * time.Second):
		t.Fatal("decode goroutine still running after Cancel")
	}

	assert.True(t, h.Done())
	pcm, err := h.Poll()
	assert.Nil(t, pcm)
	assert.ErrorIs(t, err, context.Canceled)
}
