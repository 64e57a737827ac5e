package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// wavBytes 组装一个最小的 RIFF/WAVE 文件
func wavBytes(formatTag uint16, channels, rate, bits int, payload []byte) []byte {
	var buf bytes.Buffer
	le := binary.LittleEndian
	blockAlign := channels * bits / 8

	buf.WriteString("RIFF")
	_ = binary.Write(&buf, le, uint32(4+8+16+8+len(payload)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, le, uint32(16))
	_ = binary.Write(&buf, le, formatTag)
	_ = binary.Write(&buf, le, uint16(channels))
	_ = binary.Write(&buf, le, uint32(rate))
	_ = binary.Write(&buf, le, uint32(rate*blockAlign))
	_ = binary.Write(&buf, le, uint16(blockAlign))
	_ = binary.Write(&buf, le, uint16(bits))
	buf.WriteString("data")
	_ = binary.Write(&buf, le, uint32(len(payload)))
	buf.Write(payload)
	return buf.Bytes()
}

func pcm16(samples ...int16) []byte {
	var buf bytes.Buffer
	for _, s := range samples {
		_ = binary.Write(&buf, binary.LittleEndian, s)
	}
	return buf.Bytes()
}

func writeWAV(t *testing.T, dir, name string, samples ...int16) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, wavBytes(wavFormatPCM, 1, 8000, 16, pcm16(samples...)), 0644))
	return path
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

// fakeClock 可手动推进的时钟
type fakeClock struct{ now time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// fakeHandle 由测试手动完成的解码句柄
type fakeHandle struct {
	path      string
	done      bool
	cancelled bool
	pcm       *PCM
	err       error
}

func (h *fakeHandle) Done() bool          { return h.done }
func (h *fakeHandle) Poll() (*PCM, error) { return h.pcm, h.err }
func (h *fakeHandle) Cancel()             { h.cancelled = true }

func (h *fakeHandle) succeed() {
	h.done = true
	h.pcm = &PCM{Channels: 2, SampleRate: 44100, Samples: []float32{0.1, -0.1, 0.2, -0.2}}
}

func (h *fakeHandle) fail(msg string) {
	h.done = true
	h.err = errors.New(msg)
}

type fakeDecoder struct {
	started []*fakeHandle
}

func (d *fakeDecoder) Start(path string) DecodeHandle {
	h := &fakeHandle{path: path}
	d.started = append(d.started, h)
	return h
}

func (d *fakeDecoder) last() *fakeHandle {
	if len(d.started) == 0 {
		return nil
	}
	return d.started[len(d.started)-1]
}
