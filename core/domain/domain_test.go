package domain

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"soundswap/core/audio"
	"soundswap/model"

	"github.com/stretchr/testify/require"
)

// writeWAV 写一个 16 位单声道 PCM 文件
func writeWAV(t *testing.T, path string, samples ...int16) {
	t.Helper()
	var payload bytes.Buffer
	for _, s := range samples {
		binary.Write(&payload, binary.LittleEndian, s)
	}

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+payload.Len()))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))     // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1))     // channels
	binary.Write(&buf, binary.LittleEndian, uint32(22050)) // sample rate
	binary.Write(&buf, binary.LittleEndian, uint32(22050*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(payload.Len()))
	buf.Write(payload.Bytes())

	writeFile(t, path, buf.Bytes())
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
}

type fakeHandle struct {
	done      bool
	pcm       *audio.PCM
	err       error
	cancelled bool
}

func (h *fakeHandle) Done() bool                { return h.done }
func (h *fakeHandle) Poll() (*audio.PCM, error) { return h.pcm, h.err }
func (h *fakeHandle) Cancel()                   { h.cancelled = true }

type fakeDecoder struct {
	handles map[string]*fakeHandle
}

func newFakeDecoder() *fakeDecoder {
	return &fakeDecoder{handles: map[string]*fakeHandle{}}
}

func (d *fakeDecoder) Start(path string) audio.DecodeHandle {
	h := &fakeHandle{}
	d.handles[filepath.Base(path)] = h
	return h
}

// switchableTargets 测试中可以在运行时打开默认参数
type switchableTargets struct {
	defaults *model.PlaybackProfile
}

func (s *switchableTargets) Discover(traits Traits, cfg *model.DomainConfig) []Target {
	inner := ConfiguredTargets{}
	if s.defaults != nil {
		inner.Defaults = map[string]model.PlaybackProfile{traits.Name: *s.defaults}
	}
	return inner.Discover(traits, cfg)
}

type recordingSink struct {
	statuses []model.DomainStatus
	notify   chan struct{}
}

func (r *recordingSink) PublishStatus(status model.DomainStatus) {
	r.statuses = append(r.statuses, status)
	if r.notify != nil {
		select {
		case r.notify <- struct{}{}:
		default:
		}
	}
}
