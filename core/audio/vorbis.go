package audio

import (
	"context"
	"fmt"
	"io"
	"os"

	"soundswap/model"

	"github.com/jfreymuth/oggvorbis"
)

// VorbisDecoder 在独立 goroutine 中解码 OGG Vorbis 文件
type VorbisDecoder struct{}

// NewVorbisDecoder 创建解码器
func NewVorbisDecoder() *VorbisDecoder {
	return &VorbisDecoder{}
}

// Start 立即返回，解码在后台进行
func (d *VorbisDecoder) Start(path string) DecodeHandle {
	return startVorbis(path, func() (io.ReadCloser, error) { return openVorbisFile(path) })
}

func startVorbis(name string, open func() (io.ReadCloser, error)) *vorbisHandle {
	ctx, cancel := context.WithCancel(context.Background())
	h := &vorbisHandle{done: make(chan struct{}), cancel: cancel}
	go h.run(ctx, name, open)
	return h
}

type vorbisHandle struct {
	done   chan struct{}
	cancel context.CancelFunc
	pcm    *PCM
	err    error
}

func (h *vorbisHandle) run(ctx context.Context, name string, open func() (io.ReadCloser, error)) {
	defer close(h.done)
	h.pcm, h.err = decodeVorbis(ctx, name, open)
}

func (h *vorbisHandle) Done() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *vorbisHandle) Poll() (*PCM, error) {
	if !h.Done() {
		return nil, fmt.Errorf("decode still in progress")
	}
	return h.pcm, h.err
}

func (h *vorbisHandle) Cancel() {
	h.cancel()
}

func openVorbisFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", model.ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

func decodeVorbis(ctx context.Context, name string, open func() (io.ReadCloser, error)) (*PCM, error) {
	r, err := open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	// 取消时关闭输入，打断阻塞中的 Read
	stop := context.AfterFunc(ctx, func() { r.Close() })
	defer stop()

	samples, format, err := oggvorbis.ReadAll(&ctxReader{ctx: ctx, r: r})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("decode vorbis %s: %w", name, err)
	}
	if format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("decode vorbis %s: invalid stream format", name)
	}
	return &PCM{Channels: format.Channels, SampleRate: format.SampleRate, Samples: samples}, nil
}

// ctxReader 让取消在下一次 Read 时生效
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
