package audio

import (
	"time"

	"soundswap/core/utils"

	"github.com/gopxl/beep/v2"
)

// PCM 解码后的归一化浮点采样，多声道交错存放
type PCM struct {
	Channels   int
	SampleRate int
	Samples    []float32
}

// Frames 返回帧数
func (p *PCM) Frames() int {
	if p == nil || p.Channels <= 0 {
		return 0
	}
	return len(p.Samples) / p.Channels
}

// Asset 缓存中可直接播放的音频。缓冲区归 AssetCache 所有，淘汰或关闭时释放。
type Asset struct {
	Path        string
	Fingerprint utils.Fingerprint
	PCM
	released bool
}

func newAsset(path string, fp utils.Fingerprint, pcm *PCM) *Asset {
	return &Asset{Path: path, Fingerprint: fp, PCM: *pcm}
}

// Released 报告缓冲区是否已被缓存释放
func (a *Asset) Released() bool {
	return a.released
}

func (a *Asset) release() {
	a.released = true
	a.Samples = nil
}

// Duration 播放时长
func (a *Asset) Duration() time.Duration {
	if a.SampleRate <= 0 {
		return 0
	}
	return beep.SampleRate(a.SampleRate).D(a.Frames())
}

// Format 返回 beep 格式描述
func (a *Asset) Format() beep.Format {
	return beep.Format{
		SampleRate:  beep.SampleRate(a.SampleRate),
		NumChannels: a.Channels,
		Precision:   4,
	}
}

// Streamer 返回一个从头播放的立体声流；单声道复制到两侧，多于两声道时取前两个
func (a *Asset) Streamer() beep.StreamSeeker {
	return &assetStreamer{asset: a}
}

type assetStreamer struct {
	asset *Asset
	pos   int
}

var _ beep.StreamSeeker = (*assetStreamer)(nil)

func (s *assetStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	a := s.asset
	frames := a.Frames()
	if s.pos >= frames || a.Channels <= 0 {
		return 0, false
	}
	for n < len(samples) && s.pos < frames {
		base := s.pos * a.Channels
		left := float64(a.Samples[base])
		right := left
		if a.Channels > 1 {
			right = float64(a.Samples[base+1])
		}
		samples[n][0] = left
		samples[n][1] = right
		n++
		s.pos++
	}
	return n, true
}

func (s *assetStreamer) Err() error { return nil }

func (s *assetStreamer) Len() int { return s.asset.Frames() }

func (s *assetStreamer) Position() int { return s.pos }

func (s *assetStreamer) Seek(p int) error {
	if p < 0 {
		p = 0
	}
	if frames := s.asset.Frames(); p > frames {
		p = frames
	}
	s.pos = p
	return nil
}
