package model

import (
	"fmt"
	"math"
	"strings"
)

// RolloffCurve 距离衰减曲线
type RolloffCurve int

const (
	RolloffLogarithmic RolloffCurve = iota
	RolloffLinear
	RolloffCustom
)

var rolloffNames = map[RolloffCurve]string{
	RolloffLogarithmic: "Logarithmic",
	RolloffLinear:      "Linear",
	RolloffCustom:      "Custom",
}

func (c RolloffCurve) String() string {
	if name, ok := rolloffNames[c]; ok {
		return name
	}
	return fmt.Sprintf("RolloffCurve(%d)", int(c))
}

// MarshalText 以名称形式写入配置文件
func (c RolloffCurve) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText 接受名称（不区分大小写）或数字
func (c *RolloffCurve) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	for curve, name := range rolloffNames {
		if strings.EqualFold(s, name) {
			*c = curve
			return nil
		}
	}
	switch s {
	case "0":
		*c = RolloffLogarithmic
	case "1":
		*c = RolloffLinear
	case "2":
		*c = RolloffCustom
	default:
		return fmt.Errorf("unknown rolloff curve %q", s)
	}
	return nil
}

const (
	MinPitch       = -3.0
	MaxPitch       = 3.0
	MaxSpread      = 360.0
	DistanceMargin = 0.01

	// ProfileEpsilon is the per-field tolerance of ApproxEqual.
	ProfileEpsilon = 1e-3
)

// PlaybackProfile 描述一个发声器的播放参数。
// 按值传递；任何消费者拿到的都应是 Clamped() 之后的副本。
type PlaybackProfile struct {
	Volume          float64      `json:"volume"`
	Pitch           float64      `json:"pitch"`
	SpatialBlend    float64      `json:"spatialBlend"`
	Doppler         float64      `json:"doppler"`
	Spread          float64      `json:"spread"`
	MinDistance     float64      `json:"minDistance"`
	MaxDistance     float64      `json:"maxDistance"`
	FadeIn          float64      `json:"fadeIn"`
	FadeOut         float64      `json:"fadeOut"`
	Loop            bool         `json:"loop"`
	RandomStartTime bool         `json:"randomStartTime"`
	RolloffCurve    RolloffCurve `json:"rolloffCurve"`
}

// FallbackProfile 在还没有捕获到游戏内默认参数时使用的占位模板
func FallbackProfile() PlaybackProfile {
	return PlaybackProfile{
		Volume:       1,
		Pitch:        1,
		SpatialBlend: 1,
		Doppler:      1,
		Spread:       0,
		MinDistance:  1,
		MaxDistance:  500,
		RolloffCurve: RolloffLogarithmic,
	}
}

// Clamped 返回满足全部数值约束的副本
func (p PlaybackProfile) Clamped() PlaybackProfile {
	fb := FallbackProfile()

	p.Volume = clampFinite(p.Volume, 0, 1, fb.Volume)
	p.Pitch = clampFinite(p.Pitch, MinPitch, MaxPitch, fb.Pitch)
	p.SpatialBlend = clampFinite(p.SpatialBlend, 0, 1, fb.SpatialBlend)
	p.Doppler = clampFinite(p.Doppler, 0, 1, fb.Doppler)
	p.Spread = clampFinite(p.Spread, 0, MaxSpread, fb.Spread)
	p.MinDistance = clampFinite(p.MinDistance, 0, math.MaxFloat64, fb.MinDistance)
	p.MaxDistance = clampFinite(p.MaxDistance, 0, math.MaxFloat64, fb.MaxDistance)
	if p.MaxDistance < p.MinDistance+DistanceMargin {
		p.MaxDistance = p.MinDistance + DistanceMargin
	}
	p.FadeIn = clampFinite(p.FadeIn, 0, math.MaxFloat64, 0)
	p.FadeOut = clampFinite(p.FadeOut, 0, math.MaxFloat64, 0)
	if _, ok := rolloffNames[p.RolloffCurve]; !ok {
		p.RolloffCurve = RolloffLogarithmic
	}
	return p
}

// IsValid 报告 p 是否已经满足约束
func (p PlaybackProfile) IsValid() bool {
	return p == p.Clamped()
}

// ApproxEqual 逐字段比较，浮点字段允许 ProfileEpsilon 的误差
func (p PlaybackProfile) ApproxEqual(o PlaybackProfile) bool {
	floats := [][2]float64{
		{p.Volume, o.Volume},
		{p.Pitch, o.Pitch},
		{p.SpatialBlend, o.SpatialBlend},
		{p.Doppler, o.Doppler},
		{p.Spread, o.Spread},
		{p.MinDistance, o.MinDistance},
		{p.MaxDistance, o.MaxDistance},
		{p.FadeIn, o.FadeIn},
		{p.FadeOut, o.FadeOut},
	}
	for _, f := range floats {
		if math.Abs(f[0]-f[1]) > ProfileEpsilon {
			return false
		}
	}
	return p.Loop == o.Loop &&
		p.RandomStartTime == o.RandomStartTime &&
		p.RolloffCurve == o.RolloffCurve
}

func clampFinite(v, lo, hi, fallback float64) float64 {
	if math.IsNaN(v) {
		return fallback
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
