package resolver

import (
	"soundswap/core/audio"
	"soundswap/model"
)

// Kind 解析结果类型
type Kind int

const (
	KeepOriginal Kind = iota
	Mute
	Custom
)

func (k Kind) String() string {
	switch k {
	case Mute:
		return "mute"
	case Custom:
		return "custom"
	default:
		return "keep-original"
	}
}

// Outcome 一个选择的最终播放决定
type Outcome struct {
	Kind Kind

	// Custom 时有效
	Asset      *audio.Asset
	Profile    model.PlaybackProfile
	SourcePath string

	// Key 实际使用的 key（可能是备用选择）
	Key string
	// Pending 为 true 表示音频仍在后台解码，之后的 tick 需要重新解析
	Pending bool
	// Message 给状态界面看的说明，可能为空
	Message string
}

func keepOriginal(msg string) Outcome {
	return Outcome{Kind: KeepOriginal, Message: msg}
}
