package audio

import (
	"path/filepath"
	"strings"
)

// Format 支持的两种容器：WAV 同步解码，OGG Vorbis 交给后台解码
type Format int

const (
	FormatUnsupported Format = iota
	FormatWAV
	FormatOGG
)

var extensions = map[string]Format{
	".wav": FormatWAV,
	".ogg": FormatOGG,
}

func (f Format) String() string {
	switch f {
	case FormatWAV:
		return "wav"
	case FormatOGG:
		return "ogg"
	default:
		return "unsupported"
	}
}

// IsAsync 报告该格式是否走异步解码
func (f Format) IsAsync() bool {
	return f == FormatOGG
}

// FormatOf 按扩展名（不区分大小写）识别格式
func FormatOf(path string) Format {
	if f, ok := extensions[strings.ToLower(filepath.Ext(path))]; ok {
		return f
	}
	return FormatUnsupported
}

// IsSupported 报告文件扩展名是否受支持
func IsSupported(path string) bool {
	return FormatOf(path) != FormatUnsupported
}
