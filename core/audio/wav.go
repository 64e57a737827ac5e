package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"soundswap/model"
)

const (
	wavFormatPCM        = 0x0001
	wavFormatIEEEFloat  = 0x0003
	wavFormatExtensible = 0xFFFE

	riffHeaderSize = 12
	chunkHeader    = 8
	minFmtSize     = 16
)

// DecodeWAVFile 读取并解码一个 WAV 文件
func DecodeWAVFile(path string) (*PCM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", model.ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return DecodeWAV(data)
}

// DecodeWAV 解析 RIFF/WAVE 容器，支持 8/16/24/32 位整数 PCM 和 32 位浮点
func DecodeWAV(data []byte) (*PCM, error) {
	if len(data) < riffHeaderSize {
		return nil, malformed("file too short (%d bytes)", len(data))
	}
	if string(data[0:4]) != "RIFF" {
		return nil, malformed("missing RIFF marker")
	}
	if string(data[8:12]) != "WAVE" {
		return nil, malformed("missing WAVE marker")
	}

	var (
		fmtChunk  []byte
		dataChunk []byte
		haveData  bool
	)
	for off := riffHeaderSize; off+chunkHeader <= len(data); {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + chunkHeader
		end := body + size
		if size < 0 || end > len(data) {
			if id != "data" {
				return nil, malformed("chunk %q overruns file", id)
			}
			// 流式写出的文件经常带着错误的 data 长度
			end = len(data)
		}

		switch id {
		case "fmt ":
			fmtChunk = data[body:end]
		case "data":
			dataChunk = data[body:end]
			haveData = true
		}
		if haveData && fmtChunk != nil {
			break
		}

		off = end
		if size%2 == 1 {
			off++
		}
	}

	if fmtChunk == nil {
		return nil, malformed("missing fmt chunk")
	}
	if !haveData {
		return nil, malformed("missing data chunk")
	}
	if len(fmtChunk) < minFmtSize {
		return nil, malformed("fmt chunk too short (%d bytes)", len(fmtChunk))
	}

	formatTag := binary.LittleEndian.Uint16(fmtChunk[0:2])
	channels := int(binary.LittleEndian.Uint16(fmtChunk[2:4]))
	sampleRate := int(binary.LittleEndian.Uint32(fmtChunk[4:8]))
	bits := int(binary.LittleEndian.Uint16(fmtChunk[14:16]))

	if formatTag == wavFormatExtensible {
		if len(fmtChunk) < 26 {
			return nil, malformed("extensible fmt chunk too short (%d bytes)", len(fmtChunk))
		}
		// SubFormat GUID 的前两个字节就是实际格式码
		formatTag = binary.LittleEndian.Uint16(fmtChunk[24:26])
	}
	if channels == 0 {
		return nil, malformed("channel count is zero")
	}
	if sampleRate == 0 {
		return nil, malformed("sample rate is zero")
	}

	var convert func([]byte) float32
	switch {
	case formatTag == wavFormatPCM && bits == 8:
		convert = func(b []byte) float32 { return (float32(b[0]) - 128) / 128 }
	case formatTag == wavFormatPCM && bits == 16:
		convert = func(b []byte) float32 {
			return float32(int16(binary.LittleEndian.Uint16(b))) / 32768
		}
	case formatTag == wavFormatPCM && bits == 24:
		convert = func(b []byte) float32 {
			v := int32(uint32(b[0])<<8|uint32(b[1])<<16|uint32(b[2])<<24) >> 8
			return float32(v) / 8388608
		}
	case formatTag == wavFormatPCM && bits == 32:
		convert = func(b []byte) float32 {
			return float32(float64(int32(binary.LittleEndian.Uint32(b))) / 2147483648)
		}
	case formatTag == wavFormatIEEEFloat && bits == 32:
		convert = func(b []byte) float32 {
			v := math.Float32frombits(binary.LittleEndian.Uint32(b))
			if v != v {
				return 0
			}
			return v
		}
	case formatTag != wavFormatPCM && formatTag != wavFormatIEEEFloat:
		return nil, malformed("unsupported format code 0x%04x", formatTag)
	default:
		return nil, malformed("unsupported bit depth %d for format code 0x%04x", bits, formatTag)
	}

	width := bits / 8
	frameSize := width * channels
	frames := len(dataChunk) / frameSize
	samples := make([]float32, frames*channels)
	for i := range samples {
		samples[i] = convert(dataChunk[i*width : (i+1)*width])
	}

	return &PCM{Channels: channels, SampleRate: sampleRate, Samples: samples}, nil
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", model.ErrMalformedContainer, fmt.Sprintf(format, args...))
}
