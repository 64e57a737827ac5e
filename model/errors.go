package model

import "errors"

// 资源解析流水线中的错误分类，统一用 errors.Is 判断
var (
	ErrFileNotFound       = errors.New("file not found")
	ErrUnsupportedFormat  = errors.New("unsupported format")
	ErrMalformedContainer = errors.New("malformed container")
	ErrDecodeTimeout      = errors.New("decode timed out")
	ErrDecodeFailure      = errors.New("decode failed")
	ErrPathTraversal      = errors.New("path escapes its root directory")
	ErrProfileMissing     = errors.New("no catalog entry for selection")
	ErrSchemaUnsupported  = errors.New("unsupported manifest schema version")
)
