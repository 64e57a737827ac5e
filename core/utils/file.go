package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"soundswap/model"
)

// Fingerprint 用文件大小和修改时间识别文件是否变化，不读取内容
type Fingerprint struct {
	Size    int64
	ModTime time.Time
}

// Equal 比较两个指纹
func (f Fingerprint) Equal(o Fingerprint) bool {
	return f.Size == o.Size && f.ModTime.Equal(o.ModTime)
}

func (f Fingerprint) String() string {
	return fmt.Sprintf("%d@%s", f.Size, f.ModTime.UTC().Format(time.RFC3339Nano))
}

// FingerprintOf 读取文件指纹，文件不存在时返回 model.ErrFileNotFound
func FingerprintOf(path string) (Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Fingerprint{}, fmt.Errorf("%w: %s", model.ErrFileNotFound, path)
		}
		return Fingerprint{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Fingerprint{}, fmt.Errorf("%w: %s is a directory", model.ErrFileNotFound, path)
	}
	return Fingerprint{Size: info.Size(), ModTime: info.ModTime()}, nil
}

// IsRegularFile 报告 path 是否为存在的普通文件
func IsRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// ResolveWithin 把 rel 解析到 root 之下；绝对路径或通过 ".." 逃出 root 的路径返回 model.ErrPathTraversal
func ResolveWithin(root, rel string) (string, error) {
	rel = strings.ReplaceAll(strings.TrimSpace(rel), `\`, "/")
	if rel == "" {
		return "", fmt.Errorf("empty relative path")
	}
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") || filepath.VolumeName(rel) != "" {
		return "", fmt.Errorf("%w: %s is absolute", model.ErrPathTraversal, rel)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root %s: %w", root, err)
	}
	full := filepath.Join(absRoot, filepath.FromSlash(rel))

	inside, err := filepath.Rel(absRoot, full)
	if err != nil {
		return "", fmt.Errorf("%w: %s", model.ErrPathTraversal, rel)
	}
	if inside == ".." || strings.HasPrefix(inside, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", model.ErrPathTraversal, rel)
	}
	return full, nil
}
