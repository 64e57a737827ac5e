package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"soundswap/core/audio"
	"soundswap/logger"
	"soundswap/model"

	"github.com/dhowden/tag"
)

// LocalFile 本地目录中找到的一个可用音频
type LocalFile struct {
	Key  string
	Path string
}

// ScanFolder 递归扫描 dir 中扩展名受支持的文件，按 key 排序返回。
// 目录不存在时返回空结果。
func ScanFolder(dir string) ([]LocalFile, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve folder %s: %w", dir, err)
	}
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var files []LocalFile
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !audio.IsSupported(path) {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		key, err := model.NormalizeKey(filepath.ToSlash(rel))
		if err != nil {
			logger.Warn("跳过无法生成 key 的文件",
				logger.String("path", path),
				logger.ErrorField(err))
			return nil
		}
		files = append(files, LocalFile{Key: key, Path: path})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan folder %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool {
		return model.FoldKey(files[i].Key) < model.FoldKey(files[j].Key)
	})
	return files, nil
}

// DisplayNameFor 优先使用文件的标题标签，否则使用去掉扩展名的文件名
func DisplayNameFor(path string) string {
	fallback := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	f, err := os.Open(path)
	if err != nil {
		return fallback
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return fallback
	}
	if title := strings.TrimSpace(m.Title()); title != "" {
		return title
	}
	return fallback
}
