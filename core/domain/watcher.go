package domain

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"soundswap/core/audio"
	"soundswap/core/catalog"
	"soundswap/logger"

	"github.com/fsnotify/fsnotify"
)

// Watcher 递归监听域文件夹和内容包目录，文件稳定一段时间后发出一次变更通知
type Watcher struct {
	fs       *fsnotify.Watcher
	roots    []string
	debounce time.Duration
	changes  chan struct{}
}

// NewWatcher 监听 roots 下的所有目录；不存在的根目录会被创建
func NewWatcher(roots []string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	w := &Watcher{
		fs:       fw,
		roots:    roots,
		debounce: debounce,
		changes:  make(chan struct{}, 1),
	}
	for _, root := range roots {
		if err := os.MkdirAll(root, 0755); err != nil {
			fw.Close()
			return nil, fmt.Errorf("create watched dir %s: %w", root, err)
		}
		if err := w.addTree(root); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Changes 去抖后的变更通知
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Close 停止监听
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// relevant 只关心音频文件、清单文件和目录本身
func relevant(path string) bool {
	if audio.IsSupported(path) {
		return true
	}
	if strings.EqualFold(filepath.Base(path), catalog.ManifestFileName) {
		return true
	}
	return filepath.Ext(path) == ""
}

// Run 处理事件直到 ctx 结束
func (w *Watcher) Run(ctx context.Context) {
	var lastEvent time.Time
	checkTicker := time.NewTicker(max(w.debounce/4, time.Millisecond))
	defer checkTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						logger.Warn("监听新目录失败",
							logger.String("dir", event.Name),
							logger.ErrorField(err))
					}
				}
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !relevant(event.Name) {
				continue
			}
			lastEvent = time.Now()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logger.Warn("文件监听错误", logger.ErrorField(err))

		case <-checkTicker.C:
			// 最后一次事件之后保持安静 debounce 时长才通知，避免文件写到一半就同步
			if lastEvent.IsZero() || time.Since(lastEvent) < w.debounce {
				continue
			}
			lastEvent = time.Time{}
			select {
			case w.changes <- struct{}{}:
			default:
			}
		}
	}
}
