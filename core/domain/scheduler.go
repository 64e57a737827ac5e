package domain

import (
	"context"
	"time"

	"soundswap/logger"
)

// RunOptions 调度循环参数
type RunOptions struct {
	TickInterval   time.Duration
	RescanInterval time.Duration
	// Changes 文件监听的变更通知，可以为 nil
	Changes <-chan struct{}
	// Rescan 外部请求的重新扫描，值为域名，空串表示全部
	Rescan <-chan string
}

// Run 调度循环：每个 tick 推进解码并重新应用，定时或收到通知时重新同步。
// 引擎的全部状态只在这个协程中访问。ctx 结束时释放缓存并返回。
func (e *Engine) Run(ctx context.Context, opts RunOptions) error {
	if opts.TickInterval <= 0 {
		opts.TickInterval = 100 * time.Millisecond
	}

	if _, err := e.Synchronize(); err != nil {
		logger.Warn("首次同步存在失败的域", logger.ErrorField(err))
	}
	e.Tick()

	ticker := time.NewTicker(opts.TickInterval)
	defer ticker.Stop()

	var rescanC <-chan time.Time
	if opts.RescanInterval > 0 {
		rescanTicker := time.NewTicker(opts.RescanInterval)
		defer rescanTicker.Stop()
		rescanC = rescanTicker.C
	}

	changes := opts.Changes
	requests := opts.Rescan
	for {
		select {
		case <-ctx.Done():
			e.Close()
			logger.Info("调度循环已停止")
			return nil

		case <-ticker.C:
			e.Tick()

		case <-rescanC:
			e.rescan("")

		case _, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			logger.Debug("检测到文件变更，重新同步")
			e.rescan("")

		case name, ok := <-requests:
			if !ok {
				requests = nil
				continue
			}
			logger.Info("收到重新扫描请求", logger.String("domain", name))
			e.rescan(name)
		}
	}
}

func (e *Engine) rescan(name string) {
	var err error
	if name == "" {
		_, err = e.Synchronize()
	} else {
		_, err = e.Synchronize(name)
	}
	if err != nil {
		logger.Warn("重新同步失败", logger.String("domain", name), logger.ErrorField(err))
	}
}
