package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"soundswap/cache"
	"soundswap/core/domain"
	"soundswap/logger"
	"soundswap/server"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "持续监听文件夹并重新应用自定义音频",
	Long: `启动调度循环：监听每个域的文件夹和内容包目录，定时重新同步目录，
后台解码完成后重新应用到所有目标。可选地把状态写入 Redis，并在 HTTP_ADDR 上提供状态接口。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		engine, err := newEngine(domain.LogApplier{})
		if err != nil {
			return err
		}

		if appCfg.RedisEnabled {
			if err := cache.ConnectRedis(appCfg); err != nil {
				logger.Warn("Redis 不可用，不发布状态", logger.ErrorField(err))
			} else {
				defer cache.CloseRedis()
				engine.AddSink(cache.NewStatusCache(cache.RedisClient, appCfg.StatusTTL))
			}
		}

		var rescan chan string
		serverErr := make(chan error, 1)
		if appCfg.HTTPAddr != "" {
			hub := server.NewHub()
			go hub.Run()
			defer hub.Stop()

			board := server.NewStatusBoard(domain.Names(), hub)
			engine.AddSink(board)

			rescan = make(chan string, 1)
			router := server.NewRouter(server.NewStatusHandler(board, hub, rescan))
			go func() {
				if err := server.Serve(ctx, appCfg.HTTPAddr, router); err != nil {
					logger.Error("状态服务异常退出", logger.ErrorField(err))
					serverErr <- err
					stop()
				}
			}()
		}

		roots := []string{appCfg.ModulesDir}
		for _, s := range engine.States() {
			roots = append(roots, s.LocalDir())
		}
		watcher, err := domain.NewWatcher(roots, appCfg.WatchDebounce)
		if err != nil {
			engine.Close()
			return err
		}
		defer watcher.Close()
		go watcher.Run(ctx)

		logger.Info("开始监听",
			logger.Strings("dirs", roots),
			logger.Duration("tick", appCfg.TickInterval),
			logger.Duration("rescan", appCfg.RescanInterval))

		if err := engine.Run(ctx, domain.RunOptions{
			TickInterval:   appCfg.TickInterval,
			RescanInterval: appCfg.RescanInterval,
			Changes:        watcher.Changes(),
			Rescan:         rescan,
		}); err != nil {
			return err
		}

		select {
		case err := <-serverErr:
			return err
		default:
		}
		logger.Info("已停止")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
