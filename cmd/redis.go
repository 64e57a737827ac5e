package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"soundswap/cache"
	"soundswap/core/domain"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Redis连接测试",
	Long:  `测试Redis连接是否成功，进行基本读写操作，并打印已发布的域状态。`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("开始测试Redis连接...")
		fmt.Printf("Redis配置: %s:%s, DB: %d\n", appCfg.RedisHost, appCfg.RedisPort, appCfg.RedisDB)

		// 连接Redis
		if err := cache.ConnectRedis(appCfg); err != nil {
			log.Fatalf("无法连接到Redis: %v", err)
		}
		fmt.Println("Redis连接成功！")

		// 测试Redis基本操作
		fmt.Println("开始测试Redis基本操作...")
		if err := cache.TestRedis(); err != nil {
			log.Fatalf("Redis操作测试失败: %v", err)
		}
		fmt.Println("Redis基本操作测试成功！")

		statuses := cache.NewStatusCache(cache.RedisClient, appCfg.StatusTTL)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, name := range domain.Names() {
			st, ok, err := statuses.Get(ctx, name)
			switch {
			case err != nil:
				fmt.Printf("[%s] 读取状态失败: %v\n", name, err)
			case !ok:
				fmt.Printf("[%s] 尚未发布状态\n", name)
			default:
				fmt.Printf("[%s] 同步于 %s，条目 %d，最近应用: custom=%d muted=%d kept=%d pending=%d\n",
					name, st.SyncedAt.Format(time.RFC3339), st.LastSync.FoundFileCount,
					st.LastApply.Custom, st.LastApply.Muted, st.LastApply.Kept, st.LastApply.Pending)
			}
		}

		// 关闭连接
		if err := cache.CloseRedis(); err != nil {
			log.Printf("关闭Redis连接时发生错误: %v", err)
		}
		fmt.Println("Redis测试完成，连接已关闭。")
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
