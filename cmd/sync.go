package cmd

import (
	"fmt"
	"strings"

	"soundswap/core/domain"

	"github.com/spf13/cobra"
)

var syncDomains []string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "同步自定义音频目录",
	Long:  `扫描本地文件夹和内容包，更新每个域的目录与设置文件，并打印新增和移除的条目。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		domains, err := domainsFromArgs(syncDomains)
		if err != nil {
			return err
		}
		engine, err := newEngine(domain.LogApplier{}, domains...)
		if err != nil {
			return err
		}
		defer engine.Close()

		results, syncErr := engine.Synchronize()
		for _, res := range results {
			state, _ := engine.State(res.Domain)
			fmt.Printf("[%s] %s\n", res.Domain, state.LocalDir())
			fmt.Printf("  找到文件: %d\n", res.FoundFileCount)
			if len(res.AddedKeys) > 0 {
				fmt.Printf("  新增: %s\n", strings.Join(res.AddedKeys, ", "))
			}
			if len(res.RemovedKeys) > 0 {
				fmt.Printf("  移除: %s\n", strings.Join(res.RemovedKeys, ", "))
			}
			if pending := state.Config.PendingTemplate(); len(pending) > 0 {
				fmt.Printf("  等待默认参数模板: %s\n", strings.Join(pending, ", "))
			}
			if !res.Changed {
				fmt.Println("  无变化")
			}
		}
		if mods := engine.Registry().Modules(); len(mods) > 0 {
			fmt.Printf("已加载内容包: %d\n", len(mods))
		}
		return syncErr
	},
}

func init() {
	syncCmd.Flags().StringSliceVarP(&syncDomains, "domain", "d", nil, "只同步指定的域，可重复")
	rootCmd.AddCommand(syncCmd)
}
