package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"soundswap/core/catalog"
	"soundswap/core/utils"

	"github.com/spf13/cobra"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest [dir|file]",
	Short: "检查内容包清单",
	Long: `读取内容包目录（默认 SOUNDSWAP_MODULES_DIR）中每个子目录的 soundswap.json，
或者直接读取一个清单文件，打印每个包提供的条目。任何清单无法解析时命令返回错误。`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := appCfg.ModulesDir
		if len(args) == 1 {
			target = args[0]
		}

		var manifests []string
		if utils.IsRegularFile(target) {
			manifests = append(manifests, target)
		} else {
			items, err := os.ReadDir(target)
			if err != nil {
				return fmt.Errorf("read modules dir %s: %w", target, err)
			}
			for _, item := range items {
				path := filepath.Join(target, item.Name(), catalog.ManifestFileName)
				if item.IsDir() && utils.IsRegularFile(path) {
					manifests = append(manifests, path)
				}
			}
			sort.Strings(manifests)
		}

		if len(manifests) == 0 {
			fmt.Printf("%s 中没有找到内容包\n", target)
			return nil
		}

		failed := 0
		for _, path := range manifests {
			mod, err := catalog.ReadManifest(path)
			if err != nil {
				failed++
				fmt.Printf("✗ %s\n  %v\n", path, err)
				continue
			}
			fmt.Printf("✓ %s (%s)\n", mod.DisplayName, mod.ID)
			segments := make([]string, 0, len(mod.Entries))
			for segment := range mod.Entries {
				segments = append(segments, segment)
			}
			sort.Strings(segments)
			for _, segment := range segments {
				fmt.Printf("  %s:\n", segment)
				for _, e := range mod.Entries[segment] {
					fmt.Printf("    %s -> %s\n", e.Key, e.Path)
				}
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d manifests failed to parse", failed, len(manifests))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(manifestCmd)
}
