package cmd

import (
	"fmt"
	"os"
	"time"

	"soundswap/core/domain"
	"soundswap/core/resolver"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <domain> <key>",
	Short: "解析一个选择并打印播放决定",
	Long: `先同步指定的域，然后按该域的回退策略解析 key。
OGG 文件在后台解码，命令会等待解码完成或超时。`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		traits, ok := domain.ByName(args[0])
		if !ok {
			return fmt.Errorf("unknown domain %q (known: %v)", args[0], domain.Names())
		}
		engine, err := newEngine(domain.LogApplier{}, traits)
		if err != nil {
			return err
		}
		defer engine.Close()

		if _, err := engine.Synchronize(); err != nil {
			return err
		}

		deadline := time.Now().Add(appCfg.DecodeTimeout + time.Second)
		var (
			out resolver.Outcome
			bar *progressbar.ProgressBar
		)
		for {
			out, err = engine.ResolveKey(traits.Name, args[1])
			if err != nil {
				return err
			}
			if !out.Pending || time.Now().After(deadline) {
				break
			}
			if bar == nil {
				bar = progressbar.NewOptions(-1,
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionSetDescription("解码中"),
					progressbar.OptionSpinnerType(14),
					progressbar.OptionClearOnFinish())
			}
			bar.Add(1)
			time.Sleep(appCfg.TickInterval)
			engine.Cache().PollPending()
		}
		if bar != nil {
			bar.Finish()
		}

		printOutcome(out)
		return nil
	},
}

func printOutcome(out resolver.Outcome) {
	fmt.Printf("结果: %s\n", out.Kind)
	if out.Key != "" {
		fmt.Printf("Key: %s\n", out.Key)
	}
	if out.Pending {
		fmt.Println("解码仍未完成")
	}
	if out.Kind == resolver.Custom && out.Asset != nil {
		p := out.Profile
		fmt.Printf("文件: %s\n", out.SourcePath)
		fmt.Printf("格式: %d Hz, %d 声道, 时长 %s\n", out.Asset.SampleRate, out.Asset.Channels, out.Asset.Duration().Round(time.Millisecond))
		fmt.Printf("参数: volume=%.2f pitch=%.2f spatialBlend=%.2f doppler=%.2f spread=%.0f distance=%.1f..%.1f rolloff=%s loop=%t\n",
			p.Volume, p.Pitch, p.SpatialBlend, p.Doppler, p.Spread, p.MinDistance, p.MaxDistance, p.RolloffCurve, p.Loop)
	}
	if out.Message != "" {
		fmt.Println(out.Message)
	}
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
