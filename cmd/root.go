package cmd

import (
	"fmt"
	"os"

	"soundswap/config"
	"soundswap/core/audio"
	"soundswap/core/domain"
	"soundswap/logger"

	"github.com/spf13/cobra"
)

var (
	appCfg *config.Config

	settingsRootFlag string
	modulesDirFlag   string
	logLevelFlag     string
)

var rootCmd = &cobra.Command{
	Use:   "soundswap",
	Short: "用自定义音频替换警笛、车辆引擎、环境音和公交广播",
	Long: `soundswap 扫描每个声音域的本地文件夹和外部内容包，维护自定义音频目录，
并为每个目标解析出最终的播放决定（保留原声、静音或替换为自定义音频）。`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		appCfg = config.Load()
		if settingsRootFlag != "" {
			appCfg.OverrideSettingsRoot(settingsRootFlag)
		}
		if modulesDirFlag != "" {
			appCfg.ModulesDir = modulesDirFlag
		}
		if logLevelFlag != "" {
			appCfg.LogLevel = logLevelFlag
		}

		logger.InitLogger(logger.Config{
			Name:       "soundswap",
			Level:      logger.ParseLevel(appCfg.LogLevel),
			OutputPath: appCfg.LogFile,
			MaxSize:    appCfg.LogMaxSizeMB,
			MaxBackups: appCfg.LogMaxBackups,
			MaxAge:     30,
			Compress:   true,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsRootFlag, "settings", "", "设置根目录（覆盖 SOUNDSWAP_SETTINGS_ROOT）")
	rootCmd.PersistentFlags().StringVar(&modulesDirFlag, "modules", "", "内容包目录（覆盖 SOUNDSWAP_MODULES_DIR）")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "日志级别 debug/info/warn/error")
}

// newCache 按配置创建资源缓存
func newCache() *audio.AssetCache {
	return audio.NewAssetCache(audio.CacheOptions{
		Capacity:        appCfg.CacheCapacity,
		DecodeTimeout:   appCfg.DecodeTimeout,
		FailureCooldown: appCfg.FailureCooldown,
	})
}

// newEngine 按配置创建引擎；domains 为空时包含全部域
func newEngine(applier domain.Applier, domains ...domain.Traits) (*domain.Engine, error) {
	return domain.NewEngine(domain.Options{
		SettingsRoot: appCfg.SettingsRoot,
		ModulesDir:   appCfg.ModulesDir,
		Store:        config.NewSettingsStore(appCfg.SettingsRoot),
		Cache:        newCache(),
		Applier:      applier,
		LogCooldown:  appCfg.LogCooldown,
		Domains:      domains,
	})
}

// domainsFromArgs 把域名参数转换为 Traits，空参数表示全部
func domainsFromArgs(names []string) ([]domain.Traits, error) {
	var out []domain.Traits
	for _, name := range names {
		traits, ok := domain.ByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown domain %q (known: %v)", name, domain.Names())
		}
		out = append(out, traits)
	}
	return out, nil
}
