package domain

import (
	"sort"

	"soundswap/core/resolver"
	"soundswap/logger"
	"soundswap/model"
)

// Target 一个可被替换声音的逻辑目标（车辆类型、公交模式等）
type Target struct {
	Name string
	// Defaults 目标的游戏内默认参数，可能为 nil
	Defaults *model.PlaybackProfile
}

// Discoverer 目标发现，由宿主实现
type Discoverer interface {
	Discover(traits Traits, cfg *model.DomainConfig) []Target
}

// Applier 把解析结果应用到宿主的发声对象上
type Applier interface {
	Apply(traits Traits, target Target, out resolver.Outcome) error
}

// ConfiguredTargets 不依赖运行中的模拟：目标来自域的 TargetTokens 和配置里出现过的目标名，
// 默认参数来自 Defaults（按域名索引）
type ConfiguredTargets struct {
	Defaults map[string]model.PlaybackProfile
}

// Discover 返回按名字排序的目标，TargetTokens 在前
func (c ConfiguredTargets) Discover(traits Traits, cfg *model.DomainConfig) []Target {
	var defaults *model.PlaybackProfile
	if p, ok := c.Defaults[traits.Name]; ok {
		defaults = &p
	}

	seen := make(map[string]bool)
	targets := make([]Target, 0, len(traits.TargetTokens)+len(cfg.TargetSelections))
	for _, name := range traits.TargetTokens {
		if seen[name] {
			continue
		}
		seen[name] = true
		targets = append(targets, Target{Name: name, Defaults: defaults})
	}

	extra := make([]string, 0, len(cfg.TargetSelections))
	for name := range cfg.TargetSelections {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		targets = append(targets, Target{Name: name, Defaults: defaults})
	}
	return targets
}

// LogApplier 只记录结果，watch 命令在没有宿主时使用
type LogApplier struct{}

// Apply 记录一条日志
func (LogApplier) Apply(traits Traits, target Target, out resolver.Outcome) error {
	fields := []logger.Field{
		logger.String("domain", traits.Name),
		logger.String("target", target.Name),
		logger.String("outcome", out.Kind.String()),
	}
	if out.Key != "" {
		fields = append(fields, logger.String("key", out.Key))
	}
	if out.Pending {
		fields = append(fields, logger.Bool("pending", true))
	}
	if out.Message != "" {
		fields = append(fields, logger.String("message", out.Message))
	}
	logger.Debug("应用解析结果", fields...)
	return nil
}

// OutcomeRecorder 记录每个目标最近一次的结果，供状态接口和测试使用
type OutcomeRecorder struct {
	Next     Applier
	outcomes map[string]map[string]resolver.Outcome
}

// NewOutcomeRecorder next 可以为 nil
func NewOutcomeRecorder(next Applier) *OutcomeRecorder {
	return &OutcomeRecorder{Next: next, outcomes: make(map[string]map[string]resolver.Outcome)}
}

// Apply 记录后交给下一个 Applier
func (r *OutcomeRecorder) Apply(traits Traits, target Target, out resolver.Outcome) error {
	byTarget, ok := r.outcomes[traits.Name]
	if !ok {
		byTarget = make(map[string]resolver.Outcome)
		r.outcomes[traits.Name] = byTarget
	}
	byTarget[target.Name] = out
	if r.Next == nil {
		return nil
	}
	return r.Next.Apply(traits, target, out)
}

// Outcome 返回某个目标最近一次的结果
func (r *OutcomeRecorder) Outcome(domain, target string) (resolver.Outcome, bool) {
	out, ok := r.outcomes[domain][target]
	return out, ok
}
