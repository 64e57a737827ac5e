package domain

import (
	"soundswap/core/resolver"
	"soundswap/logger"
	"soundswap/model"

	"github.com/google/uuid"
)

// Reapply 对域的每个目标解析一次选择并交给 Applier。
// 同一个 key 在一次 pass 内只解析一次。
func (e *Engine) Reapply(s *CatalogState) model.ApplyReport {
	report := model.ApplyReport{
		PassID: uuid.New().String(),
		Domain: s.Traits.Name,
	}

	targets := e.opts.Discoverer.Discover(s.Traits, s.Config)
	if e.captureTemplate(s, targets) && len(s.Config.PendingTemplateKeys) > 0 {
		s.needsSync = true
	}

	memo := resolver.NewMemo()
	for _, t := range targets {
		out := s.resolver.Resolve(s.Config.SelectionFor(t.Name), s.Config, memo)
		switch out.Kind {
		case resolver.Custom:
			report.Custom++
		case resolver.Mute:
			report.Muted++
		default:
			report.Kept++
		}
		if out.Pending {
			report.Pending++
		}

		if err := e.opts.Applier.Apply(s.Traits, t, out); err != nil {
			report.ApplyErrs++
			logger.Warn("应用解析结果失败",
				logger.String("passId", report.PassID),
				logger.String("domain", s.Traits.Name),
				logger.String("target", t.Name),
				logger.ErrorField(err))
		}
	}
	report.Targets = len(targets)
	report.Resolved = len(memo)

	s.LastApply = report
	s.AppliedAt = e.opts.Now()
	s.appliedVersion = e.opts.Cache.CompletionVersion()
	s.dirty = false

	logger.Info("重新应用完成",
		logger.String("passId", report.PassID),
		logger.String("domain", report.Domain),
		logger.Int("targets", report.Targets),
		logger.Int("custom", report.Custom),
		logger.Int("muted", report.Muted),
		logger.Int("kept", report.Kept),
		logger.Int("pending", report.Pending))
	e.publish(s)
	return report
}
