package resolver

import (
	"time"

	"soundswap/logger"
	"soundswap/model"
)

const throttlePruneThreshold = 256

type throttleKey struct {
	key     string
	message string
}

// failureLog 同一 (key, 错误信息) 在冷却时间内只记录一次
type failureLog struct {
	cooldown time.Duration
	now      func() time.Time
	last     map[throttleKey]time.Time
}

func newFailureLog(cooldown time.Duration, now func() time.Time) *failureLog {
	return &failureLog{
		cooldown: cooldown,
		now:      now,
		last:     make(map[throttleKey]time.Time),
	}
}

// allow 报告这一次是否应该写日志，并记录时间
func (f *failureLog) allow(key, message string) bool {
	now := f.now()
	k := throttleKey{key: model.FoldKey(key), message: message}
	if last, ok := f.last[k]; ok && now.Sub(last) < f.cooldown {
		return false
	}
	f.last[k] = now
	if len(f.last) > throttlePruneThreshold {
		f.prune(now)
	}
	return true
}

func (f *failureLog) prune(now time.Time) {
	for k, t := range f.last {
		if now.Sub(t) >= f.cooldown {
			delete(f.last, k)
		}
	}
}

func (f *failureLog) warn(domain, key, message string, err error) {
	if !f.allow(key, message) {
		return
	}
	logger.Warn("自定义音频解析失败",
		logger.String("domain", domain),
		logger.String("key", key),
		logger.String("message", message),
		logger.ErrorField(err))
}
