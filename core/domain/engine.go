package domain

import (
	"fmt"
	"time"

	"soundswap/core/audio"
	"soundswap/core/catalog"
	"soundswap/core/resolver"
	"soundswap/logger"
	"soundswap/model"
)

// SettingsStore 域配置的持久化，*config.SettingsStore 实现了该接口
type SettingsStore interface {
	Load(domain string) (*model.DomainConfig, error)
	Save(domain string, cfg *model.DomainConfig) error
}

// StatusSink 接收域状态快照（Redis、HTTP 状态面板）
type StatusSink interface {
	PublishStatus(status model.DomainStatus)
}

// Options 引擎参数
type Options struct {
	SettingsRoot string
	ModulesDir   string
	Store        SettingsStore
	Cache        *audio.AssetCache
	Discoverer   Discoverer
	Applier      Applier
	LogCooldown  time.Duration
	// Domains 为空时使用 All()
	Domains []Traits
	Now     func() time.Time
}

// Engine 持有所有域的状态。所有方法只能在同一个协程中调用。
type Engine struct {
	opts     Options
	registry *catalog.Registry
	states   []*CatalogState
	byName   map[string]*CatalogState
	sinks    []StatusSink
}

// NewEngine 读取每个域的配置并创建引擎
func NewEngine(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("settings store is required")
	}
	if opts.Cache == nil {
		opts.Cache = audio.NewAssetCache(audio.DefaultCacheOptions)
	}
	if opts.Discoverer == nil {
		opts.Discoverer = ConfiguredTargets{}
	}
	if opts.Applier == nil {
		opts.Applier = LogApplier{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if len(opts.Domains) == 0 {
		opts.Domains = All()
	}

	e := &Engine{
		opts:   opts,
		byName: make(map[string]*CatalogState, len(opts.Domains)),
	}
	for _, traits := range opts.Domains {
		cfg, err := opts.Store.Load(traits.Name)
		if err != nil {
			return nil, fmt.Errorf("load %s settings: %w", traits.Name, err)
		}
		state := newCatalogState(traits, cfg, opts.SettingsRoot)
		state.resolver = resolver.New(opts.Cache, state, resolver.Options{
			Domain:      traits.Name,
			Noun:        traits.Noun,
			LogCooldown: opts.LogCooldown,
			Now:         opts.Now,
		})
		e.states = append(e.states, state)
		e.byName[traits.Name] = state
	}
	return e, nil
}

// AddSink 注册状态接收者
func (e *Engine) AddSink(sink StatusSink) {
	e.sinks = append(e.sinks, sink)
}

// Cache 共享的资源缓存
func (e *Engine) Cache() *audio.AssetCache {
	return e.opts.Cache
}

// Registry 最近一次同步读取的内容包
func (e *Engine) Registry() *catalog.Registry {
	return e.registry
}

// States 按固定顺序返回所有域
func (e *Engine) States() []*CatalogState {
	return e.states
}

// State 按名字查找域
func (e *Engine) State(name string) (*CatalogState, bool) {
	if traits, ok := ByName(name); ok {
		name = traits.Name
	}
	s, ok := e.byName[name]
	return s, ok
}

// Synchronize 重新读取内容包并同步指定的域，names 为空时同步全部。
// 单个域失败不影响其他域，返回的错误是第一个失败。
func (e *Engine) Synchronize(names ...string) ([]model.CatalogSyncResult, error) {
	targets, err := e.selectStates(names)
	if err != nil {
		return nil, err
	}

	mods, err := catalog.ReadModules(e.opts.ModulesDir)
	if err != nil {
		logger.Warn("读取内容包目录失败，沿用上次的内容包",
			logger.String("dir", e.opts.ModulesDir),
			logger.ErrorField(err))
	} else {
		e.registry = catalog.NewRegistry(mods)
	}

	var firstErr error
	results := make([]model.CatalogSyncResult, 0, len(targets))
	for _, s := range targets {
		res, err := e.syncState(s)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		results = append(results, res)
	}
	return results, firstErr
}

func (e *Engine) selectStates(names []string) ([]*CatalogState, error) {
	if len(names) == 0 {
		return e.states, nil
	}
	out := make([]*CatalogState, 0, len(names))
	for _, name := range names {
		s, ok := e.State(name)
		if !ok {
			return nil, fmt.Errorf("unknown domain %q", name)
		}
		out = append(out, s)
	}
	return out, nil
}

func (e *Engine) syncState(s *CatalogState) (model.CatalogSyncResult, error) {
	name := s.Traits.Name
	e.captureTemplate(s, e.opts.Discoverer.Discover(s.Traits, s.Config))

	s.paths = catalog.NewPathResolver(s.localDir, e.registry)
	res, err := catalog.Synchronize(s.Config, catalog.SyncRequest{
		Domain:      name,
		LocalDir:    s.localDir,
		Template:    s.Template,
		External:    e.registry.Entries(s.Traits.ManifestSegment),
		SeedProfile: e.registry.SeedProfile,
	})
	if err != nil {
		logger.Error("目录同步失败",
			logger.String("domain", name),
			logger.String("dir", s.localDir),
			logger.ErrorField(err))
		return res, fmt.Errorf("synchronize %s: %w", name, err)
	}

	s.LastSync = res
	s.SyncedAt = e.opts.Now()
	s.needsSync = false
	if res.Changed {
		if err := e.opts.Store.Save(name, s.Config); err != nil {
			logger.Error("保存域配置失败",
				logger.String("domain", name),
				logger.ErrorField(err))
		}
		s.dirty = true
		logger.Info("目录已同步",
			logger.String("domain", name),
			logger.Int("found", res.FoundFileCount),
			logger.Strings("added", res.AddedKeys),
			logger.Strings("removed", res.RemovedKeys))
	}
	if rewritten := s.refreshFingerprints(); len(rewritten) > 0 {
		s.dirty = true
		logger.Info("音频文件已更新",
			logger.String("domain", name),
			logger.Strings("keys", rewritten))
	}
	e.publish(s)
	return res, nil
}

// captureTemplate 从第一个带默认参数的目标捕获模板
func (e *Engine) captureTemplate(s *CatalogState, targets []Target) bool {
	if s.Template != nil {
		return false
	}
	for _, t := range targets {
		if t.Defaults == nil {
			continue
		}
		s.CaptureTemplate(*t.Defaults)
		logger.Info("已捕获默认参数模板",
			logger.String("domain", s.Traits.Name),
			logger.String("target", t.Name))
		return true
	}
	return false
}

// Tick 推进后台解码，并重新应用有变化的域
func (e *Engine) Tick() []model.ApplyReport {
	e.opts.Cache.PollPending()
	version := e.opts.Cache.CompletionVersion()

	var reports []model.ApplyReport
	for _, s := range e.states {
		if s.needsSync {
			if _, err := e.syncState(s); err != nil {
				s.needsSync = false
			}
		}
		waiting := s.LastApply.Pending > 0 && s.appliedVersion != version
		if !s.dirty && !waiting {
			continue
		}
		reports = append(reports, e.Reapply(s))
	}
	return reports
}

// ResolveKey 在一次独立的 pass 中解析单个 key，不应用到任何目标
func (e *Engine) ResolveKey(name, key string) (resolver.Outcome, error) {
	s, ok := e.State(name)
	if !ok {
		return resolver.Outcome{}, fmt.Errorf("unknown domain %q", name)
	}
	return s.resolver.Resolve(key, s.Config, resolver.NewMemo()), nil
}

// Status 返回域的状态快照
func (e *Engine) Status(name string, withCatalog bool) (model.DomainStatus, bool) {
	s, ok := e.State(name)
	if !ok {
		return model.DomainStatus{}, false
	}
	return s.Status(e.opts.Cache.CompletionVersion(), withCatalog), true
}

// Close 释放所有解码缓冲
func (e *Engine) Close() {
	e.opts.Cache.Close()
}

func (e *Engine) publish(s *CatalogState) {
	if len(e.sinks) == 0 {
		return
	}
	status := s.Status(e.opts.Cache.CompletionVersion(), true)
	for _, sink := range e.sinks {
		sink.PublishStatus(status)
	}
}
