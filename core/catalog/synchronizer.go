package catalog

import (
	"sort"

	"soundswap/logger"
	"soundswap/model"
)

// SyncRequest 一次目录同步的输入
type SyncRequest struct {
	Domain   string
	LocalDir string

	// Template 为 nil 表示还没有捕获到游戏内的默认参数
	Template *model.PlaybackProfile

	// External 内容包提供的条目（已按登记顺序排列）
	External []ModuleEntry

	// SeedProfile 内容包显式指定的初始参数，可以为 nil
	SeedProfile func(key string) (model.PlaybackProfile, bool)

	// DisplayName 本地文件的显示名，默认 DisplayNameFor
	DisplayName func(path string) string
}

type availableItem struct {
	key         string
	path        string
	displayName string
	moduleID    string
	external    bool
}

// Synchronize 用磁盘和内容包中实际可用的文件对齐 cfg.Profiles，并原地修改 cfg。
// 扫描失败时返回错误且不修改 cfg。
func Synchronize(cfg *model.DomainConfig, req SyncRequest) (model.CatalogSyncResult, error) {
	result := model.CatalogSyncResult{Domain: req.Domain, AddedKeys: []string{}, RemovedKeys: []string{}}
	cfg.Normalize()

	local, err := ScanFolder(req.LocalDir)
	if err != nil {
		return result, err
	}
	displayName := req.DisplayName
	if displayName == nil {
		displayName = DisplayNameFor
	}

	// 本地文件先登记，内容包条目后登记；重复的 key 保留先登记的
	order := make([]string, 0, len(local)+len(req.External))
	available := make(map[string]availableItem, len(local)+len(req.External))
	for _, f := range local {
		fold := model.FoldKey(f.Key)
		if _, dup := available[fold]; dup {
			logger.Warn("本地文件 key 重复（仅大小写不同），跳过",
				logger.String("domain", req.Domain),
				logger.String("key", f.Key),
				logger.String("path", f.Path))
			continue
		}
		available[fold] = availableItem{key: f.Key, path: f.Path}
		order = append(order, fold)
	}
	for _, e := range req.External {
		fold := model.FoldKey(e.Key)
		if first, dup := available[fold]; dup {
			logger.Warn("内容包条目与已登记的 key 冲突，跳过",
				logger.String("domain", req.Domain),
				logger.String("key", e.Key),
				logger.String("module", e.ModuleID),
				logger.String("registeredPath", first.path))
			continue
		}
		available[fold] = availableItem{
			key:         e.Key,
			path:        e.Path,
			displayName: e.DisplayName,
			moduleID:    e.ModuleID,
			external:    true,
		}
		order = append(order, fold)
	}
	result.FoundFileCount = len(order)

	fallback := model.FallbackProfile()
	templateKnown := req.Template != nil
	template := fallback
	if templateKnown {
		template = req.Template.Clamped()
	}

	// 模板已可用：把仍停留在占位模板上的待处理条目更新为真实模板，用户改过的保持不动
	if templateKnown && len(cfg.PendingTemplateKeys) > 0 {
		for _, fold := range cfg.PendingTemplate() {
			entry, ok := cfg.Profiles.Get(fold)
			if ok && entry.Profile.ApproxEqual(fallback) {
				entry.Profile = template
				cfg.Profiles.Put(entry)
				logger.Info("条目已应用延迟模板",
					logger.String("domain", req.Domain),
					logger.String("key", entry.Key))
			} else if ok {
				logger.Debug("条目已被用户修改，保留当前参数",
					logger.String("domain", req.Domain),
					logger.String("key", entry.Key))
			}
			delete(cfg.PendingTemplateKeys, fold)
		}
		result.Changed = true
	}

	// 新增
	for _, fold := range order {
		item := available[fold]
		if existing, ok := cfg.Profiles.Get(item.key); ok {
			if existing.SourcePath != item.path || existing.OriginModuleID != item.moduleID {
				existing.SourcePath = item.path
				existing.OriginModuleID = item.moduleID
				cfg.Profiles.Put(existing)
				result.Changed = true
			}
			continue
		}

		profile := template
		pendingTemplate := false
		if seed, ok := seedFor(req, item); ok {
			profile = seed.Clamped()
		} else if !templateKnown && !item.external {
			pendingTemplate = true
		}

		name := item.displayName
		if name == "" {
			name = displayName(item.path)
		}
		cfg.Profiles.Put(model.ProfileEntry{
			Key:            item.key,
			DisplayName:    name,
			SourcePath:     item.path,
			OriginModuleID: item.moduleID,
			Profile:        profile,
		})
		if pendingTemplate {
			cfg.MarkPendingTemplate(item.key)
		}
		result.AddedKeys = append(result.AddedKeys, item.key)

		source := "local"
		if item.external {
			source = "module:" + item.moduleID
		}
		logger.Info("发现新的自定义音频",
			logger.String("domain", req.Domain),
			logger.String("key", item.key),
			logger.String("source", source),
			logger.Bool("pendingTemplate", pendingTemplate))
	}

	// 删除：基于同一份可用集合
	for _, key := range cfg.Profiles.Keys() {
		if _, ok := available[model.FoldKey(key)]; ok {
			continue
		}
		entry, _ := cfg.Profiles.Get(key)
		cfg.Profiles.Delete(key)
		delete(cfg.PendingTemplateKeys, model.FoldKey(key))
		result.RemovedKeys = append(result.RemovedKeys, key)

		if entry.IsExternal() {
			logger.Info("内容包音频已不可用，移除条目",
				logger.String("domain", req.Domain),
				logger.String("key", key),
				logger.String("module", entry.OriginModuleID))
		} else {
			logger.Info("自定义音频文件已删除，移除条目",
				logger.String("domain", req.Domain),
				logger.String("key", key))
		}
	}

	if revalidateSelections(cfg, req.Domain) {
		result.Changed = true
	}

	sortKeys(result.AddedKeys)
	sortKeys(result.RemovedKeys)
	if len(result.AddedKeys) > 0 || len(result.RemovedKeys) > 0 {
		result.Changed = true
	}
	return result, nil
}

func seedFor(req SyncRequest, item availableItem) (model.PlaybackProfile, bool) {
	if !item.external || req.SeedProfile == nil {
		return model.PlaybackProfile{}, false
	}
	return req.SeedProfile(item.key)
}

// revalidateSelections 把指向已不存在条目的选择重置为默认
func revalidateSelections(cfg *model.DomainConfig, domain string) bool {
	changed := false
	valid := func(sel string) bool {
		return model.IsDefault(sel) || cfg.Profiles.Has(sel)
	}
	reset := func(field, sel string) {
		logger.Info("选择的音频已不存在，重置为默认",
			logger.String("domain", domain),
			logger.String("field", field),
			logger.String("selection", sel))
		changed = true
	}

	if !valid(cfg.DefaultSelection) {
		reset("defaultSelection", cfg.DefaultSelection)
		cfg.DefaultSelection = model.DefaultSelection
	}
	if !valid(cfg.AlternateSelection) {
		reset("alternateSelection", cfg.AlternateSelection)
		cfg.AlternateSelection = model.DefaultSelection
	}

	targets := make([]string, 0, len(cfg.TargetSelections))
	for target := range cfg.TargetSelections {
		targets = append(targets, target)
	}
	sort.Strings(targets)
	for _, target := range targets {
		if sel := cfg.TargetSelections[target]; !valid(sel) {
			reset("targetSelections."+target, sel)
			cfg.TargetSelections[target] = model.DefaultSelection
		}
	}

	if !valid(cfg.EditingSelection) {
		reset("editingSelection", cfg.EditingSelection)
		cfg.EditingSelection = model.DefaultSelection
		if keys := cfg.Profiles.Keys(); len(keys) > 0 {
			cfg.EditingSelection = keys[0]
		}
	}
	return changed
}

func sortKeys(keys []string) {
	sort.Slice(keys, func(i, j int) bool { return model.FoldKey(keys[i]) < model.FoldKey(keys[j]) })
}
