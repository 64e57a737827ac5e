package catalog

import (
	"fmt"
	"path/filepath"

	"soundswap/core/utils"
	"soundswap/logger"
	"soundswap/model"
)

// Registry 所有内容包条目的索引
type Registry struct {
	modules   []*Module
	bySegment map[string][]ModuleEntry
	byKey     map[string]ModuleEntry
}

// NewRegistry 按给定顺序登记内容包；key 冲突时保留先登记的
func NewRegistry(modules []*Module) *Registry {
	r := &Registry{
		modules:   modules,
		bySegment: make(map[string][]ModuleEntry),
		byKey:     make(map[string]ModuleEntry),
	}
	for _, mod := range modules {
		for segment, entries := range mod.Entries {
			for _, e := range entries {
				fold := model.FoldKey(e.Key)
				if first, dup := r.byKey[fold]; dup {
					logger.Warn("内容包 key 冲突，保留先登记的条目",
						logger.String("key", e.Key),
						logger.String("module", e.ModuleID),
						logger.String("firstModule", first.ModuleID))
					continue
				}
				r.byKey[fold] = e
				r.bySegment[segment] = append(r.bySegment[segment], e)
			}
		}
	}
	return r
}

// Modules 返回登记的内容包
func (r *Registry) Modules() []*Module {
	if r == nil {
		return nil
	}
	return r.modules
}

// Entries 返回某个域段的全部条目
func (r *Registry) Entries(segment string) []ModuleEntry {
	if r == nil {
		return nil
	}
	return r.bySegment[segment]
}

// Lookup 按 key 查找条目
func (r *Registry) Lookup(key string) (ModuleEntry, bool) {
	if r == nil {
		return ModuleEntry{}, false
	}
	e, ok := r.byKey[model.FoldKey(key)]
	return e, ok
}

// SeedProfile 返回内容包显式指定的初始参数
func (r *Registry) SeedProfile(key string) (model.PlaybackProfile, bool) {
	e, ok := r.Lookup(key)
	if !ok || e.Profile == nil {
		return model.PlaybackProfile{}, false
	}
	return *e.Profile, true
}

// PathResolver 把 key 解析为磁盘路径：先查本地目录，再查内容包
type PathResolver struct {
	localDir string
	modules  *Registry
}

// NewPathResolver 创建解析器，modules 可以为 nil
func NewPathResolver(localDir string, modules *Registry) *PathResolver {
	return &PathResolver{localDir: localDir, modules: modules}
}

// Resolve 返回 key 对应的文件路径
func (p *PathResolver) Resolve(key string) (string, error) {
	norm, err := model.NormalizeKey(key)
	if err != nil {
		return "", err
	}
	if p.localDir != "" {
		if path, err := utils.ResolveWithin(p.localDir, norm); err == nil && utils.IsRegularFile(path) {
			return filepath.Clean(path), nil
		}
	}
	if e, ok := p.modules.Lookup(norm); ok {
		return e.Path, nil
	}
	return "", fmt.Errorf("%w: %s", model.ErrFileNotFound, norm)
}
