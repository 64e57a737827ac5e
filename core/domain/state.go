package domain

import (
	"fmt"
	"path/filepath"
	"time"

	"soundswap/core/catalog"
	"soundswap/core/resolver"
	"soundswap/core/utils"
	"soundswap/model"
)

// CatalogState 一个域的全部运行时状态，由 Engine 持有并显式传递
type CatalogState struct {
	Traits Traits
	Config *model.DomainConfig
	// Template 从第一个带默认参数的目标捕获，nil 表示尚未捕获
	Template *model.PlaybackProfile

	LastSync  model.CatalogSyncResult
	SyncedAt  time.Time
	LastApply model.ApplyReport
	AppliedAt time.Time

	localDir       string
	paths          *catalog.PathResolver
	resolver       *resolver.Resolver
	appliedVersion uint64
	dirty          bool
	// fingerprints 上一次同步时每个条目文件的指纹，按 FoldKey 索引
	fingerprints map[string]utils.Fingerprint
	// needsSync 模板刚捕获且有待应用的条目
	needsSync bool
}

func newCatalogState(traits Traits, cfg *model.DomainConfig, settingsRoot string) *CatalogState {
	cfg.Normalize()
	localDir := filepath.Join(settingsRoot, traits.FolderName)
	return &CatalogState{
		Traits:   traits,
		Config:   cfg,
		localDir: localDir,
		paths:    catalog.NewPathResolver(localDir, nil),
		dirty:    true,
	}
}

// LocalDir 域的本地文件夹
func (s *CatalogState) LocalDir() string {
	return s.localDir
}

// Resolve 实现 resolver.PathResolver，总是使用最新一次同步的内容包索引
func (s *CatalogState) Resolve(key string) (string, error) {
	if s.paths == nil {
		return "", fmt.Errorf("%w: %s", model.ErrFileNotFound, key)
	}
	return s.paths.Resolve(key)
}

// MarkDirty 下一个 tick 重新应用
func (s *CatalogState) MarkDirty() {
	s.dirty = true
}

// refreshFingerprints 重新记录目录中每个条目的文件指纹，返回被原地改写的 key
func (s *CatalogState) refreshFingerprints() []string {
	next := make(map[string]utils.Fingerprint, len(s.Config.Profiles))
	var rewritten []string
	for _, key := range s.Config.Profiles.Keys() {
		path, err := s.Resolve(key)
		if err != nil {
			continue
		}
		fp, err := utils.FingerprintOf(path)
		if err != nil {
			continue
		}
		fold := model.FoldKey(key)
		if old, ok := s.fingerprints[fold]; ok && !old.Equal(fp) {
			rewritten = append(rewritten, key)
		}
		next[fold] = fp
	}
	s.fingerprints = next
	return rewritten
}

// CaptureTemplate 只捕获一次；返回是否为新捕获
func (s *CatalogState) CaptureTemplate(p model.PlaybackProfile) bool {
	if s.Template != nil {
		return false
	}
	t := p.Clamped()
	s.Template = &t
	return true
}

// Status 当前状态快照，withCatalog 为 true 时附带完整目录
func (s *CatalogState) Status(version uint64, withCatalog bool) model.DomainStatus {
	st := model.DomainStatus{
		Domain:            s.Traits.Name,
		Folder:            s.localDir,
		LastSync:          s.LastSync,
		SyncedAt:          s.SyncedAt,
		LastApply:         s.LastApply,
		AppliedAt:         s.AppliedAt,
		CompletionVersion: version,
		TemplateCaptured:  s.Template != nil,
	}
	if withCatalog {
		st.Catalog = s.Config.Profiles.Entries()
	}
	return st
}
