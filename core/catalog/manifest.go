package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"soundswap/core/audio"
	"soundswap/core/utils"
	"soundswap/logger"
	"soundswap/model"
)

// ManifestFileName 内容包目录中的清单文件名
const ManifestFileName = "soundswap.json"

type manifestEntry struct {
	Key         string                 `json:"key"`
	DisplayName string                 `json:"displayName"`
	File        string                 `json:"file"`
	Profile     *model.PlaybackProfile `json:"profile"`
}

type manifestFile struct {
	SchemaVersion        int             `json:"schemaVersion"`
	ModuleID             string          `json:"moduleId"`
	DisplayName          string          `json:"displayName"`
	Sirens               []manifestEntry `json:"sirens"`
	VehicleEngines       []manifestEntry `json:"vehicleEngines"`
	Ambient              []manifestEntry `json:"ambient"`
	TransitAnnouncements []manifestEntry `json:"transitAnnouncements"`
}

// 清单中各个域对应的数组名，也是模块 key 的第二段
const (
	SegmentSirens               = "sirens"
	SegmentVehicleEngines       = "vehicleEngines"
	SegmentAmbient              = "ambient"
	SegmentTransitAnnouncements = "transitAnnouncements"
)

// ModuleEntry 内容包提供的一个音频
type ModuleEntry struct {
	Key         string
	DisplayName string
	Path        string
	ModuleID    string
	Profile     *model.PlaybackProfile
}

// Module 一个解析后的内容包
type Module struct {
	ID          string
	DisplayName string
	Dir         string
	Entries     map[string][]ModuleEntry // 按域段分组
}

// ModuleKey 生成 "__module__/{segment}/{moduleId}/{entryKey}"
func ModuleKey(segment, moduleID, entryKey string) string {
	return model.ModuleKeyPrefix + segment + "/" + moduleID + "/" + entryKey
}

// SanitizeModuleID 小写化，只保留 [a-z0-9._-]，其他字符连续出现时折叠为一个 '-'
func SanitizeModuleID(raw string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_':
			b.WriteRune(r)
			lastDash = false
		case r == '-':
			if !lastDash {
				b.WriteRune(r)
			}
			lastDash = true
		default:
			if !lastDash {
				b.WriteRune('-')
			}
			lastDash = true
		}
	}
	id := strings.Trim(b.String(), "-.")
	if id == "." || id == ".." {
		return ""
	}
	return id
}

// ReadManifest 解析一个内容包清单。条目级别的问题只跳过该条目并记录警告；
// 文件不可读、JSON 错误或版本不支持时返回错误。
func ReadManifest(path string) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	var mf manifestFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if mf.SchemaVersion != 0 && mf.SchemaVersion != 1 {
		return nil, fmt.Errorf("%w: %d in %s", model.ErrSchemaUnsupported, mf.SchemaVersion, path)
	}

	dir := filepath.Dir(path)
	id := SanitizeModuleID(mf.ModuleID)
	if id == "" {
		id = SanitizeModuleID(filepath.Base(dir))
	}
	if id == "" {
		return nil, fmt.Errorf("manifest %s has no usable module id", path)
	}

	mod := &Module{
		ID:          id,
		DisplayName: strings.TrimSpace(mf.DisplayName),
		Dir:         dir,
		Entries:     make(map[string][]ModuleEntry),
	}
	if mod.DisplayName == "" {
		mod.DisplayName = id
	}

	sections := []struct {
		segment string
		entries []manifestEntry
	}{
		{SegmentSirens, mf.Sirens},
		{SegmentVehicleEngines, mf.VehicleEngines},
		{SegmentAmbient, mf.Ambient},
		{SegmentTransitAnnouncements, mf.TransitAnnouncements},
	}
	for _, sec := range sections {
		seen := make(map[string]bool)
		for i, raw := range sec.entries {
			entry, err := mod.resolveEntry(sec.segment, raw)
			if err != nil {
				logger.Warn("跳过内容包条目",
					logger.String("module", id),
					logger.String("segment", sec.segment),
					logger.Int("index", i),
					logger.ErrorField(err))
				continue
			}
			fold := model.FoldKey(entry.Key)
			if seen[fold] {
				logger.Warn("内容包条目 key 重复，保留第一个",
					logger.String("module", id),
					logger.String("key", entry.Key))
				continue
			}
			seen[fold] = true
			mod.Entries[sec.segment] = append(mod.Entries[sec.segment], entry)
		}
	}
	return mod, nil
}

func (m *Module) resolveEntry(segment string, raw manifestEntry) (ModuleEntry, error) {
	file := strings.TrimSpace(raw.File)
	if file == "" {
		return ModuleEntry{}, errors.New("entry has no file")
	}
	path, err := utils.ResolveWithin(m.Dir, file)
	if err != nil {
		return ModuleEntry{}, err
	}
	if !audio.IsSupported(path) {
		return ModuleEntry{}, fmt.Errorf("%w: %s", model.ErrUnsupportedFormat, file)
	}
	if !utils.IsRegularFile(path) {
		return ModuleEntry{}, fmt.Errorf("%w: %s", model.ErrFileNotFound, file)
	}

	keySource := strings.TrimSpace(raw.Key)
	if keySource == "" {
		keySource = file
	}
	entryKey, err := model.NormalizeKey(keySource)
	if err != nil {
		return ModuleEntry{}, err
	}

	name := strings.TrimSpace(raw.DisplayName)
	if name == "" {
		name = m.DisplayName + " - " + strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	var profile *model.PlaybackProfile
	if raw.Profile != nil {
		p := raw.Profile.Clamped()
		profile = &p
	}

	return ModuleEntry{
		Key:         ModuleKey(segment, m.ID, entryKey),
		DisplayName: name,
		Path:        path,
		ModuleID:    m.ID,
		Profile:     profile,
	}, nil
}

// ReadModules 读取 dir 下每个子目录中的清单，按目录名排序。
// 单个内容包失败只会跳过该包。
func ReadModules(dir string) ([]*Module, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read modules dir %s: %w", dir, err)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name() < items[j].Name() })

	var modules []*Module
	ids := make(map[string]string)
	for _, item := range items {
		if !item.IsDir() {
			continue
		}
		manifest := filepath.Join(dir, item.Name(), ManifestFileName)
		if !utils.IsRegularFile(manifest) {
			continue
		}

		mod, err := ReadManifest(manifest)
		if err != nil {
			logger.Warn("跳过内容包",
				logger.String("manifest", manifest),
				logger.ErrorField(err))
			continue
		}
		if other, dup := ids[mod.ID]; dup {
			logger.Warn("内容包 ID 重复，跳过",
				logger.String("module", mod.ID),
				logger.String("dir", mod.Dir),
				logger.String("firstDir", other))
			continue
		}
		ids[mod.ID] = mod.Dir
		modules = append(modules, mod)
	}
	return modules, nil
}
