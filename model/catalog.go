package model

import (
	"encoding/json"
	"sort"
	"time"
)

// ProfileEntry 目录中的一个可选音频及其播放参数
type ProfileEntry struct {
	Key            string          `json:"key"`
	DisplayName    string          `json:"displayName"`
	SourcePath     string          `json:"sourcePath"`
	OriginModuleID string          `json:"originModuleId,omitempty"`
	Profile        PlaybackProfile `json:"profile"`
}

// IsExternal 报告条目是否由内容包提供
func (e ProfileEntry) IsExternal() bool {
	return e.OriginModuleID != "" || IsModuleKey(e.Key)
}

// ProfileMap 按大小写无关的 key 存放 ProfileEntry。
// 序列化为按 key 排序的数组。
type ProfileMap map[string]ProfileEntry

// Get 查找条目
func (m ProfileMap) Get(key string) (ProfileEntry, bool) {
	e, ok := m[FoldKey(key)]
	return e, ok
}

// Has 报告 key 是否存在
func (m ProfileMap) Has(key string) bool {
	_, ok := m[FoldKey(key)]
	return ok
}

// Put 插入或替换条目
func (m ProfileMap) Put(e ProfileEntry) {
	m[FoldKey(e.Key)] = e
}

// Delete 删除条目
func (m ProfileMap) Delete(key string) {
	delete(m, FoldKey(key))
}

// Keys 返回排序后的原始 key
func (m ProfileMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for _, e := range m {
		keys = append(keys, e.Key)
	}
	sort.Slice(keys, func(i, j int) bool { return FoldKey(keys[i]) < FoldKey(keys[j]) })
	return keys
}

// Entries 返回按 key 排序的条目副本
func (m ProfileMap) Entries() []ProfileEntry {
	out := make([]ProfileEntry, 0, len(m))
	for _, k := range m.Keys() {
		out = append(out, m[FoldKey(k)])
	}
	return out
}

func (m ProfileMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Entries())
}

func (m *ProfileMap) UnmarshalJSON(data []byte) error {
	var entries []ProfileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	out := make(ProfileMap, len(entries))
	for _, e := range entries {
		if IsDefault(e.Key) {
			continue
		}
		e.Profile = e.Profile.Clamped()
		out.Put(e)
	}
	*m = out
	return nil
}

// CatalogSyncResult 一次目录同步的结果，只用于状态展示和变更通知
type CatalogSyncResult struct {
	Domain         string   `json:"domain"`
	FoundFileCount int      `json:"foundFileCount"`
	AddedKeys      []string `json:"addedKeys"`
	RemovedKeys    []string `json:"removedKeys"`
	Changed        bool     `json:"changed"`
}

// ApplyReport 一次重新应用的统计
type ApplyReport struct {
	PassID    string `json:"passId"`
	Domain    string `json:"domain"`
	Targets   int    `json:"targets"`
	Custom    int    `json:"custom"`
	Muted     int    `json:"muted"`
	Kept      int    `json:"kept"`
	Pending   int    `json:"pending"`
	Resolved  int    `json:"resolved"` // distinct keys actually resolved in this pass
	ApplyErrs int    `json:"applyErrors"`
}

// DomainStatus 对外发布的域状态快照
type DomainStatus struct {
	Domain            string            `json:"domain"`
	Folder            string            `json:"folder"`
	LastSync          CatalogSyncResult `json:"lastSync"`
	SyncedAt          time.Time         `json:"syncedAt"`
	LastApply         ApplyReport       `json:"lastApply"`
	AppliedAt         time.Time         `json:"appliedAt"`
	CompletionVersion uint64            `json:"completionVersion"`
	TemplateCaptured  bool              `json:"templateCaptured"`
	Catalog           []ProfileEntry    `json:"catalog,omitempty"`
}
