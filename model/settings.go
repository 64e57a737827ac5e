package model

import (
	"fmt"
	"sort"
	"strings"
)

// MissingSelectionFallback 自定义音频无法加载时的处理策略
type MissingSelectionFallback int

const (
	FallbackDefault MissingSelectionFallback = iota
	FallbackMute
	FallbackAlternateCustomSiren
)

var fallbackNames = map[MissingSelectionFallback]string{
	FallbackDefault:              "Default",
	FallbackMute:                 "Mute",
	FallbackAlternateCustomSiren: "AlternateCustomSiren",
}

func (f MissingSelectionFallback) String() string {
	if name, ok := fallbackNames[f]; ok {
		return name
	}
	return fmt.Sprintf("MissingSelectionFallback(%d)", int(f))
}

func (f MissingSelectionFallback) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *MissingSelectionFallback) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	for v, name := range fallbackNames {
		if strings.EqualFold(s, name) {
			*f = v
			return nil
		}
	}
	return fmt.Errorf("unknown missing-selection fallback %q", s)
}

// DomainConfig 一个声音域（警笛、引擎、环境音、公交广播）的持久化配置
type DomainConfig struct {
	DefaultSelection         string                   `json:"defaultSelection"`
	MissingSelectionFallback MissingSelectionFallback `json:"missingSelectionFallback"`
	AlternateSelection       string                   `json:"alternateSelection"`
	TargetSelections         map[string]string        `json:"targetSelections"`
	EditingSelection         string                   `json:"editingSelection"`
	Profiles                 ProfileMap               `json:"profiles"`

	// PendingTemplateKeys 在模板未捕获时以占位模板创建的本地条目
	PendingTemplateKeys map[string]bool `json:"pendingTemplateKeys,omitempty"`
}

// NewDomainConfig 返回空配置
func NewDomainConfig() *DomainConfig {
	c := &DomainConfig{}
	c.ensure()
	return c
}

// Normalize 填充 nil 字段，反序列化之后调用
func (c *DomainConfig) Normalize() {
	c.ensure()
	pending := make(map[string]bool, len(c.PendingTemplateKeys))
	for k, v := range c.PendingTemplateKeys {
		if v {
			pending[FoldKey(k)] = true
		}
	}
	c.PendingTemplateKeys = pending
}

func (c *DomainConfig) ensure() {
	if IsDefault(c.DefaultSelection) {
		c.DefaultSelection = DefaultSelection
	}
	if IsDefault(c.AlternateSelection) {
		c.AlternateSelection = DefaultSelection
	}
	if IsDefault(c.EditingSelection) {
		c.EditingSelection = DefaultSelection
	}
	if c.TargetSelections == nil {
		c.TargetSelections = make(map[string]string)
	}
	if c.Profiles == nil {
		c.Profiles = make(ProfileMap)
	}
	if c.PendingTemplateKeys == nil {
		c.PendingTemplateKeys = make(map[string]bool)
	}
}

// SelectionFor 返回目标实际使用的选择：有单独覆盖时用覆盖，否则用域默认
func (c *DomainConfig) SelectionFor(target string) string {
	if sel, ok := c.TargetSelections[target]; ok && !IsDefault(sel) {
		return sel
	}
	return c.DefaultSelection
}

// MarkPendingTemplate 记录一个等待真实模板的 key
func (c *DomainConfig) MarkPendingTemplate(key string) {
	c.ensure()
	c.PendingTemplateKeys[FoldKey(key)] = true
}

// PendingTemplate 返回排序后的待应用模板 key
func (c *DomainConfig) PendingTemplate() []string {
	keys := make([]string, 0, len(c.PendingTemplateKeys))
	for k := range c.PendingTemplateKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
