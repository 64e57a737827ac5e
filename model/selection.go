package model

import (
	"fmt"
	"strings"
)

// DefaultSelection 表示"不替换，使用游戏原声"
const DefaultSelection = "Default"

// ModuleKeyPrefix 外部内容包生成的 key 的统一前缀
const ModuleKeyPrefix = "__module__/"

const illegalKeyChars = `<>:"|?*`

// NormalizeKey 把一个相对路径规范化为 SelectionKey：
// 反斜杠转为 '/'，去掉首尾及重复的分隔符，拒绝 "." / ".." 段和文件名非法字符。
func NormalizeKey(raw string) (string, error) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, `\`, "/"))
	if s == "" {
		return "", fmt.Errorf("empty selection key")
	}

	parts := strings.Split(s, "/")
	segments := make([]string, 0, len(parts))
	for _, seg := range parts {
		if seg == "" {
			continue
		}
		if seg == "." || seg == ".." {
			return "", fmt.Errorf("selection key %q contains relative segment %q", raw, seg)
		}
		for _, r := range seg {
			if r < 0x20 || strings.ContainsRune(illegalKeyChars, r) {
				return "", fmt.Errorf("selection key %q contains illegal character %q", raw, r)
			}
		}
		segments = append(segments, seg)
	}
	if len(segments) == 0 {
		return "", fmt.Errorf("selection key %q has no segments", raw)
	}
	return strings.Join(segments, "/"), nil
}

// IsDefault 空串和哨兵值都视为默认选择
func IsDefault(selection string) bool {
	s := strings.TrimSpace(selection)
	return s == "" || strings.EqualFold(s, DefaultSelection)
}

// FoldKey 返回用于 map 查找的大小写无关形式
func FoldKey(key string) string {
	if norm, err := NormalizeKey(key); err == nil {
		key = norm
	}
	return strings.ToLower(strings.TrimSpace(key))
}

// KeysEqual 大小写无关地比较两个 key
func KeysEqual(a, b string) bool {
	return FoldKey(a) == FoldKey(b)
}

// IsModuleKey 报告 key 是否来自外部内容包
func IsModuleKey(key string) bool {
	return strings.HasPrefix(FoldKey(key), ModuleKeyPrefix)
}
