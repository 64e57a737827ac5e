package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"soundswap/model"
)

// SettingsStore 每个声音域一个 JSON 文件：<root>/<domain>.json
type SettingsStore struct {
	root string
}

// NewSettingsStore 创建存储
func NewSettingsStore(root string) *SettingsStore {
	return &SettingsStore{root: root}
}

func (s *SettingsStore) path(domain string) string {
	return filepath.Join(s.root, domain+".json")
}

// Load 读取域配置；文件不存在时返回默认配置
func (s *SettingsStore) Load(domain string) (*model.DomainConfig, error) {
	data, err := os.ReadFile(s.path(domain))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.NewDomainConfig(), nil
		}
		return nil, fmt.Errorf("read settings for %s: %w", domain, err)
	}

	cfg := &model.DomainConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse settings for %s: %w", domain, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Save 先写临时文件再改名，避免写到一半的配置
func (s *SettingsStore) Save(domain string, cfg *model.DomainConfig) error {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings for %s: %w", domain, err)
	}

	target := s.path(domain)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write settings for %s: %w", domain, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("replace settings for %s: %w", domain, err)
	}
	return nil
}
