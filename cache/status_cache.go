package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"soundswap/logger"
	"soundswap/model"

	"github.com/go-redis/redis/v8"
)

const statusKeyPrefix = "soundswap:status:"

// StatusKey 域状态在 Redis 中的键
func StatusKey(domain string) string {
	return statusKeyPrefix + domain
}

// StatusCache 把每个域最近一次同步和重新应用的结果写入 Redis hash，供其他进程查看
type StatusCache struct {
	client  *redis.Client
	ttl     time.Duration
	timeout time.Duration
}

// NewStatusCache ttl <= 0 时不过期
func NewStatusCache(client *redis.Client, ttl time.Duration) *StatusCache {
	return &StatusCache{client: client, ttl: ttl, timeout: 3 * time.Second}
}

// Publish 写入一个域的状态
func (c *StatusCache) Publish(ctx context.Context, status model.DomainStatus) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	fields, err := statusFields(status)
	if err != nil {
		return err
	}

	key := StatusKey(status.Domain)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fields)
		if c.ttl > 0 {
			pipe.Expire(ctx, key, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish status for %s: %w", status.Domain, err)
	}
	return nil
}

// PublishStatus 实现 domain.StatusSink；失败只记录日志
func (c *StatusCache) PublishStatus(status model.DomainStatus) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.Publish(ctx, status); err != nil {
		logger.Warn("写入域状态到Redis失败",
			logger.String("domain", status.Domain),
			logger.ErrorField(err))
		return
	}
	logger.Debug("域状态已写入Redis",
		logger.String("domain", status.Domain),
		logger.Uint64("completionVersion", status.CompletionVersion))
}

// Get 读取一个域的状态；键不存在时返回 false
func (c *StatusCache) Get(ctx context.Context, domain string) (model.DomainStatus, bool, error) {
	if c.client == nil {
		return model.DomainStatus{}, false, fmt.Errorf("Redis client not initialized")
	}
	values, err := c.client.HGetAll(ctx, StatusKey(domain)).Result()
	if err != nil {
		return model.DomainStatus{}, false, fmt.Errorf("read status for %s: %w", domain, err)
	}
	if len(values) == 0 {
		return model.DomainStatus{}, false, nil
	}
	status, err := parseStatus(domain, values)
	if err != nil {
		return model.DomainStatus{}, false, err
	}
	return status, true, nil
}

// statusFields 目录本身不写入 Redis，只写摘要
func statusFields(status model.DomainStatus) (map[string]interface{}, error) {
	lastSync, err := json.Marshal(status.LastSync)
	if err != nil {
		return nil, fmt.Errorf("marshal sync result: %w", err)
	}
	lastApply, err := json.Marshal(status.LastApply)
	if err != nil {
		return nil, fmt.Errorf("marshal apply report: %w", err)
	}
	return map[string]interface{}{
		"folder":            status.Folder,
		"lastSync":          string(lastSync),
		"syncedAt":          formatTime(status.SyncedAt),
		"lastApply":         string(lastApply),
		"appliedAt":         formatTime(status.AppliedAt),
		"completionVersion": strconv.FormatUint(status.CompletionVersion, 10),
		"templateCaptured":  strconv.FormatBool(status.TemplateCaptured),
		"entries":           strconv.Itoa(len(status.Catalog)),
	}, nil
}

func parseStatus(domain string, values map[string]string) (model.DomainStatus, error) {
	status := model.DomainStatus{Domain: domain, Folder: values["folder"]}

	if raw := values["lastSync"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &status.LastSync); err != nil {
			return status, fmt.Errorf("parse sync result for %s: %w", domain, err)
		}
	}
	if raw := values["lastApply"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &status.LastApply); err != nil {
			return status, fmt.Errorf("parse apply report for %s: %w", domain, err)
		}
	}
	status.SyncedAt = parseTime(values["syncedAt"])
	status.AppliedAt = parseTime(values["appliedAt"])
	status.CompletionVersion, _ = strconv.ParseUint(values["completionVersion"], 10, 64)
	status.TemplateCaptured, _ = strconv.ParseBool(values["templateCaptured"])
	return status, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
