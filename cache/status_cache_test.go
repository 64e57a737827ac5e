package cache

import (
	"context"
	"testing"
	"time"

	"soundswap/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFieldsSummarizeWithoutCatalog(t *testing.T) {
	synced := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	status := model.DomainStatus{
		Domain: "sirens",
		Folder: "/settings/Sirens",
		LastSync: model.CatalogSyncResult{
			Domain:         "sirens",
			FoundFileCount: 2,
			AddedKeys:      []string{"a.wav"},
			RemovedKeys:    []string{},
			Changed:        true,
		},
		SyncedAt:          synced,
		LastApply:         model.ApplyReport{PassID: "p-1", Domain: "sirens", Targets: 6, Custom: 2, Kept: 4},
		CompletionVersion: 7,
		TemplateCaptured:  true,
		Catalog:           []model.ProfileEntry{{Key: "a.wav"}, {Key: "b.ogg"}},
	}

	fields, err := statusFields(status)
	require.NoError(t, err)
	assert.Equal(t, "2", fields["entries"])
	assert.Equal(t, "", fields["appliedAt"])
	assert.NotContains(t, fields, "catalog")

	values := make(map[string]string, len(fields))
	for k, v := range fields {
		values[k] = v.(string)
	}
	got, err := parseStatus("sirens", values)
	require.NoError(t, err)
	assert.Equal(t, status.LastSync, got.LastSync)
	assert.Equal(t, status.LastApply, got.LastApply)
	assert.True(t, got.SyncedAt.Equal(synced))
	assert.True(t, got.AppliedAt.IsZero())
	assert.Equal(t, uint64(7), got.CompletionVersion)
	assert.True(t, got.TemplateCaptured)
	assert.Nil(t, got.Catalog)
}

func TestParseStatusRejectsBadJSON(t *testing.T) {
	_, err := parseStatus("ambient", map[string]string{"lastSync": "{"})
	assert.Error(t, err)
}

func TestStatusCacheWithoutClient(t *testing.T) {
	c := NewStatusCache(nil, time.Minute)
	assert.Equal(t, "soundswap:status:sirens", StatusKey("sirens"))

	err := c.Publish(context.Background(), model.DomainStatus{Domain: "sirens"})
	assert.Error(t, err)
	_, _, err = c.Get(context.Background(), "sirens")
	assert.Error(t, err)

	// 失败只记录日志，不会 panic
	c.PublishStatus(model.DomainStatus{Domain: "sirens"})
}

func TestTestRedisWithoutClient(t *testing.T) {
	RedisClient = nil
	assert.Error(t, TestRedis())
	assert.NoError(t, CloseRedis())
}
