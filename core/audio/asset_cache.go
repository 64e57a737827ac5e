package audio

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"soundswap/core/utils"
	"soundswap/logger"
	"soundswap/model"
)

// LoadStatus Load 的三种结果
type LoadStatus int

const (
	LoadSuccess LoadStatus = iota
	LoadPending
	LoadFailure
)

func (s LoadStatus) String() string {
	switch s {
	case LoadSuccess:
		return "success"
	case LoadPending:
		return "pending"
	default:
		return "failure"
	}
}

// LoadResult Load 的返回值；Failure 时 Err 非空
type LoadResult struct {
	Status LoadStatus
	Asset  *Asset
	Err    error
}

func success(a *Asset) LoadResult  { return LoadResult{Status: LoadSuccess, Asset: a} }
func pending() LoadResult          { return LoadResult{Status: LoadPending} }
func failure(err error) LoadResult { return LoadResult{Status: LoadFailure, Err: err} }

// CacheOptions 缓存参数
type CacheOptions struct {
	Capacity        int
	DecodeTimeout   time.Duration
	FailureCooldown time.Duration
	Decoder         Decoder
	Now             func() time.Time
}

// DefaultCacheOptions 默认参数：32 个条目，10 秒超时，10 秒失败冷却
var DefaultCacheOptions = CacheOptions{
	Capacity:        32,
	DecodeTimeout:   10 * time.Second,
	FailureCooldown: 10 * time.Second,
}

type cachedAsset struct {
	asset      *Asset
	lastAccess time.Time
	seq        uint64
}

type pendingDecode struct {
	fp        utils.Fingerprint
	startedAt time.Time
	handle    DecodeHandle
}

type failedDecode struct {
	fp       utils.Fingerprint
	failedAt time.Time
	err      error
}

// CacheStats 缓存统计
type CacheStats struct {
	Entries           int    `json:"entries"`
	Pending           int    `json:"pending"`
	Failed            int    `json:"failed"`
	CompletionVersion uint64 `json:"completionVersion"`
}

// AssetCache 路径到已解码音频的缓存。
// 只在调度协程中使用，不加锁；异步解码通过 PollPending 每个 tick 推进。
type AssetCache struct {
	opts CacheOptions

	entries map[string]*cachedAsset
	pending map[string]*pendingDecode
	failed  map[string]*failedDecode

	accessSeq         uint64
	completionVersion uint64
}

// NewAssetCache 创建缓存，未设置的参数使用默认值
func NewAssetCache(opts CacheOptions) *AssetCache {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCacheOptions.Capacity
	}
	if opts.DecodeTimeout <= 0 {
		opts.DecodeTimeout = DefaultCacheOptions.DecodeTimeout
	}
	if opts.FailureCooldown <= 0 {
		opts.FailureCooldown = DefaultCacheOptions.FailureCooldown
	}
	if opts.Decoder == nil {
		opts.Decoder = NewVorbisDecoder()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &AssetCache{
		opts:    opts,
		entries: make(map[string]*cachedAsset),
		pending: make(map[string]*pendingDecode),
		failed:  make(map[string]*failedDecode),
	}
}

// Load 返回 path 对应的音频：命中缓存、同步解码 WAV，或推进 OGG 的后台解码
func (c *AssetCache) Load(path string) LoadResult {
	key := filepath.Clean(path)

	format := FormatOf(key)
	if format == FormatUnsupported {
		return failure(fmt.Errorf("%w: %s", model.ErrUnsupportedFormat, filepath.Ext(key)))
	}

	fp, err := utils.FingerprintOf(key)
	if err != nil {
		c.forget(key)
		return failure(err)
	}

	if e, ok := c.entries[key]; ok {
		if e.asset.Fingerprint.Equal(fp) {
			c.touch(e)
			return success(e.asset)
		}
		logger.Debug("音频文件已变化，重新解码",
			logger.String("path", key),
			logger.String("old", e.asset.Fingerprint.String()),
			logger.String("new", fp.String()))
		c.drop(key)
	}

	if !format.IsAsync() {
		pcm, err := DecodeWAVFile(key)
		if err != nil {
			return failure(err)
		}
		return success(c.insert(key, fp, pcm))
	}
	return c.loadAsync(key, fp)
}

func (c *AssetCache) loadAsync(key string, fp utils.Fingerprint) LoadResult {
	now := c.opts.Now()

	if f, ok := c.failed[key]; ok {
		if f.fp.Equal(fp) && now.Sub(f.failedAt) < c.opts.FailureCooldown {
			return failure(f.err)
		}
		delete(c.failed, key)
	}

	if p, ok := c.pending[key]; ok {
		if p.fp.Equal(fp) {
			return c.advance(key, p, now)
		}
		logger.Debug("解码中的文件被覆盖，重新开始",
			logger.String("path", key))
		p.handle.Cancel()
		delete(c.pending, key)
	}

	c.pending[key] = &pendingDecode{
		fp:        fp,
		startedAt: now,
		handle:    c.opts.Decoder.Start(key),
	}
	return pending()
}

// advance 推进一个进行中的解码，必要时转换为成功或失败
func (c *AssetCache) advance(key string, p *pendingDecode, now time.Time) LoadResult {
	if !p.handle.Done() {
		if now.Sub(p.startedAt) <= c.opts.DecodeTimeout {
			return pending()
		}
		p.handle.Cancel()
		delete(c.pending, key)
		err := fmt.Errorf("%w after %s: %s", model.ErrDecodeTimeout, c.opts.DecodeTimeout, key)
		c.recordFailure(key, p.fp, err, now)
		return failure(err)
	}

	delete(c.pending, key)
	c.completionVersion++

	pcm, err := p.handle.Poll()
	if err == nil && (pcm == nil || pcm.Channels <= 0 || pcm.SampleRate <= 0) {
		err = errors.New("decoder returned no audio")
	}
	if err != nil {
		if !errors.Is(err, model.ErrDecodeFailure) {
			err = fmt.Errorf("%w: %v", model.ErrDecodeFailure, err)
		}
		c.failed[key] = &failedDecode{fp: p.fp, failedAt: now, err: err}
		return failure(err)
	}

	delete(c.failed, key)
	return success(c.insert(key, p.fp, pcm))
}

func (c *AssetCache) recordFailure(key string, fp utils.Fingerprint, err error, now time.Time) {
	c.failed[key] = &failedDecode{fp: fp, failedAt: now, err: err}
	c.completionVersion++
}

// PollPending 推进所有进行中的解码，返回本次完成（成功或失败）的数量
func (c *AssetCache) PollPending() int {
	if len(c.pending) == 0 {
		return 0
	}
	now := c.opts.Now()

	keys := make([]string, 0, len(c.pending))
	for k := range c.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	finished := 0
	for _, key := range keys {
		p := c.pending[key]
		fp, err := utils.FingerprintOf(key)
		if err != nil || !fp.Equal(p.fp) {
			p.handle.Cancel()
			delete(c.pending, key)
			continue
		}
		if res := c.advance(key, p, now); res.Status != LoadPending {
			finished++
			if res.Status == LoadFailure {
				logger.Warn("后台解码失败",
					logger.String("path", key),
					logger.ErrorField(res.Err))
			}
		}
	}
	return finished
}

// CompletionVersion 每次异步解码结束（成功或失败）加一
func (c *AssetCache) CompletionVersion() uint64 {
	return c.completionVersion
}

// HasPending 报告是否还有进行中的解码
func (c *AssetCache) HasPending() bool {
	return len(c.pending) > 0
}

// Invalidate 丢弃 path 的缓存、进行中的解码和失败记录
func (c *AssetCache) Invalidate(path string) {
	c.forget(filepath.Clean(path))
}

// Close 取消所有解码并释放全部缓冲区
func (c *AssetCache) Close() {
	for key, p := range c.pending {
		p.handle.Cancel()
		delete(c.pending, key)
	}
	for key := range c.entries {
		c.drop(key)
	}
	c.failed = make(map[string]*failedDecode)
}

// Stats 返回当前统计
func (c *AssetCache) Stats() CacheStats {
	return CacheStats{
		Entries:           len(c.entries),
		Pending:           len(c.pending),
		Failed:            len(c.failed),
		CompletionVersion: c.completionVersion,
	}
}

func (c *AssetCache) insert(key string, fp utils.Fingerprint, pcm *PCM) *Asset {
	e := &cachedAsset{asset: newAsset(key, fp, pcm)}
	c.touch(e)
	c.entries[key] = e
	c.evict()
	return e.asset
}

func (c *AssetCache) touch(e *cachedAsset) {
	c.accessSeq++
	e.seq = c.accessSeq
	e.lastAccess = c.opts.Now()
}

// evict 淘汰最久未访问的条目直到不超过容量
func (c *AssetCache) evict() {
	for len(c.entries) > c.opts.Capacity {
		var (
			oldestKey string
			oldest    *cachedAsset
		)
		for k, e := range c.entries {
			if oldest == nil || e.seq < oldest.seq {
				oldestKey, oldest = k, e
			}
		}
		logger.Debug("淘汰音频缓存",
			logger.String("path", oldestKey),
			logger.Int("capacity", c.opts.Capacity))
		c.drop(oldestKey)
	}
}

func (c *AssetCache) drop(key string) {
	if e, ok := c.entries[key]; ok {
		e.asset.release()
		delete(c.entries, key)
	}
}

func (c *AssetCache) forget(key string) {
	c.drop(key)
	if p, ok := c.pending[key]; ok {
		p.handle.Cancel()
		delete(c.pending, key)
	}
	delete(c.failed, key)
}
