package resolver

import (
	"errors"
	"fmt"
	"time"

	"soundswap/core/audio"
	"soundswap/model"
)

// Loader 资源加载，*audio.AssetCache 实现了该接口
type Loader interface {
	Load(path string) audio.LoadResult
}

// PathResolver 把 key 解析为磁盘路径，*catalog.PathResolver 实现了该接口
type PathResolver interface {
	Resolve(key string) (string, error)
}

// Memo 单次重新应用内的解析结果缓存，按规范化 key 索引
type Memo map[string]Outcome

// NewMemo 每次重新应用开始时创建
func NewMemo() Memo {
	return make(Memo)
}

// Options 解析器参数
type Options struct {
	Domain string
	// Noun 用户提示中的名词，例如 "siren"
	Noun        string
	LogCooldown time.Duration
	Now         func() time.Time
}

// Resolver 把一个选择解析为播放决定
type Resolver struct {
	loader Loader
	paths  PathResolver
	domain string
	noun   string
	log    *failureLog
}

// New 创建解析器；paths 为 nil 时使用条目记录的 SourcePath
func New(loader Loader, paths PathResolver, opts Options) *Resolver {
	if opts.Noun == "" {
		opts.Noun = "sound"
	}
	if opts.LogCooldown <= 0 {
		opts.LogCooldown = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Resolver{
		loader: loader,
		paths:  paths,
		domain: opts.Domain,
		noun:   opts.Noun,
		log:    newFailureLog(opts.LogCooldown, opts.Now),
	}
}

// Resolve 解析一个选择。同一 memo 内每个规范化 key 只解析一次。
func (r *Resolver) Resolve(key string, cfg *model.DomainConfig, memo Memo) Outcome {
	if model.IsDefault(key) {
		return keepOriginal("")
	}

	fold := model.FoldKey(key)
	if memo != nil {
		if out, ok := memo[fold]; ok {
			return out
		}
	}

	out := r.resolve(key, cfg)
	if memo != nil {
		memo[fold] = out
	}
	return out
}

func (r *Resolver) resolve(key string, cfg *model.DomainConfig) Outcome {
	out, err := r.attempt(key, cfg)
	if err == nil {
		return out
	}

	reason := r.describe(key, err)
	r.log.warn(r.domain, key, reason, err)

	switch cfg.MissingSelectionFallback {
	case model.FallbackMute:
		return Outcome{Kind: Mute, Key: key, Message: reason + " Muting."}

	case model.FallbackAlternateCustomSiren:
		alt := cfg.AlternateSelection
		if model.IsDefault(alt) {
			return keepOriginal(reason + " No alternate is configured; keeping the original sound.")
		}
		if model.KeysEqual(alt, key) {
			return keepOriginal(fmt.Sprintf("%s Alternate '%s' is the same selection; keeping the original sound.", reason, alt))
		}

		altOut, altErr := r.attempt(alt, cfg)
		if altErr != nil {
			altReason := r.describe(alt, altErr)
			r.log.warn(r.domain, alt, altReason, altErr)
			return keepOriginal(fmt.Sprintf("%s Alternate '%s' also failed; keeping the original sound.", reason, alt))
		}
		if altOut.Pending {
			altOut.Message = fmt.Sprintf("%s Alternate '%s' is still loading.", reason, alt)
		} else {
			altOut.Message = fmt.Sprintf("%s Falling back to alternate '%s'.", reason, alt)
		}
		return altOut

	default:
		return keepOriginal(reason + " Keeping the original sound.")
	}
}

// attempt 查找条目并加载一次，不做任何回退
func (r *Resolver) attempt(key string, cfg *model.DomainConfig) (Outcome, error) {
	entry, ok := cfg.Profiles.Get(key)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", model.ErrProfileMissing, key)
	}

	path := entry.SourcePath
	if r.paths != nil {
		resolved, err := r.paths.Resolve(entry.Key)
		if err != nil {
			return Outcome{}, err
		}
		path = resolved
	}
	if path == "" {
		return Outcome{}, fmt.Errorf("%w: %s", model.ErrFileNotFound, key)
	}

	res := r.loader.Load(path)
	switch res.Status {
	case audio.LoadSuccess:
		return Outcome{
			Kind:       Custom,
			Asset:      res.Asset,
			Profile:    entry.Profile.Clamped(),
			SourcePath: path,
			Key:        entry.Key,
		}, nil
	case audio.LoadPending:
		return Outcome{Kind: KeepOriginal, Key: entry.Key, SourcePath: path, Pending: true}, nil
	default:
		err := res.Err
		if err == nil {
			err = model.ErrDecodeFailure
		}
		return Outcome{}, err
	}
}

func (r *Resolver) describe(key string, err error) string {
	switch {
	case errors.Is(err, model.ErrFileNotFound):
		return fmt.Sprintf("Custom %s file was not found for '%s'.", r.noun, key)
	case errors.Is(err, model.ErrProfileMissing):
		return fmt.Sprintf("Custom %s '%s' is not in the catalog.", r.noun, key)
	case errors.Is(err, model.ErrUnsupportedFormat):
		return fmt.Sprintf("Custom %s '%s' has an unsupported file format.", r.noun, key)
	case errors.Is(err, model.ErrDecodeTimeout):
		return fmt.Sprintf("Custom %s '%s' took too long to decode.", r.noun, key)
	case errors.Is(err, model.ErrPathTraversal):
		return fmt.Sprintf("Custom %s '%s' points outside its folder.", r.noun, key)
	default:
		return fmt.Sprintf("Custom %s '%s' could not be loaded: %v.", r.noun, key, err)
	}
}
