package resolver

import (
	"fmt"
	"testing"
	"time"

	"soundswap/core/audio"
	"soundswap/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLoader struct {
	results map[string]audio.LoadResult
	calls   map[string]int
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{results: map[string]audio.LoadResult{}, calls: map[string]int{}}
}

func (f *fakeLoader) ok(path string) *audio.Asset {
	a := &audio.Asset{Path: path}
	f.results[path] = audio.LoadResult{Status: audio.LoadSuccess, Asset: a}
	return a
}

func (f *fakeLoader) fail(path string, err error) {
	f.results[path] = audio.LoadResult{Status: audio.LoadFailure, Err: err}
}

func (f *fakeLoader) pending(path string) {
	f.results[path] = audio.LoadResult{Status: audio.LoadPending}
}

func (f *fakeLoader) Load(path string) audio.LoadResult {
	f.calls[path]++
	if res, ok := f.results[path]; ok {
		return res
	}
	return audio.LoadResult{Status: audio.LoadFailure, Err: fmt.Errorf("%w: %s", model.ErrFileNotFound, path)}
}

func configWith(keys ...string) *model.DomainConfig {
	cfg := model.NewDomainConfig()
	for _, k := range keys {
		p := model.FallbackProfile()
		p.Volume = 0.5
		cfg.Profiles.Put(model.ProfileEntry{Key: k, SourcePath: "/sounds/" + k, Profile: p})
	}
	return cfg
}

func newResolver(loader Loader) *Resolver {
	return New(loader, nil, Options{Domain: "sirens", Noun: "siren"})
}

func TestResolveDefaultKeepsOriginal(t *testing.T) {
	loader := newFakeLoader()
	r := newResolver(loader)

	for _, key := range []string{"Default", "default", "", "  "} {
		out := r.Resolve(key, configWith(), NewMemo())
		assert.Equal(t, KeepOriginal, out.Kind, "key %q", key)
		assert.False(t, out.Pending)
	}
	assert.Empty(t, loader.calls)
}

func TestResolveCustom(t *testing.T) {
	loader := newFakeLoader()
	asset := loader.ok("/sounds/wail.wav")
	cfg := configWith("wail.wav")

	entry, _ := cfg.Profiles.Get("wail.wav")
	entry.Profile.Volume = 4
	cfg.Profiles.Put(entry)

	out := newResolver(loader).Resolve("WAIL.wav", cfg, NewMemo())
	require.Equal(t, Custom, out.Kind)
	assert.Same(t, asset, out.Asset)
	assert.Equal(t, "/sounds/wail.wav", out.SourcePath)
	assert.Equal(t, "wail.wav", out.Key)
	assert.Equal(t, 1.0, out.Profile.Volume, "profile is handed out clamped")

	stored, _ := cfg.Profiles.Get("wail.wav")
	assert.Equal(t, 4.0, stored.Profile.Volume, "catalog entry is not mutated")
}

func TestResolvePendingKeepsOriginal(t *testing.T) {
	loader := newFakeLoader()
	loader.pending("/sounds/yelp.ogg")
	cfg := configWith("yelp.ogg")
	cfg.MissingSelectionFallback = model.FallbackMute

	out := newResolver(loader).Resolve("yelp.ogg", cfg, NewMemo())
	assert.Equal(t, KeepOriginal, out.Kind)
	assert.True(t, out.Pending)
	assert.Empty(t, out.Message)
}

func TestResolveFallbackPolicies(t *testing.T) {
	tests := []struct {
		name      string
		policy    model.MissingSelectionFallback
		alternate string
		setup     func(l *fakeLoader)
		wantKind  Kind
		wantKey   string
		wantMsg   string
	}{
		{
			name:     "default policy keeps original",
			policy:   model.FallbackDefault,
			wantKind: KeepOriginal,
			wantMsg:  "Custom siren file was not found for 'k1'. Keeping the original sound.",
		},
		{
			name:     "mute policy mutes",
			policy:   model.FallbackMute,
			wantKind: Mute,
			wantKey:  "k1",
			wantMsg:  "Custom siren file was not found for 'k1'. Muting.",
		},
		{
			name:      "alternate loads",
			policy:    model.FallbackAlternateCustomSiren,
			alternate: "k2",
			setup:     func(l *fakeLoader) { l.ok("/sounds/k2") },
			wantKind:  Custom,
			wantKey:   "k2",
			wantMsg:   "Custom siren file was not found for 'k1'. Falling back to alternate 'k2'.",
		},
		{
			name:      "alternate also fails",
			policy:    model.FallbackAlternateCustomSiren,
			alternate: "k2",
			wantKind:  KeepOriginal,
			wantMsg:   "Custom siren file was not found for 'k1'. Alternate 'k2' also failed; keeping the original sound.",
		},
		{
			name:      "alternate is default sentinel",
			policy:    model.FallbackAlternateCustomSiren,
			alternate: model.DefaultSelection,
			wantKind:  KeepOriginal,
			wantMsg:   "Custom siren file was not found for 'k1'. No alternate is configured; keeping the original sound.",
		},
		{
			name:      "alternate is the failed key",
			policy:    model.FallbackAlternateCustomSiren,
			alternate: "K1",
			wantKind:  KeepOriginal,
			wantMsg:   "Custom siren file was not found for 'k1'. Alternate 'K1' is the same selection; keeping the original sound.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := newFakeLoader()
			loader.fail("/sounds/k1", fmt.Errorf("%w: /sounds/k1", model.ErrFileNotFound))
			if tt.setup != nil {
				tt.setup(loader)
			}
			cfg := configWith("k1", "k2")
			cfg.MissingSelectionFallback = tt.policy
			cfg.AlternateSelection = tt.alternate

			out := newResolver(loader).Resolve("k1", cfg, NewMemo())
			assert.Equal(t, tt.wantKind, out.Kind)
			assert.Equal(t, tt.wantMsg, out.Message)
			if tt.wantKey != "" {
				assert.Equal(t, tt.wantKey, out.Key)
			}
			assert.Equal(t, 1, loader.calls["/sounds/k1"])
			if tt.alternate == "k2" {
				assert.Equal(t, 1, loader.calls["/sounds/k2"])
			} else {
				assert.Zero(t, loader.calls["/sounds/k2"])
			}
		})
	}
}

func TestResolveAlternateDoesNotRecurseFurther(t *testing.T) {
	loader := newFakeLoader()
	cfg := configWith("k1")
	cfg.MissingSelectionFallback = model.FallbackAlternateCustomSiren
	cfg.AlternateSelection = "missing"

	out := newResolver(loader).Resolve("k1", cfg, NewMemo())
	assert.Equal(t, KeepOriginal, out.Kind)
	assert.Contains(t, out.Message, "Alternate 'missing' also failed")
	assert.Equal(t, 1, loader.calls["/sounds/k1"])
}

func TestResolveMissingProfile(t *testing.T) {
	loader := newFakeLoader()
	cfg := configWith()
	cfg.MissingSelectionFallback = model.FallbackMute

	out := newResolver(loader).Resolve("ghost.wav", cfg, NewMemo())
	assert.Equal(t, Mute, out.Kind)
	assert.Equal(t, "Custom siren 'ghost.wav' is not in the catalog. Muting.", out.Message)
	assert.Empty(t, loader.calls)
}

func TestResolveMemoizesPerPass(t *testing.T) {
	loader := newFakeLoader()
	loader.ok("/sounds/us/wail.wav")
	cfg := configWith("us/wail.wav")
	r := newResolver(loader)

	memo := NewMemo()
	first := r.Resolve("us/wail.wav", cfg, memo)
	second := r.Resolve(`US\wail.wav`, cfg, memo)
	assert.Equal(t, Custom, second.Kind)
	assert.Same(t, first.Asset, second.Asset)
	assert.Equal(t, 1, loader.calls["/sounds/us/wail.wav"])

	r.Resolve("us/wail.wav", cfg, NewMemo())
	assert.Equal(t, 2, loader.calls["/sounds/us/wail.wav"], "a new pass resolves again")
}

type mapPaths map[string]string

func (m mapPaths) Resolve(key string) (string, error) {
	if p, ok := m[model.FoldKey(key)]; ok {
		return p, nil
	}
	return "", fmt.Errorf("%w: %s", model.ErrFileNotFound, key)
}

func TestResolveUsesPathResolver(t *testing.T) {
	loader := newFakeLoader()
	loader.ok("/packs/horn.ogg")
	cfg := configWith("__module__/sirens/pack/horn", "gone.wav")
	cfg.MissingSelectionFallback = model.FallbackMute
	paths := mapPaths{"__module__/sirens/pack/horn": "/packs/horn.ogg"}
	r := New(loader, paths, Options{Noun: "siren"})

	out := r.Resolve("__module__/sirens/pack/horn", cfg, NewMemo())
	require.Equal(t, Custom, out.Kind)
	assert.Equal(t, "/packs/horn.ogg", out.SourcePath)

	out = r.Resolve("gone.wav", cfg, NewMemo())
	assert.Equal(t, Mute, out.Kind)
	assert.Equal(t, "Custom siren file was not found for 'gone.wav'. Muting.", out.Message)
	assert.Zero(t, loader.calls["/sounds/gone.wav"])
}

func TestFailureLogThrottle(t *testing.T) {
	now := time.Unix(1000, 0)
	f := newFailureLog(10*time.Second, func() time.Time { return now })

	assert.True(t, f.allow("k1", "broken"))
	assert.False(t, f.allow("K1", "broken"))
	assert.True(t, f.allow("k1", "different"))
	assert.True(t, f.allow("k2", "broken"))

	now = now.Add(9 * time.Second)
	assert.False(t, f.allow("k1", "broken"))

	now = now.Add(time.Second)
	assert.True(t, f.allow("k1", "broken"))
}

func TestFailureLogPrunes(t *testing.T) {
	now := time.Unix(0, 0)
	f := newFailureLog(time.Second, func() time.Time { return now })
	for i := 0; i < throttlePruneThreshold; i++ {
		f.allow(fmt.Sprintf("k%d", i), "x")
	}
	now = now.Add(2 * time.Second)
	f.allow("fresh", "x")
	f.allow("fresh2", "x")
	assert.Len(t, f.last, 2)
}
