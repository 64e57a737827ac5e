package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"soundswap/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func syncRequest(dir string, template *model.PlaybackProfile) SyncRequest {
	return SyncRequest{
		Domain:      "sirens",
		LocalDir:    dir,
		Template:    template,
		DisplayName: stemName,
	}
}

func realTemplate() *model.PlaybackProfile {
	p := model.FallbackProfile()
	p.Volume = 0.6
	p.MaxDistance = 320
	p.Loop = true
	return &p
}

func TestSynchronizeAddRemoveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.wav")
	bPath := touch(t, dir, "b.ogg")
	touch(t, dir, "readme.md")

	cfg := model.NewDomainConfig()
	res, err := Synchronize(cfg, syncRequest(dir, realTemplate()))
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, 2, res.FoundFileCount)
	assert.Equal(t, []string{"a.wav", "b.ogg"}, res.AddedKeys)
	assert.Empty(t, res.RemovedKeys)

	entry, ok := cfg.Profiles.Get("a.wav")
	require.True(t, ok)
	assert.Equal(t, "a", entry.DisplayName)
	assert.Equal(t, filepath.Join(dir, "a.wav"), entry.SourcePath)
	assert.True(t, entry.Profile.ApproxEqual(*realTemplate()))

	cfg.DefaultSelection = "b.ogg"
	cfg.AlternateSelection = "B.OGG"
	cfg.TargetSelections["Police"] = "b.ogg"
	cfg.TargetSelections["Fire"] = "a.wav"
	cfg.EditingSelection = "b.ogg"

	res, err = Synchronize(cfg, syncRequest(dir, realTemplate()))
	require.NoError(t, err)
	assert.False(t, res.Changed, "second run with no disk changes is a no-op")

	require.NoError(t, os.Remove(bPath))
	res, err = Synchronize(cfg, syncRequest(dir, realTemplate()))
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Empty(t, res.AddedKeys)
	assert.Equal(t, []string{"b.ogg"}, res.RemovedKeys)
	assert.False(t, cfg.Profiles.Has("b.ogg"))

	assert.Equal(t, model.DefaultSelection, cfg.DefaultSelection)
	assert.Equal(t, model.DefaultSelection, cfg.AlternateSelection)
	assert.Equal(t, model.DefaultSelection, cfg.TargetSelections["Police"])
	assert.Equal(t, "a.wav", cfg.TargetSelections["Fire"])
	assert.Equal(t, "a.wav", cfg.EditingSelection, "editing pointer moves to first available key")
}

func TestSynchronizeRename(t *testing.T) {
	dir := t.TempDir()
	old := touch(t, dir, "old/wail.wav")

	cfg := model.NewDomainConfig()
	_, err := Synchronize(cfg, syncRequest(dir, realTemplate()))
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "new"), 0755))
	require.NoError(t, os.Rename(old, filepath.Join(dir, "new", "wail.wav")))

	res, err := Synchronize(cfg, syncRequest(dir, realTemplate()))
	require.NoError(t, err)
	assert.Equal(t, []string{"new/wail.wav"}, res.AddedKeys)
	assert.Equal(t, []string{"old/wail.wav"}, res.RemovedKeys)
	assert.Equal(t, []string{"new/wail.wav"}, cfg.Profiles.Keys())
}

func TestSynchronizeDeferredTemplate(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "untouched.wav")
	touch(t, dir, "edited.wav")

	cfg := model.NewDomainConfig()
	res, err := Synchronize(cfg, syncRequest(dir, nil))
	require.NoError(t, err)
	assert.Len(t, res.AddedKeys, 2)
	assert.Equal(t, []string{"edited.wav", "untouched.wav"}, cfg.PendingTemplate())

	untouched, _ := cfg.Profiles.Get("untouched.wav")
	assert.True(t, untouched.Profile.ApproxEqual(model.FallbackProfile()))

	// 用户在模板可用之前修改了一个条目
	edited, _ := cfg.Profiles.Get("edited.wav")
	edited.Profile.Pitch = 1.5
	cfg.Profiles.Put(edited)

	// 模板仍不可用时待处理集合保持不变
	_, err = Synchronize(cfg, syncRequest(dir, nil))
	require.NoError(t, err)
	assert.Len(t, cfg.PendingTemplate(), 2)

	res, err = Synchronize(cfg, syncRequest(dir, realTemplate()))
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Empty(t, cfg.PendingTemplate())

	untouched, _ = cfg.Profiles.Get("untouched.wav")
	assert.True(t, untouched.Profile.ApproxEqual(*realTemplate()))
	edited, _ = cfg.Profiles.Get("edited.wav")
	assert.Equal(t, 1.5, edited.Profile.Pitch)
	assert.Equal(t, 500.0, edited.Profile.MaxDistance)

	// 再次同步是幂等的
	res, err = Synchronize(cfg, syncRequest(dir, realTemplate()))
	require.NoError(t, err)
	assert.False(t, res.Changed)
	untouched, _ = cfg.Profiles.Get("untouched.wav")
	assert.True(t, untouched.Profile.ApproxEqual(*realTemplate()))
}

func TestSynchronizeExternalEntries(t *testing.T) {
	dir := t.TempDir()
	modules := t.TempDir()
	touch(t, dir, "local.wav")
	touch(t, filepath.Join(modules, "pack"), "horn.ogg")
	touch(t, filepath.Join(modules, "pack"), "bell.wav")
	writeManifest(t, modules, "pack", `{
		"schemaVersion": 1, "moduleId": "pack",
		"sirens": [
			{"key": "horn", "file": "horn.ogg", "profile": {"volume": 0.3, "pitch": 1, "maxDistance": 90}},
			{"key": "bell", "file": "bell.wav"}
		]
	}`)

	mods, err := ReadModules(modules)
	require.NoError(t, err)
	reg := NewRegistry(mods)

	cfg := model.NewDomainConfig()
	req := syncRequest(dir, nil)
	req.External = reg.Entries(SegmentSirens)
	req.SeedProfile = reg.SeedProfile

	res, err := Synchronize(cfg, req)
	require.NoError(t, err)
	assert.Equal(t, 3, res.FoundFileCount)
	assert.Equal(t, []string{
		"__module__/sirens/pack/bell",
		"__module__/sirens/pack/horn",
		"local.wav",
	}, res.AddedKeys)

	horn, ok := cfg.Profiles.Get("__module__/sirens/pack/horn")
	require.True(t, ok)
	assert.Equal(t, "pack", horn.OriginModuleID)
	assert.Equal(t, 0.3, horn.Profile.Volume, "explicit seed wins over template")

	bell, ok := cfg.Profiles.Get("__module__/sirens/pack/bell")
	require.True(t, ok)
	assert.True(t, bell.IsExternal())
	assert.True(t, bell.Profile.ApproxEqual(model.FallbackProfile()))

	// 只有本地条目进入待处理模板集合
	assert.Equal(t, []string{"local.wav"}, cfg.PendingTemplate())

	// 删除内容包后其条目被移除
	require.NoError(t, os.RemoveAll(filepath.Join(modules, "pack")))
	mods, err = ReadModules(modules)
	require.NoError(t, err)
	req.External = NewRegistry(mods).Entries(SegmentSirens)
	res, err = Synchronize(cfg, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"__module__/sirens/pack/bell", "__module__/sirens/pack/horn"}, res.RemovedKeys)
	assert.Equal(t, []string{"local.wav"}, cfg.Profiles.Keys())
}

func TestSynchronizeLocalShadowsModuleKey(t *testing.T) {
	dir := t.TempDir()
	local := touch(t, dir, "__module__/sirens/pack/bell.wav")

	cfg := model.NewDomainConfig()
	req := syncRequest(dir, realTemplate())
	req.External = []ModuleEntry{{
		Key:      "__module__/sirens/pack/BELL.wav",
		Path:     "/elsewhere/bell.wav",
		ModuleID: "pack",
	}}

	res, err := Synchronize(cfg, req)
	require.NoError(t, err)
	assert.Equal(t, 1, res.FoundFileCount)
	assert.Equal(t, []string{"__module__/sirens/pack/bell.wav"}, res.AddedKeys)

	entry, ok := cfg.Profiles.Get("__module__/sirens/pack/bell.wav")
	require.True(t, ok)
	assert.Equal(t, local, entry.SourcePath)
	assert.Empty(t, entry.OriginModuleID)
}

func TestSynchronizeMissingFolder(t *testing.T) {
	cfg := model.NewDomainConfig()
	cfg.Profiles.Put(model.ProfileEntry{Key: "gone.wav", Profile: model.FallbackProfile()})

	res, err := Synchronize(cfg, syncRequest(filepath.Join(t.TempDir(), "absent"), realTemplate()))
	require.NoError(t, err)
	assert.Equal(t, 0, res.FoundFileCount)
	assert.Equal(t, []string{"gone.wav"}, res.RemovedKeys)
}

func TestPathResolver(t *testing.T) {
	dir := t.TempDir()
	local := touch(t, dir, "us/wail.wav")

	reg := NewRegistry([]*Module{{
		ID: "pack",
		Entries: map[string][]ModuleEntry{
			SegmentSirens: {{Key: "__module__/sirens/pack/horn", Path: "/packs/horn.ogg", ModuleID: "pack"}},
		},
	}})
	r := NewPathResolver(dir, reg)

	path, err := r.Resolve(`us\wail.wav`)
	require.NoError(t, err)
	assert.Equal(t, local, path)

	path, err = r.Resolve("__module__/sirens/pack/HORN")
	require.NoError(t, err)
	assert.Equal(t, "/packs/horn.ogg", path)

	_, err = r.Resolve("nope.wav")
	assert.ErrorIs(t, err, model.ErrFileNotFound)

	_, err = r.Resolve("../escape.wav")
	assert.Error(t, err)
}
