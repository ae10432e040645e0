package snapshot

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finops-claw-gang/snapdrift/internal/document"
	"github.com/finops-claw-gang/snapdrift/internal/faults"
	"github.com/finops-claw-gang/snapdrift/internal/testutil"
)

func load(t *testing.T, opts LoadOptions, dir string, side Side) (*ResourceSet, []Warning) {
	t.Helper()
	set, warnings, err := NewLoader(opts, nil).Load(context.Background(), dir, "vms", side)
	require.NoError(t, err)
	return set, warnings
}

func TestLoad_IdentifierStrategy(t *testing.T) {
	t.Parallel()

	tree := testutil.NewTree(t)
	tree.WriteJSON("a.json", map[string]any{"id": "/Subscriptions/S1/VM1", "x": 1})
	tree.WriteJSON("b.json", map[string]any{"id": "/subscriptions/s1/vm2"})
	tree.WriteJSON("noid.json", map[string]any{"name": "orphan"})
	tree.WriteRaw("notes.txt", []byte("ignored"))

	set, warnings := load(t, LoadOptions{Strategy: StrategyIdentifier}, tree.Root, SideBaseline)
	assert.Empty(t, warnings)
	assert.Equal(t, []string{"/subscriptions/s1/vm1", "/subscriptions/s1/vm2"}, set.Keys())

	r, ok := set.Get("/subscriptions/s1/vm1")
	require.True(t, ok)
	assert.Equal(t, "a.json", r.Name)
	assert.Equal(t, filepath.Join(tree.Root, "a.json"), r.Path)
	assert.Len(t, r.Digest, 64)
	assert.Equal(t, `{"id":"/Subscriptions/S1/VM1","x":1}`, string(r.Canonical))
	assert.Equal(t, "vms", set.Category())
	assert.Equal(t, SideBaseline, set.Side())
}

func TestLoad_MissingIdentifierIsLoggedNotReported(t *testing.T) {
	t.Parallel()

	tree := testutil.NewTree(t)
	tree.WriteJSON("a.json", map[string]any{"id": "vm-a"})
	tree.WriteJSON("noid.json", map[string]any{"name": "orphan"})

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	set, warnings, err := NewLoader(LoadOptions{Strategy: StrategyIdentifier}, logger).
		Load(context.Background(), tree.Root, "vms", SideBaseline)
	require.NoError(t, err)

	assert.Empty(t, warnings)
	assert.Equal(t, []string{"vm-a"}, set.Keys())
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), "document has no identifier, excluded")
	assert.Contains(t, buf.String(), "noid.json")
}

func TestLoad_ExactAndPrefixStrategies(t *testing.T) {
	t.Parallel()

	tree := testutil.NewTree(t)
	tree.WriteJSON("vm-web-01.json", map[string]any{"id": "1"})
	tree.WriteJSON("disk-os.json", map[string]any{"id": "2"})
	tree.WriteJSON("summary.json", map[string]any{"count": 2})

	exact, _ := load(t, LoadOptions{Strategy: StrategyExactName}, tree.Root, SideCurrent)
	assert.Equal(t, []string{"disk-os.json", "summary.json", "vm-web-01.json"}, exact.Keys())

	prefix, warnings := load(t, LoadOptions{Strategy: StrategyPrefix}, tree.Root, SideCurrent)
	assert.Empty(t, warnings)
	assert.Equal(t, []string{"disk", "summary", "vm"}, prefix.Keys())
}

func TestLoad_PrefixAmbiguityPicksLexicographicFirst(t *testing.T) {
	t.Parallel()

	tree := testutil.NewTree(t)
	tree.WriteJSON("vm-b.json", map[string]any{"v": "b"})
	tree.WriteJSON("vm-a.json", map[string]any{"v": "a"})

	set, warnings := load(t, LoadOptions{Strategy: StrategyPrefix}, tree.Root, SideBaseline)
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnIdentityAmbiguity, warnings[0].Kind)
	assert.Equal(t, "vm", warnings[0].Key)

	r, ok := set.Get("vm")
	require.True(t, ok)
	assert.Equal(t, "vm-a.json", r.Name)
}

func TestLoad_AmbiguityExclude(t *testing.T) {
	t.Parallel()

	tree := testutil.NewTree(t)
	tree.WriteJSON("one.json", map[string]any{"id": "VM1"})
	tree.WriteJSON("two.json", map[string]any{"id": "vm1"})
	tree.WriteJSON("three.json", map[string]any{"id": "vm3"})

	set, warnings := load(t, LoadOptions{Ambiguity: AmbiguityExclude}, tree.Root, SideBaseline)
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnIdentityAmbiguity, warnings[0].Kind)
	assert.Contains(t, warnings[0].Message, "excluded")
	assert.Equal(t, []string{"vm3"}, set.Keys())
}

func TestLoad_ParseErrorIsWarning(t *testing.T) {
	t.Parallel()

	tree := testutil.NewTree(t)
	tree.WriteRaw("broken.json", []byte(`{"id": "vm1",`))
	tree.WriteJSON("ok.json", map[string]any{"id": "vm2"})

	set, warnings := load(t, LoadOptions{}, tree.Root, SideCurrent)
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnParseError, warnings[0].Kind)
	assert.Equal(t, filepath.Join(tree.Root, "broken.json"), warnings[0].Path)
	assert.Equal(t, []string{"vm2"}, set.Keys())
}

func TestLoad_MissingDirIsFatal(t *testing.T) {
	t.Parallel()

	_, _, err := NewLoader(LoadOptions{}, nil).Load(context.Background(), filepath.Join(t.TempDir(), "nope"), "vms", SideBaseline)
	require.Error(t, err)
	assert.True(t, faults.IsCategory(err, faults.FatalInputError))
}

func TestLoad_BadPatternIsConfigError(t *testing.T) {
	t.Parallel()

	_, err := ListNames(t.TempDir(), "[")
	require.Error(t, err)
	assert.True(t, faults.IsCategory(err, faults.ConfigError))
}

func TestLoad_FilterAppliesBeforeComparison(t *testing.T) {
	t.Parallel()

	filter, err := document.CompileFilter(`del(.etag)`)
	require.NoError(t, err)

	tree := testutil.NewTree(t)
	tree.WriteJSON("a.json", map[string]any{"id": "vm1", "etag": "W/1", "size": 1})

	set, _ := load(t, LoadOptions{Filter: filter}, tree.Root, SideBaseline)
	r, ok := set.Get("vm1")
	require.True(t, ok)
	_, hasEtag := r.Doc.Field("etag")
	assert.False(t, hasEtag)
	assert.Contains(t, string(r.Text), `"size": 1`)
}

func TestLoad_SkipsAssociationFiles(t *testing.T) {
	t.Parallel()

	tree := testutil.NewTree(t)
	tree.WriteJSON("web.json", map[string]any{"id": "VM-Web"})
	tree.WriteJSON("web_instanceView.json", map[string]any{"statuses": []any{"running"}})

	opts := LoadOptions{AssociationSuffixes: []string{"_instanceView", "_extensions"}}
	set, warnings := load(t, opts, tree.Root, SideBaseline)
	assert.Empty(t, warnings)
	assert.Equal(t, []string{"vm-web"}, set.Keys())
}

func TestLoadAssociations_KeyedByParent(t *testing.T) {
	t.Parallel()

	tree := testutil.NewTree(t)
	tree.WriteJSON("web.json", map[string]any{"id": "VM-Web"})
	tree.WriteJSON("web_instanceView.json", map[string]any{"statuses": []any{"running"}})
	tree.WriteJSON("db_instanceView.json", map[string]any{"statuses": []any{"stopped"}})
	tree.WriteJSON("web_extensions.json", []any{})

	opts := LoadOptions{AssociationSuffixes: []string{"_instanceView", "_extensions"}}
	set, warnings, err := NewLoader(opts, nil).LoadAssociations(context.Background(), tree.Root, "vms/instanceView", SideCurrent, "_instanceView")
	require.NoError(t, err)

	assert.Equal(t, []string{"vm-web"}, set.Keys())
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnMissingBase, warnings[0].Kind)
	assert.Equal(t, filepath.Join(tree.Root, "db_instanceView.json"), warnings[0].Path)
}

type countingWaiter struct {
	calls chan string
}

func (w *countingWaiter) Wait(_ context.Context, root string) error {
	w.calls <- root
	return nil
}

type failingWaiter struct{}

func (failingWaiter) Wait(context.Context, string) error { return errors.New("throttled") }

func TestLoad_ReadsGatedByLimiter(t *testing.T) {
	t.Parallel()

	tree := testutil.NewTree(t)
	for _, id := range []string{"a", "b", "c"} {
		tree.WriteJSON(id+".json", map[string]any{"id": id})
	}

	w := &countingWaiter{calls: make(chan string, 10)}
	set, _ := load(t, LoadOptions{Limiter: w, Concurrency: 2}, tree.Root, SideBaseline)
	assert.Equal(t, 3, set.Len())
	assert.Len(t, w.calls, 3)

	_, _, err := NewLoader(LoadOptions{Limiter: failingWaiter{}}, nil).Load(context.Background(), tree.Root, "vms", SideBaseline)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestPrefixKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "vm", PrefixKey("vm-web-01.json", "-"))
	assert.Equal(t, "summary", PrefixKey("summary.json", "-"))
	assert.Equal(t, "vm", PrefixKey("vm_web.json", "_"))
}

func TestParseOptions(t *testing.T) {
	t.Parallel()

	s, err := ParseStrategy(" Prefix ")
	require.NoError(t, err)
	assert.Equal(t, StrategyPrefix, s)
	assert.True(t, s.MatchesByName())
	assert.False(t, StrategyIdentifier.MatchesByName())

	_, err = ParseStrategy("fuzzy")
	assert.True(t, faults.IsCategory(err, faults.ConfigError))

	a, err := ParseAmbiguity("exclude")
	require.NoError(t, err)
	assert.Equal(t, AmbiguityExclude, a)
	_, err = ParseAmbiguity("merge")
	assert.Error(t, err)

	m, err := ParseEqualityMode("CANONICAL")
	require.NoError(t, err)
	assert.Equal(t, EqualityCanonical, m)
	_, err = ParseEqualityMode("bytes")
	assert.Error(t, err)
}

func resource(t *testing.T, key, raw string) Resource {
	t.Helper()
	doc, err := document.Parse([]byte(raw))
	require.NoError(t, err)
	canonical, digest := Canonicalize(doc)
	return Resource{Key: key, Name: key + ".json", Doc: doc, Canonical: canonical, Digest: digest, Text: []byte(raw)}
}

func TestReconcile_EndToEndScenario(t *testing.T) {
	t.Parallel()

	base := NewResourceSet("vms", SideBaseline,
		resource(t, "vm1", `{"id":"vm1"}`),
		resource(t, "vm2", `{"id":"vm2","hardwareProfile":{"vmSize":"Standard_D2s_v3"}}`),
	)
	current := NewResourceSet("vms", SideCurrent,
		resource(t, "vm2", `{"id":"vm2","hardwareProfile":{"vmSize":"Standard_D4s_v3"}}`),
		resource(t, "vm3", `{"id":"vm3"}`),
	)

	res := Reconcile(base, current, EqualityStructural)
	assert.Equal(t, []string{"vm3"}, res.Added)
	assert.Equal(t, []string{"vm1"}, res.Removed)
	assert.Equal(t, []string{"vm2"}, res.Changed)
	assert.Empty(t, res.Unchanged)
	assert.False(t, res.Empty())

	assert.Equal(t, res, Reconcile(base, current, EqualityStructural))
}

func TestReconcile_Partition(t *testing.T) {
	t.Parallel()

	base := NewResourceSet("c", SideBaseline,
		resource(t, "a", `1`), resource(t, "b", `{"x":1}`), resource(t, "c", `[1]`), resource(t, "e", `null`),
	)
	current := NewResourceSet("c", SideCurrent,
		resource(t, "b", `{"x":1.0}`), resource(t, "c", `[2]`), resource(t, "d", `"d"`), resource(t, "e", `null`),
	)

	res := Reconcile(base, current, EqualityStructural)

	seen := map[string]int{}
	for _, list := range [][]string{res.Added, res.Removed, res.Changed, res.Unchanged} {
		assert.True(t, sort.StringsAreSorted(list))
		for _, k := range list {
			seen[k]++
		}
	}
	assert.Equal(t, map[string]int{"a": 1, "b": 1, "c": 1, "d": 1, "e": 1}, seen)
	assert.Equal(t, []string{"b", "e"}, res.Unchanged)
}

func TestReconcile_CanonicalMode(t *testing.T) {
	t.Parallel()

	base := NewResourceSet("c", SideBaseline, resource(t, "k", `{"b":1,"a":2.0}`), resource(t, "n", `{"v":1}`))
	current := NewResourceSet("c", SideCurrent, resource(t, "k", `{"a":2,"b":1}`), resource(t, "n", `{"v":1,"w":null}`))

	// canonical mode keeps explicit nulls, structural mode treats them as absent
	canonical := Reconcile(base, current, EqualityCanonical)
	assert.Equal(t, []string{"k"}, canonical.Unchanged)
	assert.Equal(t, []string{"n"}, canonical.Changed)

	structural := Reconcile(base, current, EqualityStructural)
	assert.Equal(t, []string{"k", "n"}, structural.Unchanged)
	assert.True(t, structural.Empty())
}

func TestReconcile_NilSets(t *testing.T) {
	t.Parallel()

	current := NewResourceSet("c", SideCurrent, resource(t, "x", `1`))
	res := Reconcile(nil, current, EqualityStructural)
	assert.Equal(t, []string{"x"}, res.Added)
	assert.True(t, Reconcile(nil, nil, EqualityStructural).Empty())
}

func TestSortWarnings(t *testing.T) {
	t.Parallel()

	ws := []Warning{
		{Category: "vms", Side: SideCurrent, Path: "b"},
		{Category: "disks", Side: SideCurrent, Path: "z"},
		{Category: "vms", Side: SideBaseline, Path: "c"},
		{Category: "vms", Side: SideBaseline, Path: "a"},
	}
	SortWarnings(ws)
	got := make([]string, len(ws))
	for i, w := range ws {
		got[i] = w.Category + "/" + string(w.Side) + "/" + w.Path
	}
	assert.Equal(t, []string{"disks/current/z", "vms/baseline/a", "vms/baseline/c", "vms/current/b"}, got)
}

func TestResolveUnder(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	got, err := ResolveUnder(root, "pre/2026-01-01")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "pre", "2026-01-01"), got)

	got, err = ResolveUnder(root, filepath.Join(root, "post"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "post"), got)

	for _, bad := range []string{"../etc", "pre/../../x", "/etc/passwd", ""} {
		_, err := ResolveUnder(root, bad)
		assert.True(t, faults.IsCategory(err, faults.ConfigError), bad)
	}
}
