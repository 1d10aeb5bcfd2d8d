package assetgraph_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/fontmanifest/internal/asset"
	"github.com/gosuda/fontmanifest/internal/assetgraph"
	"github.com/gosuda/fontmanifest/internal/fspath"
)

func node(p string, refs ...asset.OutputAsset) *asset.StaticAsset {
	return asset.NewStatic(fspath.New("output", p), refs...)
}

// failingAsset returns an error from References.
type failingAsset struct {
	path fspath.Path
	err  error
}

func (f *failingAsset) Path() fspath.Path { return f.path }

func (f *failingAsset) References(context.Context) ([]asset.OutputAsset, error) {
	return nil, f.err
}

// ---------------------------------------------------------------------------
// Traversal
// ---------------------------------------------------------------------------

func TestTraversal_Expand_BreadthFirstOrder(t *testing.T) {
	t.Parallel()

	fontA := node("/.next/static/media/a.woff2")
	fontB := node("/.next/static/media/b.woff2")
	css := node("/.next/static/css/app.css", fontA, fontB)
	chunk := node("/.next/static/chunks/page.js", css)
	main := node("/.next/static/chunks/main.js", chunk)
	other := node("/.next/static/chunks/other.js")

	got, err := assetgraph.Traversal{}.Expand(context.Background(), []asset.OutputAsset{main, other})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"[output]/.next/static/chunks/main.js",
		"[output]/.next/static/chunks/other.js",
		"[output]/.next/static/chunks/page.js",
		"[output]/.next/static/css/app.css",
		"[output]/.next/static/media/a.woff2",
		"[output]/.next/static/media/b.woff2",
	}, asset.Paths(got))
}

func TestTraversal_Expand_DeduplicatesAndHandlesCycles(t *testing.T) {
	t.Parallel()

	shared := node("/shared.css")
	a := node("/a.js", shared)
	b := node("/b.js", shared, a)
	a.Link(b) // cycle a <-> b

	got, err := assetgraph.Traversal{Concurrency: 1}.Expand(context.Background(), []asset.OutputAsset{a, a})
	require.NoError(t, err)

	assert.Equal(t, []string{"[output]/a.js", "[output]/shared.css", "[output]/b.js"}, asset.Paths(got))
}

func TestTraversal_Expand_Deterministic(t *testing.T) {
	t.Parallel()

	var leaves []asset.OutputAsset
	for _, p := range []string{"/m/1.woff", "/m/2.woff", "/m/3.woff", "/m/4.woff", "/m/5.woff"} {
		leaves = append(leaves, node(p))
	}
	root := node("/root.js", leaves...)

	first, err := assetgraph.Traversal{}.Expand(context.Background(), []asset.OutputAsset{root})
	require.NoError(t, err)

	for range 20 {
		again, err := assetgraph.Traversal{Concurrency: 3}.Expand(context.Background(), []asset.OutputAsset{root})
		require.NoError(t, err)
		assert.Equal(t, asset.Paths(first), asset.Paths(again))
	}
}

func TestTraversal_Expand_EmptyAndNil(t *testing.T) {
	t.Parallel()

	got, err := assetgraph.Traversal{}.Expand(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = assetgraph.Traversal{}.Expand(context.Background(), []asset.OutputAsset{nil, node("/x")})
	require.NoError(t, err)
	assert.Equal(t, []string{"[output]/x"}, asset.Paths(got))
}

func TestTraversal_Expand_PropagatesReferenceError(t *testing.T) {
	t.Parallel()

	boom := errors.New("graph unreadable")
	bad := &failingAsset{path: fspath.New("output", "/bad.js"), err: boom}
	root := node("/root.js", bad)

	_, err := assetgraph.Traversal{}.Expand(context.Background(), []asset.OutputAsset{root})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "/bad.js")
}

func TestTraversal_Expand_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := assetgraph.Traversal{}.Expand(ctx, []asset.OutputAsset{node("/a.js", node("/b.js"))})
	assert.ErrorIs(t, err, context.Canceled)
}

// ---------------------------------------------------------------------------
// Memo
// ---------------------------------------------------------------------------

// countingExpander counts calls and optionally blocks until released.
type countingExpander struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func (c *countingExpander) Expand(ctx context.Context, entries []asset.OutputAsset) ([]asset.OutputAsset, error) {
	c.calls.Add(1)
	if c.release != nil {
		<-c.release
	}
	if c.err != nil {
		return nil, c.err
	}
	return assetgraph.Traversal{}.Expand(ctx, entries)
}

func TestMemo_CachesResult(t *testing.T) {
	t.Parallel()

	inner := &countingExpander{}
	memo := assetgraph.NewMemo(inner)
	entries := []asset.OutputAsset{node("/a.js", node("/a.woff2"))}

	first, err := memo.Expand(context.Background(), entries)
	require.NoError(t, err)
	second, err := memo.Expand(context.Background(), entries)
	require.NoError(t, err)

	assert.Equal(t, asset.Paths(first), asset.Paths(second))
	assert.Equal(t, int32(1), inner.calls.Load())
	assert.Equal(t, 1, memo.Len())
}

func TestMemo_ReturnsCopies(t *testing.T) {
	t.Parallel()

	memo := assetgraph.NewMemo(nil)
	entries := []asset.OutputAsset{node("/a.js", node("/b.js"))}

	first, err := memo.Expand(context.Background(), entries)
	require.NoError(t, err)
	first[0] = node("/mutated.js")

	second, err := memo.Expand(context.Background(), entries)
	require.NoError(t, err)
	assert.Equal(t, "[output]/a.js", second[0].Path().String())
}

func TestMemo_SharesInFlightWalk(t *testing.T) {
	t.Parallel()

	inner := &countingExpander{release: make(chan struct{})}
	memo := assetgraph.NewMemo(inner)
	entries := []asset.OutputAsset{node("/a.js")}

	const callers = 8
	var wg sync.WaitGroup
	results := make([][]asset.OutputAsset, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := memo.Expand(context.Background(), entries)
			assert.NoError(t, err)
			results[i] = res
		}()
	}

	// Give every caller a chance to join the flight before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(inner.release)
	wg.Wait()

	assert.LessOrEqual(t, inner.calls.Load(), int32(2))
	for _, res := range results {
		assert.Equal(t, []string{"[output]/a.js"}, asset.Paths(res))
	}
}

func TestMemo_DoesNotCacheFailures(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	inner := &countingExpander{err: boom}
	memo := assetgraph.NewMemo(inner)
	entries := []asset.OutputAsset{node("/a.js")}

	_, err := memo.Expand(context.Background(), entries)
	require.ErrorIs(t, err, boom)

	inner.err = nil
	got, err := memo.Expand(context.Background(), entries)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestMemo_CallerCancellation(t *testing.T) {
	t.Parallel()

	inner := &countingExpander{release: make(chan struct{})}
	defer close(inner.release)
	memo := assetgraph.NewMemo(inner)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := memo.Expand(ctx, []asset.OutputAsset{node("/a.js")})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemo_EntryOrderIsPartOfKey(t *testing.T) {
	t.Parallel()

	a := node("/a.js")
	b := node("/b.js")
	memo := assetgraph.NewMemo(nil)

	ab, err := memo.Expand(context.Background(), []asset.OutputAsset{a, b})
	require.NoError(t, err)
	ba, err := memo.Expand(context.Background(), []asset.OutputAsset{b, a})
	require.NoError(t, err)

	assert.Equal(t, []string{"[output]/a.js", "[output]/b.js"}, asset.Paths(ab))
	assert.Equal(t, []string{"[output]/b.js", "[output]/a.js"}, asset.Paths(ba))
	assert.Equal(t, 2, memo.Len())
}
