package assetgraph

import (
	"context"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/gosuda/fontmanifest/internal/asset"
)

// Memo caches expansions by entry list. Entry order decides walk order, so
// the same entries in another order are a different key. Callers asking for
// the same entries while a walk is in flight wait for that walk instead of
// starting their own.
// Failed walks are not cached. A Memo belongs to one build graph and must not
// outlive it, since entries are identified by path only.
type Memo struct {
	expander Expander
	group    singleflight.Group

	mu    sync.RWMutex
	cache map[string][]asset.OutputAsset
}

// Compile-time interface check.
var _ Expander = (*Memo)(nil) //nolint:gochecknoglobals // compile-time check

// NewMemo wraps expander; nil means a default Traversal.
func NewMemo(expander Expander) *Memo {
	if expander == nil {
		expander = Traversal{}
	}
	return &Memo{
		expander: expander,
		cache:    make(map[string][]asset.OutputAsset),
	}
}

// Expand returns the cached expansion of entries, computing it at most once
// for concurrent callers. The returned slice is a copy.
func (m *Memo) Expand(ctx context.Context, entries []asset.OutputAsset) ([]asset.OutputAsset, error) {
	key := cacheKey(entries)

	m.mu.RLock()
	cached, ok := m.cache[key]
	m.mu.RUnlock()
	if ok {
		return slices.Clone(cached), nil
	}

	// The shared walk must not die with the first caller's context; each
	// caller stops waiting on its own cancellation instead.
	walkCtx := context.WithoutCancel(ctx)
	ch := m.group.DoChan(key, func() (any, error) {
		all, err := m.expander.Expand(walkCtx, entries)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.cache[key] = all
		m.mu.Unlock()
		return all, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		all, _ := res.Val.([]asset.OutputAsset)
		return slices.Clone(all), nil
	}
}

// Len reports how many entry lists are cached.
func (m *Memo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cache)
}

func cacheKey(entries []asset.OutputAsset) string {
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e != nil {
			keys = append(keys, e.Path().String())
		}
	}
	return strings.Join(keys, "\x00")
}
