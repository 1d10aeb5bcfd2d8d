package manifest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/fontmanifest/internal/asset"
	"github.com/gosuda/fontmanifest/internal/assetgraph"
	"github.com/gosuda/fontmanifest/internal/fonts"
	"github.com/gosuda/fontmanifest/internal/fspath"
)

func TestAssemble_SerializationFailureIsDistinct(t *testing.T) {
	t.Parallel()

	extractor, err := fonts.NewExtractor()
	require.NoError(t, err)

	boom := errors.New("unsupported value")
	asm := NewAssembler(assetgraph.Traversal{}, extractor)
	asm.encode = func(FontManifest) ([]byte, error) { return nil, boom }

	art, err := asm.Assemble(context.Background(), Request{
		ClientRoot:   fspath.New("output", "/out"),
		NodeRoot:     fspath.New("output", "/out"),
		Pathname:     "/",
		OriginalName: "font",
		ClientAssets: []asset.OutputAsset{asset.NewStatic(fspath.New("output", "/out/a.woff2"))},
		Route:        AppRoute{Type: "rsc"},
	})

	assert.Nil(t, art)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSerialize)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrResolve)
}
