package engine

import (
	"context"
	"os"

	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/Carmen-Shannon/ab3de/engine/texture"
	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

// Procedural fallbacks used when no asset file is configured.
const (
	skyWidth       = 2048
	skyHeight      = 1024
	checkerSize    = 256
	checkerCells   = 8
	maxTextureEdge = 2048
)

// AssetSources names the files the engine decodes at startup. Empty paths fall back to
// procedural assets.
type AssetSources struct {
	// EnvironmentHDR is a Radiance .hdr equirectangular panorama.
	EnvironmentHDR string
	// Diffuse is the diffuse texture of the demo model.
	Diffuse string
	// Normal is the tangent-space normal map of the demo model.
	Normal string
}

// stagedAssets is the CPU-side pixel data waiting for upload.
type stagedAssets struct {
	environment common.FloatTextureStagingData
	diffuse     common.TextureStagingData
	normal      common.TextureStagingData
}

// stageAssets decodes every configured asset concurrently. Nothing touches the GPU here.
func stageAssets(ctx context.Context, sources AssetSources) (stagedAssets, error) {
	var staged stagedAssets
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if sources.EnvironmentHDR == "" {
			staged.environment = texture.SkyGradient(skyWidth, skyHeight)
			return nil
		}
		data, err := readAsset(ctx, sources.EnvironmentHDR)
		if err != nil {
			return err
		}
		staged.environment, err = texture.DecodeHDR(data)
		return errors.Wrapf(err, "environment %s", sources.EnvironmentHDR)
	})

	g.Go(func() error {
		if sources.Diffuse == "" {
			staged.diffuse = texture.CheckerTexture(checkerSize, checkerCells)
			return nil
		}
		var err error
		staged.diffuse, err = decodeImageFile(ctx, sources.Diffuse)
		return err
	})

	g.Go(func() error {
		if sources.Normal == "" {
			staged.normal = texture.FlatNormalTexture(4)
			return nil
		}
		var err error
		staged.normal, err = decodeImageFile(ctx, sources.Normal)
		return err
	})

	if err := g.Wait(); err != nil {
		return stagedAssets{}, err
	}
	return staged, nil
}

func readAsset(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read asset %s", path)
	}
	return data, nil
}

func decodeImageFile(ctx context.Context, path string) (common.TextureStagingData, error) {
	if err := ctx.Err(); err != nil {
		return common.TextureStagingData{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return common.TextureStagingData{}, errors.Wrapf(err, "open image %s", path)
	}
	defer f.Close()

	staging, err := texture.DecodeImage(f, maxTextureEdge)
	if err != nil {
		return common.TextureStagingData{}, errors.Wrapf(err, "image %s", path)
	}
	return staging, nil
}
