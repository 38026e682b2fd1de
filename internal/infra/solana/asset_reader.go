// internal/infra/solana/asset_reader.go
package solana

import (
	"context"
	"fmt"

	usecase "fableforge/internal/application/usecase"
)

// AssetReader adapts the DAS getAsset result to the usecase view.
type AssetReader struct {
	Reader LedgerReader
}

var _ usecase.AssetReadPort = (*AssetReader)(nil)

func NewAssetReader(reader LedgerReader) *AssetReader {
	return &AssetReader{Reader: reader}
}

// GetAsset implements usecase.AssetReadPort. Returns (nil, nil) while the
// index has not caught up with a very recent mint.
func (r *AssetReader) GetAsset(ctx context.Context, assetID string) (*usecase.ChainAsset, error) {
	if r == nil || r.Reader == nil {
		return nil, fmt.Errorf("asset reader: not configured")
	}

	a, err := r.Reader.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, nil
	}

	return &usecase.ChainAsset{
		ID:         a.ID,
		Owner:      a.Ownership.Owner,
		Frozen:     a.Ownership.Frozen,
		Burnt:      a.Burnt,
		Compressed: a.Compression.Compressed,
	}, nil
}
