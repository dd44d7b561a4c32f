package share

import (
	"context"
	"fmt"

	"agriledger/internal/config"
	"agriledger/internal/ledger"
)

// NewSharerFromConfig creates a Sharer implementation based on the share config type.
func NewSharerFromConfig(ctx context.Context, cfg config.ShareConfig, logger ledger.Logger) (ledger.Sharer, error) {
	switch cfg.Type {
	case "", "none":
		return NoneSharer{}, nil
	case "memory":
		return NewMemorySharer(), nil
	case "filesystem":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("filesystem share requires dir to be set")
		}
		return NewFileSystemSharer(cfg.Dir, logger), nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 share requires s3_bucket to be set")
		}
		return NewS3Sharer(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown share type: %s", cfg.Type)
	}
}
