package share

import (
	"context"

	"agriledger/internal/ledger"
)

// NoneSharer is used when no share target is configured.
type NoneSharer struct{}

func (NoneSharer) Available(context.Context) bool { return false }

func (NoneSharer) Share(context.Context, string, string) error {
	return ledger.ErrShareUnavailable
}

var _ ledger.Sharer = NoneSharer{}
