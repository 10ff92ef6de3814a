package notifier

import (
	"context"

	"github.com/pfrederiksen/visa-bulletin/internal/digest"
)

// Notifier defines the interface for delivering bulletin digests
type Notifier interface {
	// Notify sends one digest
	Notify(ctx context.Context, d digest.Digest) error
}
