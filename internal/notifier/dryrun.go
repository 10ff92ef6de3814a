package notifier

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pfrederiksen/visa-bulletin/internal/digest"
)

// DryRunNotifier prints what would be mailed without actually sending it
type DryRunNotifier struct {
	w io.Writer
}

// NewDryRunNotifier creates a new dry-run notifier writing to w, or stdout when w is nil
func NewDryRunNotifier(w io.Writer) *DryRunNotifier {
	if w == nil {
		w = os.Stdout
	}
	return &DryRunNotifier{w: w}
}

// Notify prints the digest that would be sent
func (n *DryRunNotifier) Notify(_ context.Context, d digest.Digest) error {
	if _, err := fmt.Fprintf(n.w, "--- %s ---\n%s\n", d.Title, d.Text); err != nil {
		return fmt.Errorf("writing digest: %w", err)
	}
	return nil
}
