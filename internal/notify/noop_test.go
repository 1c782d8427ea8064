package notify

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoOpNotifier_SendAlert(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n := NewNoOpNotifier(slog.New(slog.NewTextHandler(&buf, nil)))
	err := n.SendAlert(context.Background(), &AlertPayload{
		ProductID:   "paneer-400g",
		DisplayName: "Paneer 400g",
		Quantity:    4,
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "product=paneer-400g")
}

// compile-time interface check.
var _ Notifier = (*NoOpNotifier)(nil)
