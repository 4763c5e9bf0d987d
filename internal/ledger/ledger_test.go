package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/podcast-digest/internal/podcast"
)

func TestNoOp(t *testing.T) {
	t.Parallel()

	var l NoOp
	require.NoError(t, l.Record(context.Background(), podcast.Submission{ID: "x"}))
	subs, err := l.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.NotNil(t, subs)
	require.Empty(t, subs)
}
