package baseline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendwatch/spendwatch/internal/testutil"
)

// Two transactions applying the first delta for a brand-new key must
// serialize on the row lock; neither update may be lost.
func TestApplyTxSerializesFirstCommits(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPostgresStore(db)
	delta := Delta{VendorID: "V-race", Department: "IT", Location: "Boston", Amount: 100}

	tx1, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.ApplyTx(ctx, tx1, delta))

	done := make(chan error, 1)
	go func() {
		tx2, err := db.BeginTx(ctx, nil)
		if err != nil {
			done <- err
			return
		}
		if err := store.ApplyTx(ctx, tx2, delta); err != nil {
			_ = tx2.Rollback()
			done <- err
			return
		}
		done <- tx2.Commit()
	}()

	// The second apply must block until the first transaction resolves.
	select {
	case err := <-done:
		t.Fatalf("second apply finished before the first committed: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, tx1.Commit())
	require.NoError(t, <-done)

	stats, err := store.Get(ctx, KindVendor, "V-race")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Count)
	assert.Equal(t, 100.0, stats.Mean)

	deptStats, err := store.Get(ctx, KindDepartment, "IT")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deptStats.Count)
}
