package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "github.com/anhkiet307/swapstation/core/inventory"
	"github.com/anhkiet307/swapstation/core/model"
)

var seedSlots = []model.PinSlot{
	{ID: 139, StationID: 3, ChargePercent: 90, HealthPercent: 85, Status: model.SlotActive},
	{ID: 140, StationID: 3, ChargePercent: 60, HealthPercent: 22, Status: model.SlotActive},
	{ID: 141, StationID: 4, ChargePercent: 70, HealthPercent: 60, Status: model.SlotInactive},
}

// runStoreSuite exercises the core.Store contract against st, which must be
// empty.
func runStoreSuite(t *testing.T, st core.Store) {
	ctx := context.Background()
	require.NoError(t, core.Seed(ctx, st, seedSlots))

	t.Run("fetch", func(t *testing.T) {
		s, err := st.FetchSlot(ctx, 139)
		require.NoError(t, err)
		assert.Equal(t, int64(3), s.StationID)
		assert.Equal(t, 90.0, s.ChargePercent)
		assert.Equal(t, model.SlotActive, s.Status)
		assert.Equal(t, int64(1), s.Version)
		assert.False(t, s.UpdatedAt.IsZero())

		_, err = st.FetchSlot(ctx, 999)
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("list", func(t *testing.T) {
		all, err := st.ListSlots(ctx, core.Filter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, int64(139), all[0].ID)

		st3, err := st.ListSlots(ctx, core.Filter{StationID: 3})
		require.NoError(t, err)
		assert.Len(t, st3, 2)

		inactive, err := st.ListSlots(ctx, core.Filter{Status: model.SlotInactive})
		require.NoError(t, err)
		require.Len(t, inactive, 1)
		assert.Equal(t, int64(141), inactive[0].ID)

		none, err := st.ListSlots(ctx, core.Filter{StationID: 42})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("upsert bumps version", func(t *testing.T) {
		s, err := st.Upsert(ctx, model.PinSlot{ID: 141, StationID: 4, ChargePercent: 71, HealthPercent: 60, Status: model.SlotInactive})
		require.NoError(t, err)
		assert.Equal(t, int64(2), s.Version)
		assert.Equal(t, 71.0, s.ChargePercent)

		_, err = st.Upsert(ctx, model.PinSlot{ID: 142, StationID: 4, ChargePercent: 120, Status: model.SlotActive})
		assert.Error(t, err)
	})

	t.Run("tx commit", func(t *testing.T) {
		err := st.WithTx(ctx, func(tx core.Tx) error {
			cur, err := tx.FetchForUpdate(ctx, 139)
			if err != nil {
				return err
			}
			cur.ChargePercent = 80
			w, err := tx.WriteSlot(ctx, cur, cur.Version)
			if err != nil {
				return err
			}
			assert.Equal(t, cur.Version+1, w.Version)
			return nil
		})
		require.NoError(t, err)
		s, _ := st.FetchSlot(ctx, 139)
		assert.Equal(t, 80.0, s.ChargePercent)
		assert.Equal(t, int64(2), s.Version)
		assert.Equal(t, 85.0, s.HealthPercent)
		assert.Equal(t, model.SlotActive, s.Status)
	})

	t.Run("tx rollback", func(t *testing.T) {
		before, _ := st.FetchSlot(ctx, 140)
		boom := errors.New("boom")
		err := st.WithTx(ctx, func(tx core.Tx) error {
			cur, err := tx.FetchForUpdate(ctx, 140)
			if err != nil {
				return err
			}
			cur.HealthPercent = 99
			if _, err := tx.WriteSlot(ctx, cur, cur.Version); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)
		after, _ := st.FetchSlot(ctx, 140)
		assert.Equal(t, before, after)
	})

	t.Run("version guard", func(t *testing.T) {
		err := st.WithTx(ctx, func(tx core.Tx) error {
			cur, err := tx.FetchForUpdate(ctx, 140)
			if err != nil {
				return err
			}
			_, err = tx.WriteSlot(ctx, cur, cur.Version-1)
			return err
		})
		assert.ErrorIs(t, err, core.ErrConcurrentModification)

		err = st.WithTx(ctx, func(tx core.Tx) error {
			_, err := tx.FetchForUpdate(ctx, 998)
			return err
		})
		assert.ErrorIs(t, err, core.ErrNotFound)
	})
}
