package serials_test

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tackroom/saddletrack/internal/serials"
)

// fakeStore keeps serial rows in memory and counts write operations. A
// failed unit of work restores the pre-transaction snapshot, mirroring a DB
// rollback.
type fakeStore struct {
	quantities map[string]int    // line item id -> quantity
	orderNames map[string]string // line item id -> owning order name
	rows       map[string]serials.SerialNumber
	nextID     int
	writes     int
	clock      time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		quantities: map[string]int{},
		orderNames: map[string]string{},
		rows:       map[string]serials.SerialNumber{},
		clock:      time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC),
	}
}

func (s *fakeStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx serials.Tx) error) error {
	snapshot := make(map[string]serials.SerialNumber, len(s.rows))
	for k, v := range s.rows {
		snapshot[k] = v
	}
	writes := s.writes
	if err := fn(ctx, (*fakeTx)(s)); err != nil {
		s.rows = snapshot
		s.writes = writes
		return err
	}
	return nil
}

type fakeTx fakeStore

func (t *fakeTx) LineItemQuantity(_ context.Context, lineItemID string) (int, error) {
	q, ok := t.quantities[lineItemID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", serials.ErrLineItemNotFound, lineItemID)
	}
	return q, nil
}

func (t *fakeTx) FindConflicts(_ context.Context, values []string, excludeLineItemID string) ([]serials.Conflict, error) {
	want := map[string]bool{}
	for _, v := range values {
		want[v] = true
	}
	var out []serials.Conflict
	for _, r := range t.rows {
		if r.LineItemID != excludeLineItemID && want[r.Value] {
			out = append(out, serials.Conflict{Value: r.Value, OrderName: t.orderNames[r.LineItemID]})
		}
	}
	return out, nil
}

func (t *fakeTx) ListForUpdate(_ context.Context, lineItemID string) ([]serials.SerialNumber, error) {
	var out []serials.SerialNumber
	for _, r := range t.rows {
		if r.LineItemID == lineItemID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UnitIndex < out[j].UnitIndex })
	return out, nil
}

func (t *fakeTx) UpdateValue(_ context.Context, id, value string) error {
	r := t.rows[id]
	r.Value = value
	r.UpdatedAt = t.clock
	t.rows[id] = r
	t.writes++
	return nil
}

func (t *fakeTx) Create(_ context.Context, lineItemID string, unitIndex int, value string) error {
	t.nextID++
	id := fmt.Sprintf("sn-%d", t.nextID)
	t.rows[id] = serials.SerialNumber{
		ID: id, LineItemID: lineItemID, UnitIndex: unitIndex, Value: value,
		EnteredAt: t.clock, UpdatedAt: t.clock,
	}
	t.writes++
	return nil
}

func (t *fakeTx) Delete(_ context.Context, id string) error {
	delete(t.rows, id)
	t.writes++
	return nil
}

func (s *fakeStore) byIndex(lineItemID string) map[int]serials.SerialNumber {
	out := map[int]serials.SerialNumber{}
	for _, r := range s.rows {
		if r.LineItemID == lineItemID {
			out[r.UnitIndex] = r
		}
	}
	return out
}

func TestSaveCreatesAllUnits(t *testing.T) {
	st := newFakeStore()
	st.quantities["li1"] = 3
	svc := &serials.Service{Store: st}

	require.NoError(t, svc.Save(context.Background(), "li1", []string{"A", "B", "C"}))

	got := st.byIndex("li1")
	require.Len(t, got, 3)
	assert.Equal(t, "A", got[1].Value)
	assert.Equal(t, "B", got[2].Value)
	assert.Equal(t, "C", got[3].Value)
}

func TestSaveIsIdempotent(t *testing.T) {
	st := newFakeStore()
	st.quantities["li1"] = 3
	svc := &serials.Service{Store: st}

	require.NoError(t, svc.Save(context.Background(), "li1", []string{"A", "B", "C"}))
	writesAfterFirst := st.writes

	require.NoError(t, svc.Save(context.Background(), "li1", []string{"A", "B", "C"}))
	assert.Equal(t, writesAfterFirst, st.writes, "second identical save must not write")
	assert.Len(t, st.byIndex("li1"), 3)
}

func TestSaveUpdatesOnlyChangedIndex(t *testing.T) {
	st := newFakeStore()
	st.quantities["li1"] = 3
	svc := &serials.Service{Store: st}

	require.NoError(t, svc.Save(context.Background(), "li1", []string{"A", "B", "C"}))
	before := st.byIndex("li1")

	st.clock = st.clock.Add(time.Hour)
	require.NoError(t, svc.Save(context.Background(), "li1", []string{"A", "X", "C"}))
	after := st.byIndex("li1")

	// indices 1 and 3 keep their row identity and timestamps
	assert.Equal(t, before[1], after[1])
	assert.Equal(t, before[3], after[3])

	assert.Equal(t, before[2].ID, after[2].ID)
	assert.Equal(t, "X", after[2].Value)
	assert.Equal(t, before[2].EnteredAt, after[2].EnteredAt)
	assert.True(t, after[2].UpdatedAt.After(before[2].UpdatedAt))
}

func TestSavePrunesTrailingIndexOnShrink(t *testing.T) {
	st := newFakeStore()
	st.quantities["li1"] = 3
	svc := &serials.Service{Store: st}
	require.NoError(t, svc.Save(context.Background(), "li1", []string{"A", "B", "C"}))

	// order edit shrank the quantity; the manual save prunes index 3
	st.quantities["li1"] = 2
	require.NoError(t, svc.Save(context.Background(), "li1", []string{"A", "B"}))

	got := st.byIndex("li1")
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[1].Value)
	assert.Equal(t, "B", got[2].Value)
}

func TestSaveRejectsIntraBatchDuplicate(t *testing.T) {
	st := newFakeStore()
	st.quantities["li1"] = 3
	svc := &serials.Service{Store: st}

	err := svc.Save(context.Background(), "li1", []string{"S1", "S1", "S2"})
	var vErr *serials.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, err.Error(), "duplicate serial number: S1")
	assert.Zero(t, st.writes)
	assert.Empty(t, st.rows)
}

func TestSaveRejectsCrossOrderConflict(t *testing.T) {
	st := newFakeStore()
	st.quantities["li1"] = 2
	st.quantities["li2"] = 1
	st.orderNames["li2"] = "#1001"
	svc := &serials.Service{Store: st}

	require.NoError(t, svc.Save(context.Background(), "li2", []string{"S9"}))
	writesBefore := st.writes

	err := svc.Save(context.Background(), "li1", []string{"S9", "S2"})
	var cErr *serials.ConflictError
	require.ErrorAs(t, err, &cErr)
	assert.Contains(t, err.Error(), "S9 (already used in #1001)")
	assert.Equal(t, writesBefore, st.writes)
	assert.Empty(t, st.byIndex("li1"))
}

func TestSaveOwnRowsDoNotConflict(t *testing.T) {
	st := newFakeStore()
	st.quantities["li1"] = 2
	svc := &serials.Service{Store: st}

	require.NoError(t, svc.Save(context.Background(), "li1", []string{"A", "B"}))
	// swapping positions reuses this item's own values; not a conflict
	require.NoError(t, svc.Save(context.Background(), "li1", []string{"B", "A"}))

	got := st.byIndex("li1")
	assert.Equal(t, "B", got[1].Value)
	assert.Equal(t, "A", got[2].Value)
}

func TestSaveUnknownLineItem(t *testing.T) {
	st := newFakeStore()
	svc := &serials.Service{Store: st}

	err := svc.Save(context.Background(), "nope", []string{"A"})
	require.ErrorIs(t, err, serials.ErrLineItemNotFound)
	assert.Zero(t, st.writes)
}

func TestSaveTrimsBeforeComparing(t *testing.T) {
	st := newFakeStore()
	st.quantities["li1"] = 2
	svc := &serials.Service{Store: st}

	require.NoError(t, svc.Save(context.Background(), "li1", []string{"A", "B"}))
	writesAfterFirst := st.writes

	// same values with whitespace: still a no-op
	require.NoError(t, svc.Save(context.Background(), "li1", []string{" A ", "B "}))
	assert.Equal(t, writesAfterFirst, st.writes)
}
