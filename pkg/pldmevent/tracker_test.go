package pldmevent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeTracker_CanonicalOrder(t *testing.T) {
	t.Parallel()

	tr := NewChangeTracker()
	require.NoError(t, tr.RecordModified(12))
	require.NoError(t, tr.RecordAdded(10, 11))
	require.NoError(t, tr.RecordDeleted(9))

	event := tr.BuildEvent(FormatIsPDRHandles, 0)
	require.Len(t, event.Records, 3)
	assert.Equal(t, OperationRecordsDeleted, event.Records[0].Operation)
	assert.Equal(t, []uint32{9}, event.Records[0].Entries)
	assert.Equal(t, OperationRecordsAdded, event.Records[1].Operation)
	assert.Equal(t, []uint32{10, 11}, event.Records[1].Entries)
	assert.Equal(t, OperationRecordsModified, event.Records[2].Operation)
	assert.Equal(t, []uint32{12}, event.Records[2].Entries)

	require.NoError(t, Validate(event))
}

func TestChangeTracker_SkipsEmptyOperations(t *testing.T) {
	t.Parallel()

	tr := NewChangeTracker()
	require.NoError(t, tr.RecordAdded(1))

	event := tr.BuildEvent(FormatIsPDRHandles, 0)
	require.Len(t, event.Records, 1)
	assert.Equal(t, OperationRecordsAdded, event.Records[0].Operation)
}

func TestChangeTracker_EmptyBuildsRefresh(t *testing.T) {
	t.Parallel()

	tr := NewChangeTracker()
	event := tr.BuildEvent(FormatIsPDRHandles, 0)
	assert.Equal(t, FormatRefreshEntireRepository, event.Format)
	assert.Empty(t, event.Records)
}

func TestChangeTracker_FullRecordRejectsMore(t *testing.T) {
	t.Parallel()

	tr := NewChangeTracker()
	for i := 0; i < MaxEntriesPerRecord; i++ {
		require.NoError(t, tr.RecordAdded(uint32(i)))
	}

	err := tr.RecordAdded(99)
	require.Error(t, err)
	code, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, ErrFull, code)

	// Other operations are unaffected by one record being full.
	assert.NoError(t, tr.RecordDeleted(1))
}

func TestChangeTracker_FullAppendsNothingPartially(t *testing.T) {
	t.Parallel()

	tr := NewChangeTracker()
	for i := 0; i < MaxEntriesPerRecord-1; i++ {
		require.NoError(t, tr.RecordDeleted(uint32(i)))
	}

	require.Error(t, tr.RecordDeleted(100, 101))

	event := tr.BuildEvent(FormatIsPDRHandles, 0)
	require.Len(t, event.Records, 1)
	assert.Len(t, event.Records[0].Entries, MaxEntriesPerRecord-1)
	assert.NotContains(t, event.Records[0].Entries, uint32(100))
}

func TestChangeTracker_SizeFallbackToRefresh(t *testing.T) {
	t.Parallel()

	tr := NewChangeTracker()
	require.NoError(t, tr.RecordAdded(1, 2, 3, 4, 5))

	// 2 + (2 + 5*4) = 24 bytes pending; a 10-byte budget cannot hold it.
	event := tr.BuildEvent(FormatIsPDRHandles, 10)
	assert.Equal(t, FormatRefreshEntireRepository, event.Format)
	assert.Empty(t, event.Records)

	// A sufficient budget emits the delta unchanged.
	event = tr.BuildEvent(FormatIsPDRHandles, 24)
	assert.Equal(t, FormatIsPDRHandles, event.Format)
	require.Len(t, event.Records, 1)
}

func TestChangeTracker_BuildDoesNotClear(t *testing.T) {
	t.Parallel()

	tr := NewChangeTracker()
	require.NoError(t, tr.RecordAdded(1))

	_ = tr.BuildEvent(FormatIsPDRHandles, 0)
	assert.True(t, tr.Pending())

	tr.Clear()
	assert.False(t, tr.Pending())
	event := tr.BuildEvent(FormatIsPDRHandles, 0)
	assert.Equal(t, FormatRefreshEntireRepository, event.Format)
}

func TestChangeTracker_BuiltEventRoundTrips(t *testing.T) {
	t.Parallel()

	tr := NewChangeTracker()
	require.NoError(t, tr.RecordAdded(10, 11))
	require.NoError(t, tr.RecordModified(12))
	require.NoError(t, tr.RecordDeleted(8))

	event := tr.BuildEvent(FormatIsPDRHandles, 0)

	buf, err := Encode(event)
	require.NoError(t, err)

	decoded, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, event, decoded)
}
