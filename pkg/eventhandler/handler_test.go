package eventhandler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/pdrhub/pkg/fetcher"
	"github.com/marmos91/pdrhub/pkg/manager"
	"github.com/marmos91/pdrhub/pkg/pdr"
	"github.com/marmos91/pdrhub/pkg/pldmevent"
	"github.com/marmos91/pdrhub/pkg/transport/fake"
)

const testEID = 0x1D

type fixture struct {
	handler *Handler
	manager *manager.Manager
	local   *pdr.Repository
	remote  *pdr.Repository
}

// newSyncedFixture stands up a manager synced against one in-process
// terminus whose repository holds records under remote handles 10 and
// 20 (consolidated as 0x10001 and 0x10002).
func newSyncedFixture(t *testing.T) *fixture {
	t.Helper()

	remote := pdr.New(pdr.Config{})
	addWithHandle(t, remote, 10, 1, []byte{0xAA})
	addWithHandle(t, remote, 20, 1, []byte{0xBB})

	local := pdr.New(pdr.Config{})
	f := fetcher.New(fake.New(remote), fetcher.Config{})
	m := manager.New(local, f, manager.Config{})

	require.NoError(t, m.AddTerminus(testEID, 1, 1))
	require.NoError(t, m.SyncTerminus(context.Background(), testEID))

	hm, err := m.HandleMap(testEID)
	require.NoError(t, err)
	require.Equal(t, []manager.HandleMapEntry{
		{Remote: 10, Local: 0x10001},
		{Remote: 20, Local: 0x10002},
	}, hm)

	return &fixture{handler: New(m), manager: m, local: local, remote: remote}
}

func addWithHandle(t *testing.T, repo *pdr.Repository, handle uint32, pdrType uint8, body []byte) {
	t.Helper()
	saved := repo.NextRecordHandle()
	repo.SetNextRecordHandle(handle)
	_, err := repo.AddRecord(pdrType, body)
	require.NoError(t, err)
	if saved > handle+1 {
		repo.SetNextRecordHandle(saved)
	}
}

func encode(t *testing.T, e pldmevent.Event) []byte {
	t.Helper()
	buf, err := pldmevent.Encode(e)
	require.NoError(t, err)
	return buf
}

func TestHandleEvent_IncrementalDeleteAndAdd(t *testing.T) {
	t.Parallel()

	fx := newSyncedFixture(t)

	// The remote deletes record 10 and gains record 30.
	require.NoError(t, fx.remote.RemoveRecord(10))
	addWithHandle(t, fx.remote, 30, 2, []byte{0xCC})

	wire := encode(t, pldmevent.Event{
		Format: pldmevent.FormatIsPDRHandles,
		Records: []pldmevent.ChangeRecord{
			{Operation: pldmevent.OperationRecordsDeleted, Entries: []uint32{10}},
			{Operation: pldmevent.OperationRecordsAdded, Entries: []uint32{30}},
		},
	})
	require.NoError(t, fx.handler.HandleEvent(context.Background(), testEID, wire))

	hm, err := fx.manager.HandleMap(testEID)
	require.NoError(t, err)
	assert.Equal(t, []manager.HandleMapEntry{
		{Remote: 20, Local: 0x10002},
		{Remote: 30, Local: 0x10003},
	}, hm)

	status, err := fx.manager.Status(testEID)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), status.LocalRecordCount)
	assert.Equal(t, manager.StateSynced, status.State)

	result, err := fx.local.GetPDR(0x10003, pdr.TransferOpGetFirstPart, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xCC}, result.Data[pdr.HeaderSize:])

	_, err = fx.local.GetPDR(0x10001, pdr.TransferOpGetFirstPart, 0)
	require.Error(t, err)
}

func TestHandleEvent_IncrementalModify(t *testing.T) {
	t.Parallel()

	fx := newSyncedFixture(t)

	// Replace remote record 20's body in place.
	require.NoError(t, fx.remote.RemoveRecord(20))
	addWithHandle(t, fx.remote, 20, 1, []byte{0xDD, 0xEE})

	wire := encode(t, pldmevent.Event{
		Format: pldmevent.FormatIsPDRHandles,
		Records: []pldmevent.ChangeRecord{
			{Operation: pldmevent.OperationRecordsModified, Entries: []uint32{20}},
		},
	})
	require.NoError(t, fx.handler.HandleEvent(context.Background(), testEID, wire))

	// The local handle survived the modification.
	result, err := fx.local.GetPDR(0x10002, pdr.TransferOpGetFirstPart, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xDD, 0xEE}, result.Data[pdr.HeaderSize:])

	hm, err := fx.manager.HandleMap(testEID)
	require.NoError(t, err)
	assert.Contains(t, hm, manager.HandleMapEntry{Remote: 20, Local: 0x10002})
}

func TestHandleEvent_FallbackOnFailedAdd(t *testing.T) {
	t.Parallel()

	fx := newSyncedFixture(t)

	// The remote deletes record 10; the event also claims an added
	// record 30 that the remote does not actually serve, so the
	// incremental add fails and the handler re-syncs from scratch.
	require.NoError(t, fx.remote.RemoveRecord(10))

	wire := encode(t, pldmevent.Event{
		Format: pldmevent.FormatIsPDRHandles,
		Records: []pldmevent.ChangeRecord{
			{Operation: pldmevent.OperationRecordsDeleted, Entries: []uint32{10}},
			{Operation: pldmevent.OperationRecordsAdded, Entries: []uint32{30}},
		},
	})
	require.NoError(t, fx.handler.HandleEvent(context.Background(), testEID, wire))

	// The fallback re-sync consolidated exactly what the remote holds.
	status, err := fx.manager.Status(testEID)
	require.NoError(t, err)
	assert.Equal(t, manager.StateSynced, status.State)
	assert.Equal(t, uint32(1), status.LocalRecordCount)

	hm, err := fx.manager.HandleMap(testEID)
	require.NoError(t, err)
	require.Len(t, hm, 1)
	assert.Equal(t, uint32(20), hm[0].Remote)

	result, err := fx.local.GetPDR(hm[0].Local, pdr.TransferOpGetFirstPart, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xBB}, result.Data[pdr.HeaderSize:])
}

func TestHandleEvent_RefreshFormatTriggersFullSync(t *testing.T) {
	t.Parallel()

	fx := newSyncedFixture(t)

	addWithHandle(t, fx.remote, 30, 1, []byte{0xCC})

	wire := encode(t, pldmevent.Event{Format: pldmevent.FormatRefreshEntireRepository})
	require.NoError(t, fx.handler.HandleEvent(context.Background(), testEID, wire))

	status, err := fx.manager.Status(testEID)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), status.LocalRecordCount)
}

func TestHandleEvent_TypeFormatTriggersFullSync(t *testing.T) {
	t.Parallel()

	fx := newSyncedFixture(t)

	addWithHandle(t, fx.remote, 30, 7, []byte{0xCC})

	wire := encode(t, pldmevent.Event{
		Format: pldmevent.FormatIsPDRTypes,
		Records: []pldmevent.ChangeRecord{
			{Operation: pldmevent.OperationRecordsAdded, Entries: []uint32{7}},
		},
	})
	require.NoError(t, fx.handler.HandleEvent(context.Background(), testEID, wire))

	status, err := fx.manager.Status(testEID)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), status.LocalRecordCount)
}

func TestHandleEvent_MalformedWireRejected(t *testing.T) {
	t.Parallel()

	fx := newSyncedFixture(t)

	err := fx.handler.HandleEvent(context.Background(), testEID, []byte{0x02, 0x01, 0x01})
	require.Error(t, err)

	// Nothing changed.
	status, err := fx.manager.Status(testEID)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), status.LocalRecordCount)
	assert.Equal(t, manager.StateSynced, status.State)
}

func TestHandleEvent_UnknownTerminus(t *testing.T) {
	t.Parallel()

	fx := newSyncedFixture(t)

	wire := encode(t, pldmevent.Event{
		Format: pldmevent.FormatIsPDRHandles,
		Records: []pldmevent.ChangeRecord{
			{Operation: pldmevent.OperationRecordsDeleted, Entries: []uint32{10}},
		},
	})
	err := fx.handler.HandleEvent(context.Background(), 0x7F, wire)
	require.Error(t, err)
	code, ok := manager.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, manager.ErrUnknownTerminus, code)
}

func TestHandleEvent_DuplicateDeleteIsIdempotent(t *testing.T) {
	t.Parallel()

	fx := newSyncedFixture(t)
	require.NoError(t, fx.remote.RemoveRecord(10))

	wire := encode(t, pldmevent.Event{
		Format: pldmevent.FormatIsPDRHandles,
		Records: []pldmevent.ChangeRecord{
			{Operation: pldmevent.OperationRecordsDeleted, Entries: []uint32{10}},
		},
	})
	require.NoError(t, fx.handler.HandleEvent(context.Background(), testEID, wire))
	require.NoError(t, fx.handler.HandleEvent(context.Background(), testEID, wire))

	status, err := fx.manager.Status(testEID)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), status.LocalRecordCount)
}
