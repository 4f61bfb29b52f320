package provisioning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/pdrhub/pkg/pdr"
)

// packImage builds a packed image from (handle, type, body) triples.
func packImage(records ...struct {
	handle uint32
	typ    uint8
	body   []byte
}) []byte {
	var image []byte
	for _, rec := range records {
		hdr := make([]byte, pdr.HeaderSize)
		pdr.PutCommonHeader(hdr, pdr.CommonHeader{
			RecordHandle:  rec.handle,
			HeaderVersion: pdr.HeaderVersion,
			PDRType:       rec.typ,
			DataLength:    uint16(len(rec.body)),
		})
		image = append(image, hdr...)
		image = append(image, rec.body...)
	}
	return image
}

type imageRecord = struct {
	handle uint32
	typ    uint8
	body   []byte
}

func TestScanImage(t *testing.T) {
	t.Parallel()

	t.Run("finds every record", func(t *testing.T) {
		t.Parallel()
		image := packImage(
			imageRecord{handle: 1, typ: 1, body: []byte{0xAA}},
			imageRecord{handle: 2, typ: 2, body: []byte{0xBB, 0xCC}},
		)

		offsets, err := ScanImage(image)
		require.NoError(t, err)
		assert.Equal(t, []uint32{0, 11}, offsets)
	})

	t.Run("stops at zero-handle padding", func(t *testing.T) {
		t.Parallel()
		image := packImage(imageRecord{handle: 1, typ: 1, body: []byte{0xAA}})
		image = append(image, make([]byte, 32)...) // zeroed tail

		offsets, err := ScanImage(image)
		require.NoError(t, err)
		assert.Len(t, offsets, 1)
	})

	t.Run("rejects a record running past the image", func(t *testing.T) {
		t.Parallel()
		image := packImage(imageRecord{handle: 1, typ: 1, body: []byte{0xAA, 0xBB}})
		image = image[:len(image)-1] // truncate the body

		_, err := ScanImage(image)
		require.Error(t, err)
	})

	t.Run("empty image has no records", func(t *testing.T) {
		t.Parallel()
		offsets, err := ScanImage(nil)
		require.NoError(t, err)
		assert.Empty(t, offsets)
	})
}

func TestBindImage(t *testing.T) {
	t.Parallel()

	image := packImage(
		imageRecord{handle: 5, typ: 1, body: []byte{0xAA}},
		imageRecord{handle: 9, typ: 2, body: []byte{0xBB, 0xCC}},
	)

	repo, count, err := BindImage(pdr.Config{}, image)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	info := repo.GetRepositoryInfo()
	assert.Equal(t, uint32(2), info.RecordCount)
	assert.Equal(t, uint32(23), info.RepositorySize)

	// The image's handles are preserved and the allocator advanced past
	// the highest one.
	result, err := repo.GetPDR(9, pdr.TransferOpGetFirstPart, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xBB, 0xCC}, result.Data[pdr.HeaderSize:])
	assert.Equal(t, uint32(10), repo.NextRecordHandle())
}

func TestPopulateFromImage(t *testing.T) {
	t.Parallel()

	repo := pdr.New(pdr.Config{})
	_, err := repo.AddRecord(1, []byte{0x01})
	require.NoError(t, err)

	image := packImage(
		imageRecord{handle: 3, typ: 2, body: []byte{0xDD}},
		imageRecord{handle: 4, typ: 2, body: []byte{0xEE}},
	)

	require.NoError(t, repo.RunInitAgent(PopulateFromImage(image)))

	info := repo.GetRepositoryInfo()
	assert.Equal(t, pdr.StateAvailable, info.State)
	assert.Equal(t, uint32(2), info.RecordCount)

	// The pre-rebuild record is gone; the image's records are present
	// under the image's handles.
	_, err = repo.GetPDR(1, pdr.TransferOpGetFirstPart, 0)
	require.Error(t, err)

	result, err := repo.GetPDR(3, pdr.TransferOpGetFirstPart, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xDD}, result.Data[pdr.HeaderSize:])

	assert.Equal(t, uint32(5), repo.NextRecordHandle())
}
