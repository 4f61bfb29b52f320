package pdr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutCommonHeader_RoundTrip(t *testing.T) {
	t.Parallel()

	want := CommonHeader{
		RecordHandle:       0x01020304,
		HeaderVersion:      HeaderVersion,
		PDRType:            7,
		RecordChangeNumber: 0x1122,
		DataLength:         0x3344,
	}

	buf := make([]byte, HeaderSize)
	PutCommonHeader(buf, want)

	got, err := ParseCommonHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPutCommonHeader_LittleEndian(t *testing.T) {
	t.Parallel()

	buf := make([]byte, HeaderSize)
	PutCommonHeader(buf, CommonHeader{RecordHandle: 1, DataLength: 2})

	assert.Equal(t, byte(0x01), buf[0], "record handle low byte first")
	assert.Equal(t, byte(0x02), buf[8], "data length low byte first")
}

func TestParseCommonHeader_TooShort(t *testing.T) {
	t.Parallel()

	_, err := ParseCommonHeader(make([]byte, HeaderSize-1))
	require.Error(t, err)

	code, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, ErrInvalidLength, code)
}

func TestCommonHeader_Size(t *testing.T) {
	t.Parallel()

	h := CommonHeader{DataLength: 42}
	assert.Equal(t, uint32(HeaderSize+42), h.Size())
}
