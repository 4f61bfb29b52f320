package pdr

import "encoding/binary"

// HeaderSize is the fixed size in bytes of the PDR common header shared
// by every record (DSP0248 common PDR header).
const HeaderSize = 10

// HeaderVersion is the only version value the core recognizes.
const HeaderVersion = 0x01

// CommonHeader is the 10-byte, little-endian, packed header present at
// the start of every record's bytes in the blob.
//
// The core never interprets a record's body past this header; pdrType
// is opaque to the repository beyond being stored and matched against in
// FindPDR.
type CommonHeader struct {
	RecordHandle       uint32
	HeaderVersion      uint8
	PDRType            uint8
	RecordChangeNumber uint16
	DataLength         uint16
}

// Size returns the total on-blob size of the record this header
// describes: the header itself plus its body.
func (h CommonHeader) Size() uint32 {
	return HeaderSize + uint32(h.DataLength)
}

// PutCommonHeader encodes h into buf[0:HeaderSize]. buf must have at
// least HeaderSize bytes of capacity starting at offset 0.
func PutCommonHeader(buf []byte, h CommonHeader) {
	binary.LittleEndian.PutUint32(buf[0:4], h.RecordHandle)
	buf[4] = h.HeaderVersion
	buf[5] = h.PDRType
	binary.LittleEndian.PutUint16(buf[6:8], h.RecordChangeNumber)
	binary.LittleEndian.PutUint16(buf[8:10], h.DataLength)
}

// ParseCommonHeader reads a CommonHeader from the first HeaderSize bytes
// of buf. It fails with ErrInvalidLength if buf is shorter than
// HeaderSize; it does not otherwise validate field values (callers that
// care about HeaderVersion check it themselves).
func ParseCommonHeader(buf []byte) (CommonHeader, error) {
	if len(buf) < HeaderSize {
		return CommonHeader{}, newErr(ErrInvalidLength,
			"common header requires %d bytes, got %d", HeaderSize, len(buf))
	}
	return CommonHeader{
		RecordHandle:       binary.LittleEndian.Uint32(buf[0:4]),
		HeaderVersion:      buf[4],
		PDRType:            buf[5],
		RecordChangeNumber: binary.LittleEndian.Uint16(buf[6:8]),
		DataLength:         binary.LittleEndian.Uint16(buf[8:10]),
	}, nil
}
