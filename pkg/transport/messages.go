package transport

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/marmos91/pdrhub/pkg/pdr"
)

// timestampSize is the width of a PLDM timestamp104 field. The
// repository treats it as an opaque blob: no component in this codebase
// interprets its BCD-encoded contents.
const timestampSize = 13

// GetPDRRepositoryInfoResponse is command 0x50's response payload.
type GetPDRRepositoryInfoResponse struct {
	State                     pdr.RepositoryState
	RecordCount               uint32
	RepositorySize            uint32
	LargestRecordSize         uint32
	DataTransferHandleTimeout uint8
	Timestamp                 [timestampSize]byte
}

func (r GetPDRRepositoryInfoResponse) MarshalBinary() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte(byte(r.State))
	writeUint32(buf, r.RecordCount)
	writeUint32(buf, r.RepositorySize)
	writeUint32(buf, r.LargestRecordSize)
	buf.WriteByte(r.DataTransferHandleTimeout)
	buf.Write(r.Timestamp[:])
	return buf.Bytes(), nil
}

func (r *GetPDRRepositoryInfoResponse) UnmarshalBinary(buf []byte) error {
	const want = 1 + 4 + 4 + 4 + 1 + timestampSize
	if len(buf) != want {
		return fmt.Errorf("transport: GetPDRRepositoryInfoResponse requires %d bytes, got %d", want, len(buf))
	}
	r.State = pdr.RepositoryState(buf[0])
	r.RecordCount = binary.LittleEndian.Uint32(buf[1:5])
	r.RepositorySize = binary.LittleEndian.Uint32(buf[5:9])
	r.LargestRecordSize = binary.LittleEndian.Uint32(buf[9:13])
	r.DataTransferHandleTimeout = buf[13]
	copy(r.Timestamp[:], buf[14:14+timestampSize])
	return nil
}

// GetPDRRequest is command 0x51's request payload.
type GetPDRRequest struct {
	RecordHandle       uint32
	DataTransferHandle uint32
	TransferOpFlag     pdr.TransferOpFlag
	RequestCount       uint16
	RecordChangeNumber uint16
}

func (q GetPDRRequest) MarshalBinary() ([]byte, error) {
	buf := &bytes.Buffer{}
	writeUint32(buf, q.RecordHandle)
	writeUint32(buf, q.DataTransferHandle)
	buf.WriteByte(byte(q.TransferOpFlag))
	writeUint16(buf, q.RequestCount)
	writeUint16(buf, q.RecordChangeNumber)
	return buf.Bytes(), nil
}

func (q *GetPDRRequest) UnmarshalBinary(buf []byte) error {
	const want = 4 + 4 + 1 + 2 + 2
	if len(buf) != want {
		return fmt.Errorf("transport: GetPDRRequest requires %d bytes, got %d", want, len(buf))
	}
	q.RecordHandle = binary.LittleEndian.Uint32(buf[0:4])
	q.DataTransferHandle = binary.LittleEndian.Uint32(buf[4:8])
	q.TransferOpFlag = pdr.TransferOpFlag(buf[8])
	q.RequestCount = binary.LittleEndian.Uint16(buf[9:11])
	q.RecordChangeNumber = binary.LittleEndian.Uint16(buf[11:13])
	return nil
}

// GetPDRResponse is command 0x51's response payload.
type GetPDRResponse struct {
	NextRecordHandle       uint32
	NextDataTransferHandle uint32
	TransferFlag           pdr.TransferFlag
	RecordData             []byte
}

func (r GetPDRResponse) MarshalBinary() ([]byte, error) {
	buf := &bytes.Buffer{}
	writeUint32(buf, r.NextRecordHandle)
	writeUint32(buf, r.NextDataTransferHandle)
	buf.WriteByte(byte(r.TransferFlag))
	writeUint16(buf, uint16(len(r.RecordData)))
	buf.Write(r.RecordData)
	return buf.Bytes(), nil
}

func (r *GetPDRResponse) UnmarshalBinary(buf []byte) error {
	const headerSize = 4 + 4 + 1 + 2
	if len(buf) < headerSize {
		return fmt.Errorf("transport: GetPDRResponse requires at least %d bytes, got %d", headerSize, len(buf))
	}
	r.NextRecordHandle = binary.LittleEndian.Uint32(buf[0:4])
	r.NextDataTransferHandle = binary.LittleEndian.Uint32(buf[4:8])
	r.TransferFlag = pdr.TransferFlag(buf[8])
	n := int(binary.LittleEndian.Uint16(buf[9:11]))

	if len(buf) != headerSize+n {
		return fmt.Errorf("transport: GetPDRResponse declares %d data bytes but %d remain", n, len(buf)-headerSize)
	}

	r.RecordData = append([]byte(nil), buf[headerSize:]...)
	return nil
}

// FindPDRRequest is command 0x52's request payload.
type FindPDRRequest struct {
	PDRType     uint8
	StartHandle uint32
}

func (q FindPDRRequest) MarshalBinary() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte(q.PDRType)
	writeUint32(buf, q.StartHandle)
	return buf.Bytes(), nil
}

func (q *FindPDRRequest) UnmarshalBinary(buf []byte) error {
	const want = 1 + 4
	if len(buf) != want {
		return fmt.Errorf("transport: FindPDRRequest requires %d bytes, got %d", want, len(buf))
	}
	q.PDRType = buf[0]
	q.StartHandle = binary.LittleEndian.Uint32(buf[1:5])
	return nil
}

// FindPDRResponse is command 0x52's response payload: the matched
// record's full bytes plus the continuation handle for iterating the
// matched type.
type FindPDRResponse struct {
	MatchedHandle    uint32
	NextRecordHandle uint32
	RecordData       []byte
}

func (r FindPDRResponse) MarshalBinary() ([]byte, error) {
	buf := &bytes.Buffer{}
	writeUint32(buf, r.MatchedHandle)
	writeUint32(buf, r.NextRecordHandle)
	writeUint16(buf, uint16(len(r.RecordData)))
	buf.Write(r.RecordData)
	return buf.Bytes(), nil
}

func (r *FindPDRResponse) UnmarshalBinary(buf []byte) error {
	const headerSize = 4 + 4 + 2
	if len(buf) < headerSize {
		return fmt.Errorf("transport: FindPDRResponse requires at least %d bytes, got %d", headerSize, len(buf))
	}
	r.MatchedHandle = binary.LittleEndian.Uint32(buf[0:4])
	r.NextRecordHandle = binary.LittleEndian.Uint32(buf[4:8])
	n := int(binary.LittleEndian.Uint16(buf[8:10]))
	if len(buf) != headerSize+n {
		return fmt.Errorf("transport: FindPDRResponse declares %d data bytes but %d remain", n, len(buf)-headerSize)
	}
	r.RecordData = append([]byte(nil), buf[headerSize:]...)
	return nil
}

// GetPDRRepositorySignatureResponse is command 0x53's response payload.
type GetPDRRepositorySignatureResponse struct {
	Signature uint32
}

func (r GetPDRRepositorySignatureResponse) MarshalBinary() ([]byte, error) {
	buf := &bytes.Buffer{}
	writeUint32(buf, r.Signature)
	return buf.Bytes(), nil
}

func (r *GetPDRRepositorySignatureResponse) UnmarshalBinary(buf []byte) error {
	if len(buf) != 4 {
		return fmt.Errorf("transport: GetPDRRepositorySignatureResponse requires 4 bytes, got %d", len(buf))
	}
	r.Signature = binary.LittleEndian.Uint32(buf)
	return nil
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	buf.Write(tmp[:])
}
