package pldmevent

import (
	"bytes"
	"encoding/binary"
)

// Encode serializes e to its wire form:
//
//	[format u8][numRecords u8] {
//	    [operation u8][numEntries u8] {[entry u32 LE]...}
//	}...
//
// Encode runs Validate first and returns its error unchanged on failure.
func Encode(e Event) ([]byte, error) {
	if err := Validate(e); err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	buf.WriteByte(byte(e.Format))
	buf.WriteByte(byte(len(e.Records)))

	for _, rec := range e.Records {
		buf.WriteByte(byte(rec.Operation))
		buf.WriteByte(byte(len(rec.Entries)))
		for _, entry := range rec.Entries {
			var tmp [4]byte
			binary.LittleEndian.PutUint32(tmp[:], entry)
			buf.Write(tmp[:])
		}
	}

	return buf.Bytes(), nil
}
