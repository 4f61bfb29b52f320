package pldmevent

import "encoding/binary"

// Decode parses buf as a change event and validates it.
// It fails with ErrTruncated as soon as a declared count runs past the
// end of buf, and with ErrTrailingBytes if bytes remain after every
// declared record has been consumed.
func Decode(buf []byte) (Event, error) {
	if len(buf) < 2 {
		return Event{}, newErr(ErrTruncated, "need at least 2 bytes for format and record count, got %d", len(buf))
	}

	e := Event{Format: Format(buf[0])}
	numRecords := int(buf[1])
	pos := 2

	for i := 0; i < numRecords; i++ {
		if pos+2 > len(buf) {
			return Event{}, newErr(ErrTruncated, "record %d: buffer ended before operation/count header", i)
		}
		op := Operation(buf[pos])
		numEntries := int(buf[pos+1])
		pos += 2

		need := numEntries * 4
		if pos+need > len(buf) {
			return Event{}, newErr(ErrTruncated, "record %d: declares %d entries but only %d bytes remain", i, numEntries, len(buf)-pos)
		}

		entries := make([]uint32, numEntries)
		for j := 0; j < numEntries; j++ {
			entries[j] = binary.LittleEndian.Uint32(buf[pos : pos+4])
			pos += 4
		}

		e.Records = append(e.Records, ChangeRecord{Operation: op, Entries: entries})
	}

	if pos != len(buf) {
		return Event{}, newErr(ErrTrailingBytes, "%d bytes remain after decoding %d records", len(buf)-pos, numRecords)
	}

	if err := Validate(e); err != nil {
		return Event{}, err
	}

	return e, nil
}
