// Package provisioning seeds a repository from a pre-packed PDR image:
// a byte string of back-to-back records (10-byte common header plus
// body each), as produced by a manufacturing or code-generation
// pipeline. Images can come from a local file — optionally watched for
// changes during development — or from an S3-compatible object store.
package provisioning

import (
	"fmt"

	"github.com/marmos91/pdrhub/pkg/pdr"
)

// ScanImage walks a packed image and returns the offset of every
// record in it. The walk stops at the end of the buffer or at the
// first header whose recordHandle is 0 (the reserved value, marking
// padding after the last record). A record running past the end of the
// image is a malformed image.
func ScanImage(image []byte) ([]uint32, error) {
	var offsets []uint32

	offset := uint32(0)
	for offset+pdr.HeaderSize <= uint32(len(image)) {
		hdr, err := pdr.ParseCommonHeader(image[offset:])
		if err != nil {
			return nil, err
		}
		if hdr.RecordHandle == 0 {
			break
		}

		size := hdr.Size()
		if offset+size > uint32(len(image)) {
			return nil, fmt.Errorf("provisioning: record at offset %d (size %d) runs past image end %d",
				offset, size, len(image))
		}

		offsets = append(offsets, offset)
		offset += size
	}

	return offsets, nil
}

// BindImage creates a repository over the image buffer without copying
// it: the buffer becomes the repository's blob and every record in it
// is index-replayed in place. Returns the repository and the number of
// records indexed.
func BindImage(cfg pdr.Config, image []byte) (*pdr.Repository, int, error) {
	offsets, err := ScanImage(image)
	if err != nil {
		return nil, 0, err
	}

	repo := pdr.NewExternal(cfg, image)
	for _, offset := range offsets {
		if err := repo.IndexRecord(offset); err != nil {
			return nil, 0, fmt.Errorf("provisioning: indexing record at offset %d: %w", offset, err)
		}
	}
	return repo, len(offsets), nil
}

// PopulateFromImage returns a populate callback that copies every
// record of the image into the repository being rebuilt. Used with
// RunInitAgent to re-apply a changed image to a repository that owns
// its own blob.
func PopulateFromImage(image []byte) pdr.PopulateFunc {
	return func(r *pdr.Repository) error {
		offsets, err := ScanImage(image)
		if err != nil {
			return err
		}
		for _, offset := range offsets {
			hdr, err := pdr.ParseCommonHeader(image[offset:])
			if err != nil {
				return err
			}
			body := image[offset+pdr.HeaderSize : offset+hdr.Size()]

			// Replaying preserves the image's own handles so records
			// keep the identity the generation pipeline assigned them.
			saved := r.NextRecordHandle()
			r.SetNextRecordHandle(hdr.RecordHandle)
			_, err = r.AddRecord(hdr.PDRType, body)
			if hdr.RecordHandle+1 > saved {
				saved = hdr.RecordHandle + 1
			}
			r.SetNextRecordHandle(saved)
			if err != nil {
				return err
			}
		}
		return nil
	}
}
