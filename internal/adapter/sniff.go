package adapter

import (
	"archive/zip"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
)

// ErrUnknownCompression marks a batch whose content is binary but matches
// no supported compression magic. The whole batch fails, not single entries.
var ErrUnknownCompression = fmt.Errorf("unsupported or undetectable compression format")

// textBytes are the byte values accepted in plain-text batches. Content
// containing anything else without a known magic number is rejected.
var textBytes = func() [256]bool {
	var ok [256]bool
	for _, b := range []byte{7, 8, 9, 10, 12, 13, 27} {
		ok[b] = true
	}
	for b := 0x20; b < 0x100; b++ {
		ok[b] = true
	}
	ok[0x7f] = false
	return ok
}()

// decompress sniffs the payload's magic bytes and returns a reader over the
// decompressed content. gzip, zip and bzip2 are supported; for zip archives
// only the first member is read. Anything else must look like plain text.
func decompress(data []byte) (io.Reader, error) {
	switch {
	case bytes.HasPrefix(data, []byte{0x1f, 0x8b}):
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("opening gzip batch: %w", err)
		}
		return zr, nil
	case bytes.HasPrefix(data, []byte{0x50, 0x4b}):
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, fmt.Errorf("opening zip batch: %w", err)
		}
		if len(zr.File) == 0 {
			return nil, fmt.Errorf("zip batch has no members")
		}
		member, err := zr.File[0].Open()
		if err != nil {
			return nil, fmt.Errorf("opening first zip member: %w", err)
		}
		return member, nil
	case bytes.HasPrefix(data, []byte{0x42, 0x5a}):
		return bzip2.NewReader(bytes.NewReader(data)), nil
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	for _, b := range head {
		if !textBytes[b] {
			return nil, ErrUnknownCompression
		}
	}
	return bytes.NewReader(data), nil
}
