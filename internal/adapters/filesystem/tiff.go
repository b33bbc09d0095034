package filesystem

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// maxTIFFPages bounds the IFD walk so a looping chain cannot spin forever.
const maxTIFFPages = 10000

// ErrMalformedTIFF is returned when a file has a TIFF header but its
// directory chain cannot be walked.
var ErrMalformedTIFF = errors.New("malformed TIFF")

// PageCount returns the number of pages in a converted image. A TIFF has one
// page per image file directory; anything else counts as a single page.
func PageCount(data []byte) (int, error) {
	order, ok := tiffByteOrder(data)
	if !ok {
		return 1, nil
	}

	offset := int64(order.Uint32(data[4:8]))
	seen := make(map[int64]bool)
	pages := 0
	for offset != 0 {
		if seen[offset] {
			return 0, fmt.Errorf("%w: directory loop at offset %d", ErrMalformedTIFF, offset)
		}
		seen[offset] = true
		if pages == maxTIFFPages {
			return 0, fmt.Errorf("%w: more than %d pages", ErrMalformedTIFF, maxTIFFPages)
		}
		if offset+2 > int64(len(data)) {
			return 0, fmt.Errorf("%w: directory offset %d out of range", ErrMalformedTIFF, offset)
		}

		entries := int64(order.Uint16(data[offset : offset+2]))
		next := offset + 2 + entries*12
		if next+4 > int64(len(data)) {
			return 0, fmt.Errorf("%w: directory at offset %d truncated", ErrMalformedTIFF, offset)
		}
		pages++
		offset = int64(order.Uint32(data[next : next+4]))
	}

	if pages == 0 {
		return 0, fmt.Errorf("%w: no image directory", ErrMalformedTIFF)
	}
	return pages, nil
}

// tiffByteOrder recognises the classic little- and big-endian TIFF headers.
func tiffByteOrder(data []byte) (binary.ByteOrder, bool) {
	if len(data) < 8 {
		return nil, false
	}
	switch {
	case data[0] == 'I' && data[1] == 'I' && binary.LittleEndian.Uint16(data[2:4]) == 42:
		return binary.LittleEndian, true
	case data[0] == 'M' && data[1] == 'M' && binary.BigEndian.Uint16(data[2:4]) == 42:
		return binary.BigEndian, true
	}
	return nil, false
}
