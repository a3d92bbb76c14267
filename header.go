package fsa

import (
	"encoding/binary"

	fsaerrors "github.com/tamirms/fsa/errors"
)

const (
	// magic is the signature shared by every format: the bytes "\fsa".
	magic = uint32(0x5C667361)

	// prefixSize is the size of the header prefix common to all formats.
	prefixSize = 7

	// Default header bytes. They are carried for the dictionary layer and
	// have no meaning to the automaton itself.
	defaultFiller     = '_'
	defaultAnnotation = '+'
)

// header is the prefix shared by every format.
//
// Layout:
//
//	Offset  Size  Field       Type
//	0       4     Magic       0x5C 0x66 0x73 0x61 ("\fsa")
//	4       1     Version     uint8 (Format)
//	5       1     Filler      uint8
//	6       1     Annotation  uint8 (separator byte for the dictionary layer)
//
// Format-specific fields follow at offset 7:
//
//	FormatFixed:             1 byte  (countWidth<<4 | gotoWidth)
//	FormatCompact/Relative:  1 byte flags, 1 byte label count K, K labels
type header struct {
	Version    Format
	Filler     byte
	Annotation byte
}

// encodeTo serializes the header prefix into buf.
func (h *header) encodeTo(buf []byte) {
	binary.BigEndian.PutUint32(buf[0:4], magic)
	buf[4] = byte(h.Version)
	buf[5] = h.Filler
	buf[6] = h.Annotation
}

// decodeHeader validates the common prefix: signature first, then a
// registered version, then the remaining prefix bytes.
func decodeHeader(buf []byte) (*header, error) {
	if len(buf) < 4 {
		return nil, fsaerrors.Format(fsaerrors.ErrTruncatedHeader, "%d bytes", len(buf))
	}
	if binary.BigEndian.Uint32(buf[0:4]) != magic {
		return nil, fsaerrors.Format(fsaerrors.ErrInvalidMagic, "% x", buf[0:4])
	}
	if len(buf) < 5 {
		return nil, fsaerrors.Format(fsaerrors.ErrTruncatedHeader, "%d bytes", len(buf))
	}
	if _, ok := codecs[Format(buf[4])]; !ok {
		return nil, fsaerrors.Format(fsaerrors.ErrInvalidVersion, "0x%02x", buf[4])
	}
	if len(buf) < prefixSize {
		return nil, fsaerrors.Format(fsaerrors.ErrTruncatedHeader, "%d bytes", len(buf))
	}
	return &header{
		Version:    Format(buf[4]),
		Filler:     buf[5],
		Annotation: buf[6],
	}, nil
}
