package related

import (
	"bytes"
	"fmt"
)

// minPartSize is the largest part length still considered structurally empty.
const minPartSize = 3

var headerSeparators = [][]byte{
	[]byte("\r\n\r\n"),
	[]byte("\r\r"),
	[]byte("\n\n"),
}

// ParsedPart is a raw part split into parsed headers and trimmed content.
type ParsedPart struct {
	Index   int
	Headers *Header
	Content []byte
}

// SplitPart separates the header block of a raw part from its content.
// A part that starts with a line break has no headers. Otherwise the block
// ends at the first blank line, whichever of CRLFCRLF, CRCR or LFLF comes first.
func SplitPart(raw []byte) (headers, content []byte, err error) {
	if len(raw) <= minPartSize {
		return nil, nil, fmt.Errorf("%w: %d bytes", ErrEmptyPartContent, len(raw))
	}

	split := 0
	if raw[0] != '\r' && raw[0] != '\n' {
		split = headerSplit(raw)
		if split < 0 {
			return nil, nil, ErrHeaderBlockNotFound
		}
	}

	headers = bytes.TrimSpace(raw[:split])
	content = bytes.Trim(raw[split:], "\r\n")
	return headers, content, nil
}

// headerSplit returns the offset of the leftmost blank-line separator or -1.
func headerSplit(raw []byte) int {
	for i := range raw {
		for _, sep := range headerSeparators {
			if bytes.HasPrefix(raw[i:], sep) {
				return i
			}
		}
	}
	return -1
}

// ParsePart splits a raw part and parses its header block.
func ParsePart(raw RawPart) (*ParsedPart, error) {
	headerBlock, content, err := SplitPart(raw.Data)
	if err != nil {
		return nil, fmt.Errorf("part %d: %w", raw.Index, err)
	}

	return &ParsedPart{
		Index:   raw.Index,
		Headers: ParseHeaders(string(headerBlock)),
		Content: content,
	}, nil
}
