package related

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// RawPart is one boundary-delimited section of the body, exactly as read:
// line terminators included, nothing trimmed.
type RawPart struct {
	Index int
	Data  []byte
}

type scanState int

const (
	stateSeeking scanState = iota
	stateAccumulating
	stateTerminated
)

// Scan splits body into raw parts delimited by "--boundary" lines.
// Lines before the first delimiter are skipped as preamble; the closing
// "--boundary--" line ends the scan, and a missing one is tolerated.
// A part is created by its first line, so adjacent delimiters never produce
// an empty part.
func Scan(body io.Reader, boundary string) ([]RawPart, error) {
	br, ok := body.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(body)
	}

	if _, err := br.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyBody
		}
		return nil, fmt.Errorf("%w: %w", ErrReadFailure, err)
	}

	delimiter := []byte("--" + boundary)
	endDelimiter := []byte("--" + boundary + "--")

	var (
		parts []RawPart
		state = stateSeeking
		index = -1 // index of the part the next line belongs to
	)

	for state != stateTerminated {
		line, err := br.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %w", ErrReadFailure, err)
		}
		eof := err != nil

		if len(line) > 0 {
			trimmed := bytes.TrimRight(line, "\r\n")
			switch state {
			case stateSeeking:
				if bytes.Equal(trimmed, delimiter) {
					state = stateAccumulating
					index = 0
				}
			case stateAccumulating:
				switch {
				case bytes.Equal(trimmed, delimiter):
					if len(parts) > 0 && parts[len(parts)-1].Index == index {
						index++
					}
				case bytes.Equal(trimmed, endDelimiter):
					state = stateTerminated
				default:
					if len(parts) == 0 || parts[len(parts)-1].Index != index {
						parts = append(parts, RawPart{Index: index})
					}
					last := &parts[len(parts)-1]
					last.Data = append(last.Data, line...)
				}
			}
		}

		if eof {
			break
		}
	}

	if state == stateSeeking {
		return nil, ErrMissingBoundaryDelimiter
	}
	if len(parts) == 0 {
		return nil, ErrMalformedBody
	}

	return parts, nil
}
