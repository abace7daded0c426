package related

import (
	"net/url"
	"regexp"
	"strings"
)

// Header names read by the parser. FormName and FileName are synthetic:
// they are extracted from Content-Disposition.
const (
	HeaderContentType        = "content-type"
	HeaderContentLength      = "content-length"
	HeaderContentMD5         = "content-md5"
	HeaderContentDisposition = "content-disposition"
	HeaderFormName           = "form-name"
	HeaderFileName           = "file-name"
)

var (
	dispositionName     = regexp.MustCompile(`(?:^|form-data;\s*)name="?([^";]+)("|;|$)`)
	dispositionFilename = regexp.MustCompile(`filename="?([^";]+)("|;|$)`)
	lineBreaks          = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// Header is an ordered, case-insensitive header mapping.
// Setting an existing name keeps its original position and replaces the value.
type Header struct {
	names  []string
	values map[string]string
}

// NewHeader returns an empty Header.
func NewHeader() *Header {
	return &Header{values: make(map[string]string)}
}

// Set stores value under the lowercased name.
func (h *Header) Set(name, value string) {
	name = strings.ToLower(name)
	if _, ok := h.values[name]; !ok {
		h.names = append(h.names, name)
	}
	h.values[name] = value
}

// Get returns the value for name, or "" when absent.
func (h *Header) Get(name string) string {
	if h == nil {
		return ""
	}
	return h.values[strings.ToLower(name)]
}

// Lookup returns the value for name and whether it was present.
func (h *Header) Lookup(name string) (string, bool) {
	if h == nil {
		return "", false
	}
	v, ok := h.values[strings.ToLower(name)]
	return v, ok
}

// Has reports whether name is present.
func (h *Header) Has(name string) bool {
	_, ok := h.Lookup(name)
	return ok
}

// Names returns header names in insertion order.
func (h *Header) Names() []string {
	if h == nil {
		return nil
	}
	out := make([]string, len(h.names))
	copy(out, h.names)
	return out
}

// Len returns the number of distinct headers.
func (h *Header) Len() int {
	if h == nil {
		return 0
	}
	return len(h.names)
}

// Each calls fn for every header in insertion order.
func (h *Header) Each(fn func(name, value string)) {
	if h == nil {
		return
	}
	for _, name := range h.names {
		fn(name, h.values[name])
	}
}

// ParseHeaders parses a header block. CRLF, CR and LF all end a line.
// Each line is split on its first colon, so values may contain colons;
// lines without one are ignored.
func ParseHeaders(block string) *Header {
	h := NewHeader()

	for _, line := range strings.Split(lineBreaks.Replace(block), "\n") {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}

		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		value = strings.TrimSpace(value)
		h.Set(name, value)

		if name == HeaderContentDisposition {
			parseDisposition(h, value)
		}
	}

	return h
}

// parseDisposition stores the form field name and the URL-decoded filename
// of a Content-Disposition value as synthetic headers.
func parseDisposition(h *Header, value string) {
	if m := dispositionName.FindStringSubmatch(value); m != nil {
		h.Set(HeaderFormName, strings.TrimSpace(m[1]))
	}

	if m := dispositionFilename.FindStringSubmatch(value); m != nil {
		name := strings.TrimSpace(m[1])
		if decoded, err := url.QueryUnescape(name); err == nil {
			name = decoded
		}
		h.Set(HeaderFileName, name)
	}
}
