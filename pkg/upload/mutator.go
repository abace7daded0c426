package upload

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmitrymomot/multipartkit/pkg/related"
)

// requestMutator applies a parse outcome to an *http.Request and its State.
type requestMutator struct {
	r     *http.Request
	state *State
}

var _ related.RequestMutator = (*requestMutator)(nil)

func (m *requestMutator) SetBody(body []byte) {
	m.r.Body = io.NopCloser(bytes.NewReader(body))
	m.r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	m.r.ContentLength = int64(len(body))
	m.r.Header.Set("Content-Length", strconv.Itoa(len(body)))
}

func (m *requestMutator) AddHeaders(h *related.Header) {
	h.Each(func(name, value string) {
		m.r.Header.Set(name, value)
	})
}

func (m *requestMutator) RemoveHeader(name string) {
	m.r.Header.Del(name)
}

// AddFields installs the decoded primary part as the request form, so that
// ParseForm leaves it alone. URL query values stay visible through r.Form.
func (m *requestMutator) AddFields(fields url.Values) {
	post := make(url.Values, len(fields))
	for k, vs := range fields {
		post[k] = append([]string(nil), vs...)
	}

	form := m.r.URL.Query()
	for k, vs := range post {
		form[k] = append(append([]string(nil), vs...), form[k]...)
	}

	m.r.PostForm = post
	m.r.Form = form
}

func (m *requestMutator) SetFiles(files *related.FieldTree) {
	m.state.Files = files
}

func (m *requestMutator) SetAttribute(name string, value any) {
	m.state.attributes[name] = value
	if name == related.AttributeAttachments {
		if all, ok := value.([]*related.Attachment); ok {
			m.state.Attachments = all
		}
	}
}
