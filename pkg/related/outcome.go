package related

import (
	"context"
	"errors"
	"net/url"
	"strconv"
)

// Request attribute names set by Outcome.Apply.
const (
	// AttributeAttachments holds []*Attachment with every attachment.
	AttributeAttachments = "attachments"
	// AttributeLegacy holds the last unnamed attachment; AttributeLegacy+"_<index>"
	// holds the unnamed attachment of part <index>.
	AttributeLegacy = "_multipart_related"
)

// RequestMutator applies a parse outcome to the host's request representation.
type RequestMutator interface {
	SetBody(body []byte)
	AddHeaders(h *Header)
	RemoveHeader(name string)
	AddFields(fields url.Values)
	SetFiles(files *FieldTree)
	SetAttribute(name string, value any)
}

// Primary is the first part of the body: it replaces the request body, or,
// for url-encoded content, becomes request fields.
type Primary struct {
	Headers  *Header
	MIMEType string
	Content  []byte
	// Form is non-nil only when MIMEType is application/x-www-form-urlencoded.
	Form url.Values
}

// IsForm reports whether the primary content was decoded into fields.
func (p *Primary) IsForm() bool {
	return p != nil && p.Form != nil
}

// Outcome is the result of parsing one request.
type Outcome struct {
	// Related is false when the request was not multipart/related and
	// nothing was parsed.
	Related   bool
	MediaType string
	Boundary  string
	Primary   *Primary
	// Files holds attachments that carried a form name.
	Files *FieldTree
	// Attachments holds every attachment in body order.
	Attachments []*Attachment
	// Unnamed holds attachments without a form name.
	Unnamed []*Attachment
}

func (o *Outcome) add(a *Attachment) {
	o.Attachments = append(o.Attachments, a)
	if a.FormName != "" {
		o.Files.Set(a.FormName, a)
		return
	}
	o.Unnamed = append(o.Unnamed, a)
}

// IntegrityFailures returns the attachments whose Content-MD5 did not match.
func (o *Outcome) IntegrityFailures() []*Attachment {
	var out []*Attachment
	for _, a := range o.Attachments {
		if a.Integrity.Failed() {
			out = append(out, a)
		}
	}
	return out
}

// Apply hands the outcome to the host request. It does nothing when the
// request was not multipart/related.
func (o *Outcome) Apply(m RequestMutator) {
	if o == nil || !o.Related {
		return
	}

	m.AddHeaders(o.Primary.Headers)
	if !o.Primary.Headers.Has(HeaderContentType) {
		m.RemoveHeader("Content-Type")
	}

	if o.Primary.IsForm() {
		m.AddFields(o.Primary.Form)
	} else {
		m.SetBody(o.Primary.Content)
	}

	m.SetFiles(o.Files)

	for _, a := range o.Unnamed {
		m.SetAttribute(AttributeLegacy+"_"+strconv.Itoa(a.Index), a)
		m.SetAttribute(AttributeLegacy, a)
	}

	attachments := make([]*Attachment, len(o.Attachments))
	copy(attachments, o.Attachments)
	m.SetAttribute(AttributeAttachments, attachments)
}

// Release deletes the stored content of every attachment.
// It is safe to call more than once; only failed releases are retried.
func (o *Outcome) Release(ctx context.Context) error {
	if o == nil {
		return nil
	}
	var errs []error
	for _, a := range o.Attachments {
		if err := a.release(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
