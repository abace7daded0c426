// Package related parses multipart/related request bodies.
//
// The first part of the body is the primary part: it replaces the request
// body, or, when it is application/x-www-form-urlencoded, becomes request
// fields. Every following part becomes an Attachment written to temp storage.
// Attachments whose Content-Disposition carries a name are placed in a
// FieldTree following bracket notation ("user[avatar]", "files[]"); the rest
// are only available by position.
//
// # Usage
//
//	parser, err := related.NewParser(related.Config{TempDir: "/var/tmp/uploads"})
//	if err != nil {
//		return err
//	}
//
//	out, err := parser.Parse(ctx, r.Header.Get("Content-Type"), r.Body)
//	if err != nil {
//		http.Error(w, related.BadRequestMessage(err), http.StatusBadRequest)
//		return
//	}
//	defer out.Release(ctx)
//
//	avatar := out.Files.Get("user[avatar]")
//
// # Body format
//
//	--xYz
//	Content-Type: application/json
//
//	{"name": "John"}
//	--xYz
//	Content-Type: image/png
//	Content-Disposition: form-data; name="user[avatar]"; filename="me.png"
//	Content-MD5: 9e107d9d372bb6826bd81d3542a419d6
//
//	<binary>
//	--xYz--
//
// # Integrity
//
// A Content-MD5 mismatch does not fail the parse. The attachment is stored
// with Integrity set to IntegrityMismatch and the decision is left to the
// caller.
//
// # Resources
//
// The whole body is buffered part by part. Stored attachment content is
// owned by the Outcome; call Outcome.Release once the request is done, on
// every exit path.
package related
