package upload

import (
	"fmt"
	"net/http"
	"reflect"

	"github.com/dmitrymomot/multipartkit/pkg/related"
)

// TagName is the struct tag read by Binder.
const TagName = "related"

var (
	attachmentType    = reflect.TypeOf(related.Attachment{})
	attachmentPtrType = reflect.TypeOf(&related.Attachment{})
)

// Binder returns a binder that fills struct fields tagged `related:"name"`
// from the attachments the middleware stored for r. The name uses the same
// bracket notation as the form name; "docs[]" selects every attachment
// below docs.
//
// Supported field types:
//   - *related.Attachment - optional single attachment
//   - related.Attachment - single attachment
//   - []*related.Attachment - every attachment at or below the name
//
// Example:
//
//	type Request struct {
//		Avatar *related.Attachment   `related:"user[avatar]"`
//		Docs   []*related.Attachment `related:"docs[]"`
//	}
//
//	var req Request
//	if err := upload.Binder()(r, &req); err != nil {
//		http.Error(w, err.Error(), http.StatusBadRequest)
//		return
//	}
//
// Requests that were not multipart/related leave v untouched.
func Binder() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
			return ErrInvalidTarget
		}

		state, ok := FromContext(r.Context())
		if !ok {
			return nil
		}

		rv = rv.Elem()
		rt := rv.Type()

		for i := 0; i < rv.NumField(); i++ {
			field := rv.Field(i)
			fieldType := rt.Field(i)

			if !field.CanSet() {
				continue
			}

			tag := fieldType.Tag.Get(TagName)
			if tag == "" || tag == "-" {
				continue
			}

			node := state.Files.Lookup(tag)
			if node == nil {
				continue
			}

			if err := setAttachmentField(field, node); err != nil {
				return fmt.Errorf("%w: field %s: %s", ErrUnsupportedField, fieldType.Name, field.Type())
			}
		}

		return nil
	}
}

func setAttachmentField(field reflect.Value, node *related.Node) error {
	switch field.Type() {
	case attachmentPtrType:
		if a := firstLeaf(node); a != nil {
			field.Set(reflect.ValueOf(a))
		}
		return nil
	case attachmentType:
		if a := firstLeaf(node); a != nil {
			field.Set(reflect.ValueOf(a).Elem())
		}
		return nil
	case reflect.SliceOf(attachmentPtrType):
		field.Set(reflect.ValueOf(node.Leaves()))
		return nil
	default:
		return ErrUnsupportedField
	}
}

// firstLeaf returns the attachment at node, or the first one below it.
func firstLeaf(node *related.Node) *related.Attachment {
	if a := node.Attachment(); a != nil {
		return a
	}
	if leaves := node.Leaves(); len(leaves) > 0 {
		return leaves[0]
	}
	return nil
}
