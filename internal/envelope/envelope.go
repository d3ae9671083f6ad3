// Package envelope encodes the error body shared by the API and the sandbox
// payment processor:
//
//	{"errors": {"<context>": {"code": "<code>", "name": "<message>"}}}
package envelope

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Entry is one error in an envelope.
type Entry struct {
	Context string
	Code    string
	Name    string
}

// Encode appends the envelope for entry to e.
func Encode(e *jx.Encoder, entry Entry) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("errors", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field(entry.Context, func(e *jx.Encoder) {
					e.Obj(func(e *jx.Encoder) {
						e.Field("code", func(e *jx.Encoder) { e.Str(entry.Code) })
						e.Field("name", func(e *jx.Encoder) { e.Str(entry.Name) })
					})
				})
			})
		})
	})
}

// Write sends the envelope with the given status.
func Write(w http.ResponseWriter, status int, entry Entry) {
	var e jx.Encoder
	Encode(&e, entry)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// Decode reads the first entry of an envelope.
func Decode(data []byte) (Entry, error) {
	var (
		out   Entry
		found bool
	)
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		if key != "errors" {
			return d.Skip()
		}
		return d.Obj(func(d *jx.Decoder, context string) error {
			if found {
				return d.Skip()
			}
			found = true
			out.Context = context
			return d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "code":
					out.Code, err = d.Str()
				case "name":
					out.Name, err = d.Str()
				default:
					err = d.Skip()
				}
				return err
			})
		})
	})
	if err != nil {
		return Entry{}, errors.Wrap(err, "decode error envelope")
	}
	if !found {
		return Entry{}, errors.New("no error in envelope")
	}
	return out, nil
}
