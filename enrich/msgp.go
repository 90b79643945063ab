package enrich

import (
	"slices"

	"github.com/tinylib/msgp/msgp"
)

var (
	_ msgp.Encodable = Entry{}
	_ msgp.Encodable = Result{}
)

// EncodeMsg writes the metadata map, or the failure note as a string.
func (e Entry) EncodeMsg(en *msgp.Writer) error {
	if e.Failed() {
		return en.WriteString(e.Failure)
	}
	return e.Metadata.EncodeMsg(en)
}

// EncodeMsg writes r as a MessagePack map with keys in sorted order.
func (r Result) EncodeMsg(en *msgp.Writer) error {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	if err := en.WriteMapHeader(uint32(len(keys))); err != nil {
		return err
	}
	for _, k := range keys {
		if err := en.WriteString(k); err != nil {
			return msgp.WrapError(err, k)
		}
		if err := r[k].EncodeMsg(en); err != nil {
			return msgp.WrapError(err, k)
		}
	}
	return nil
}
