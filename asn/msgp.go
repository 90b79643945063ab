package asn

import "github.com/tinylib/msgp/msgp"

var _ msgp.Encodable = (*Metadata)(nil)

// EncodeMsg writes md as a MessagePack map using the same keys as its JSON
// form.
func (md *Metadata) EncodeMsg(en *msgp.Writer) error {
	fields := [...][2]string{
		{"asn_registry", md.Registry},
		{"asn", md.ASN},
		{"asn_cidr", md.CIDR},
		{"asn_country_code", md.CountryCode},
		{"asn_date", md.Date},
		{"asn_description", md.Description},
	}
	if err := en.WriteMapHeader(uint32(len(fields))); err != nil {
		return err
	}
	for _, f := range fields {
		if err := en.WriteString(f[0]); err != nil {
			return msgp.WrapError(err, f[0])
		}
		if err := en.WriteString(f[1]); err != nil {
			return msgp.WrapError(err, f[0])
		}
	}
	return nil
}
