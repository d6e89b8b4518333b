//go:build go1.18

package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseIdentity tests that parsing never panics on arbitrary input
// and always returns either a valid identity or an error.
//
// Justification: Trust boundary functions must handle arbitrary input safely.
func FuzzParseIdentity(f *testing.F) {
	f.Add("")
	f.Add("7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU")
	f.Add("'; DROP TABLE entries;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))
	f.Add("alice\x00suffix")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseIdentity(input)
		if err == nil {
			roundTrip, err2 := ParseIdentity(id.String())
			if err2 != nil {
				t.Errorf("valid identity failed round-trip: %v", err2)
			}
			if roundTrip != id {
				t.Error("round-trip changed identity value")
			}
			if len(input) > maxIdentityLength {
				t.Error("oversized input was accepted")
			}
		}
		if !utf8.ValidString(input) && err == nil {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

// FuzzParseRecordID ensures every accepted record id is a full-length digest.
func FuzzParseRecordID(f *testing.F) {
	f.Add(string(NamespaceAddress("ns")))
	f.Add("")
	f.Add("zz")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseRecordID(input)
		if err == nil && len(id.String()) != 64 {
			t.Errorf("accepted record id of length %d", len(id.String()))
		}
	})
}
