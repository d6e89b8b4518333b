package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "namespaces/pkg/domain-errors"
)

// TestParseIdentity_Invariants validates the parsing invariant:
// "identities are non-empty, bounded and drawn from a restricted alphabet"
//
// Justification: identities arrive in JWT subjects and request bodies, so
// parsing is the trust boundary.
func TestParseIdentity_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseIdentity("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects oversized input", func(t *testing.T) {
		_, err := ParseIdentity(strings.Repeat("a", maxIdentityLength+1))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts a derived record address", func(t *testing.T) {
		addr := NamespaceAddress("twitter")
		parsed, err := ParseIdentity(addr.String())
		require.NoError(t, err)
		assert.Equal(t, addr.Identity(), parsed)
	})

	t.Run("accepts key-like identities", func(t *testing.T) {
		parsed, err := ParseIdentity("7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU")
		require.NoError(t, err)
		assert.False(t, parsed.IsNil())
	})
}

// TestParseID_SecurityInvariants validates that injection-shaped input is
// rejected at API entry points.
func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"sql injection", "'; DROP TABLE entries;--"},
		{"path traversal", "../../etc/passwd"},
		{"null byte", "abc\x00def"},
		{"whitespace", "abc def"},
		{"unicode lookalike", "аlice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseIdentity(tt.input)
			assert.Error(t, err)
			_, err = ParseMintID(tt.input)
			assert.Error(t, err)
			_, err = ParseRecordID(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestParseRecordID(t *testing.T) {
	t.Run("accepts derived addresses", func(t *testing.T) {
		addr := EntryAddress(NamespaceAddress("ns"), "alice")
		parsed, err := ParseRecordID(addr.String())
		require.NoError(t, err)
		assert.Equal(t, addr, parsed)
	})

	t.Run("rejects short hex", func(t *testing.T) {
		_, err := ParseRecordID("abcd")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// TestDerive verifies the derive-then-verify addressing contract.
func TestDerive(t *testing.T) {
	t.Run("same tuple yields the same record", func(t *testing.T) {
		assert.Equal(t, Derive(KindEntry, "a", "b"), Derive(KindEntry, "a", "b"))
	})

	t.Run("kind separates address spaces", func(t *testing.T) {
		assert.NotEqual(t, Derive(KindEntry, "a"), Derive(KindReverseEntry, "a"))
	})

	t.Run("length prefix prevents concatenation collisions", func(t *testing.T) {
		assert.NotEqual(t, Derive(KindEntry, "ab", "c"), Derive(KindEntry, "a", "bc"))
	})

	t.Run("verification recomputes the address", func(t *testing.T) {
		mint := MintID("mint-1")
		assert.True(t, VerifyDerivation(TokenManagerAddress(mint), KindTokenManager, mint.String()))
		assert.False(t, VerifyDerivation(TokenManagerAddress("mint-2"), KindTokenManager, mint.String()))
	})

	t.Run("each claim counter mints a distinct token", func(t *testing.T) {
		entry := EntryAddress(NamespaceAddress("ns"), "alice")
		assert.NotEqual(t, MintAddress(entry, 0), MintAddress(entry, 1))
		assert.Equal(t, MintAddress(entry, 3), MintAddress(entry, 3))
	})

	t.Run("claim request is keyed by namespace, entry and requestor", func(t *testing.T) {
		ns := NamespaceAddress("ns")
		assert.NotEqual(t,
			ClaimRequestAddress(ns, "alice", "r1"),
			ClaimRequestAddress(ns, "alice", "r2"))
		assert.NotEqual(t,
			ClaimRequestAddress(ns, "alice", "r1"),
			ClaimRequestAddress(NamespaceAddress("other"), "alice", "r1"))
	})
}
