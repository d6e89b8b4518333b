package domain

import (
	"encoding/binary"
	"encoding/hex"
	"io"
	"unicode/utf8"

	"golang.org/x/crypto/blake2b"

	dErrors "namespaces/pkg/domain-errors"
)

// Identity is an opaque principal key: an authority, a claimant, an issuer.
// Namespaces and custody records also act as identities through RecordID.Identity.
type Identity string

// MintID identifies a token mint known to the custody ledger.
type MintID string

// RecordID is the deterministic address of a registry or custody record.
type RecordID string

// RecordKind is the tag mixed into every derivation so that records of
// different kinds can never share an address.
type RecordKind string

const (
	KindNamespace       RecordKind = "namespace"
	KindEntry           RecordKind = "entry"
	KindClaimRequest    RecordKind = "rent-request"
	KindReverseEntry    RecordKind = "reverse-entry"
	KindMint            RecordKind = "mint"
	KindTokenManager    RecordKind = "token-manager"
	KindCertificate     RecordKind = "certificate"
	KindTimeInvalidator RecordKind = "time-invalidator"
)

const maxIdentityLength = 64

// ParseIdentity validates an identity received at a trust boundary.
func ParseIdentity(s string) (Identity, error) {
	if err := validateKey(s, "identity"); err != nil {
		return "", err
	}
	return Identity(s), nil
}

// ParseMintID validates a mint identifier received at a trust boundary.
func ParseMintID(s string) (MintID, error) {
	if err := validateKey(s, "mint"); err != nil {
		return "", err
	}
	return MintID(s), nil
}

// ParseRecordID validates a hex encoded record address.
func ParseRecordID(s string) (RecordID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "record id required")
	}
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != blake2b.Size256 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid record id")
	}
	return RecordID(s), nil
}

func validateKey(s, what string) error {
	if s == "" {
		return dErrors.New(dErrors.CodeInvalidInput, what+" required")
	}
	if len(s) > maxIdentityLength || !utf8.ValidString(s) {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid "+what)
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.', r == ':':
		default:
			return dErrors.New(dErrors.CodeInvalidInput, "invalid "+what)
		}
	}
	return nil
}

func (i Identity) IsNil() bool { return i == "" }

func (i Identity) String() string { return string(i) }

func (m MintID) IsNil() bool { return m == "" }

func (m MintID) String() string { return string(m) }

func (r RecordID) IsNil() bool { return r == "" }

func (r RecordID) String() string { return string(r) }

// Identity returns the record address in its role as a principal, used when
// a namespace acts as issuer, collector or invalidator.
func (r RecordID) Identity() Identity { return Identity(r) }

// Mint returns the record address in its role as a mint identifier.
func (r RecordID) Mint() MintID { return MintID(r) }

// Derive computes the address of a record from its kind and keys. Every part
// is length prefixed so ("ab","c") and ("a","bc") never collide.
func Derive(kind RecordKind, parts ...string) RecordID {
	h, _ := blake2b.New256(nil)
	writePart(h, string(kind))
	for _, p := range parts {
		writePart(h, p)
	}
	return RecordID(hex.EncodeToString(h.Sum(nil)))
}

func writePart(h io.Writer, p string) {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(p)))
	_, _ = h.Write(lenBuf[:n])
	_, _ = h.Write([]byte(p))
}

// VerifyDerivation recomputes the expected address and compares it with the
// supplied one.
func VerifyDerivation(supplied RecordID, kind RecordKind, parts ...string) bool {
	return supplied == Derive(kind, parts...)
}

// NamespaceAddress is the address of the namespace called name.
func NamespaceAddress(name string) RecordID {
	return Derive(KindNamespace, name)
}

// EntryAddress is the address of entry name inside namespace.
func EntryAddress(namespace RecordID, name string) RecordID {
	return Derive(KindEntry, namespace.String(), name)
}

// ClaimRequestAddress is the address of requestor's claim request for entryName.
func ClaimRequestAddress(namespace RecordID, entryName string, requestor Identity) RecordID {
	return Derive(KindClaimRequest, namespace.String(), entryName, requestor.String())
}

// ReverseEntryAddress is the address of owner's single reverse mapping.
func ReverseEntryAddress(owner Identity) RecordID {
	return Derive(KindReverseEntry, owner.String())
}

// TokenManagerAddress is the canonical custody record address for mint.
func TokenManagerAddress(mint MintID) RecordID {
	return Derive(KindTokenManager, mint.String())
}

// CertificateAddress is the canonical legacy certificate address for mint.
func CertificateAddress(mint MintID) RecordID {
	return Derive(KindCertificate, mint.String())
}

// TimeInvalidatorAddress is the time invalidator bound to a token manager.
func TimeInvalidatorAddress(tokenManager RecordID) RecordID {
	return Derive(KindTimeInvalidator, tokenManager.String())
}

// MintAddress derives the fresh mint for an entry at the given claim counter.
// Each claim advances the counter, so every claim mints a new token.
func MintAddress(entry RecordID, counter uint32) MintID {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], counter)
	return Derive(KindMint, entry.String(), string(buf[:])).Mint()
}
