package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuleDerivesCodeFromReason(t *testing.T) {
	cases := []struct {
		reason Reason
		code   Code
	}{
		{ReasonNamespaceReachedLimit, CodePolicyViolation},
		{ReasonInvalidApproveAuthority, CodeForbidden},
		{ReasonClaimNotAllowed, CodeStale},
		{ReasonInvalidTokenManager, CodeInvariantViolation},
		{ReasonCountUnderflow, CodeInternal},
		{Reason("Unknown"), CodeInternal},
	}
	for _, tc := range cases {
		t.Run(string(tc.reason), func(t *testing.T) {
			err := Rule(tc.reason, "rejected")
			assert.True(t, HasCode(err, tc.code))
			assert.True(t, HasReason(err, tc.reason))
		})
	}
}

func TestReasonSurvivesWrapping(t *testing.T) {
	inner := Rule(ReasonClaimNotAllowed, "stale approval")
	outer := fmt.Errorf("claim: %w", Wrap(inner, CodeStale, "claim rejected"))

	assert.Equal(t, ReasonClaimNotAllowed, ReasonOf(outer))
	assert.True(t, HasReason(outer, ReasonClaimNotAllowed))
	assert.True(t, HasCode(outer, CodeStale))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "nothing"))
}

func TestErrorMessage(t *testing.T) {
	err := Wrap(errors.New("boom"), CodeInternal, "failed to load")
	assert.Equal(t, "failed to load: boom", err.Error())

	err = Rule(ReasonInvalidEntry, "entry not claimed")
	assert.Equal(t, "InvalidEntry: entry not claimed", err.Error())
}

func TestHasReasonOnPlainError(t *testing.T) {
	assert.False(t, HasReason(errors.New("plain"), ReasonInvalidEntry))
	assert.Equal(t, Reason(""), ReasonOf(errors.New("plain")))
}
