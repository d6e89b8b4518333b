package seed

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"namespaces/internal/custody"
	"namespaces/internal/namespace/service"
	"namespaces/internal/registry/store/memory"
	"namespaces/pkg/domain"
)

const seedFile = `
[[namespace]]
name = "twitter"
update_authority = "ops"
rent_authority = "ops"
approve_authority = "verifier"
invalidation_type = "invalidate"
transferable_entries = true

[[namespace]]
name = "sol"
update_authority = "ops"
rent_authority = "ops"
invalidation_type = "return"
payment_amount_daily = 50
payment_mint = "usdc"
max_rental_seconds = 864000
limit = 1000
`

func TestParse(t *testing.T) {
	namespaces, err := Parse(seedFile)
	require.NoError(t, err)
	require.Len(t, namespaces, 2)

	twitter := namespaces[0]
	assert.Equal(t, "twitter", twitter.Name)
	require.NotNil(t, twitter.Config.ApproveAuthority)
	assert.Equal(t, domain.Identity("verifier"), *twitter.Config.ApproveAuthority)
	assert.Equal(t, custody.InvalidationInvalidate, twitter.Config.InvalidationType)
	assert.True(t, twitter.Config.TransferableEntries)
	assert.Nil(t, twitter.Config.Limit)

	sol := namespaces[1]
	assert.Equal(t, uint64(50), sol.Config.PaymentAmountDaily)
	require.NotNil(t, sol.Config.MaxRentalSeconds)
	assert.Equal(t, int64(864000), *sol.Config.MaxRentalSeconds)
	require.NotNil(t, sol.Config.Limit)
	assert.Equal(t, uint32(1000), *sol.Config.Limit)
	assert.Nil(t, sol.Config.ApproveAuthority)
}

func TestParse_UnknownInvalidationType(t *testing.T) {
	_, err := Parse("[[namespace]]\nname = \"x\"\ninvalidation_type = \"burn\"\n")
	assert.ErrorContains(t, err, "unknown invalidation type")
}

func TestLoadAndApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "namespaces.toml")
	require.NoError(t, os.WriteFile(path, []byte(seedFile), 0o600))

	namespaces, err := Load(path)
	require.NoError(t, err)

	ledger := memory.New()
	svc := service.New(ledger)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	created, err := Apply(context.Background(), svc, namespaces, logger)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	created, err = Apply(context.Background(), svc, namespaces, logger)
	require.NoError(t, err)
	assert.Zero(t, created)

	listed, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}
