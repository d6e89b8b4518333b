// Package seed bootstraps namespaces from a TOML file at startup.
//
//	[[namespace]]
//	name = "twitter"
//	update_authority = "ops"
//	rent_authority = "ops"
//	approve_authority = "verifier"
//	invalidation_type = "invalidate"
//	transferable_entries = true
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BurntSushi/toml"

	"namespaces/internal/custody"
	"namespaces/internal/registry/models"
	"namespaces/pkg/domain"
	dErrors "namespaces/pkg/domain-errors"
	"namespaces/pkg/requestcontext"
)

type fileConfig struct {
	Namespaces []namespaceConfig `toml:"namespace"`
}

type namespaceConfig struct {
	Name                string  `toml:"name"`
	UpdateAuthority     string  `toml:"update_authority"`
	RentAuthority       string  `toml:"rent_authority"`
	ApproveAuthority    string  `toml:"approve_authority"`
	Schema              uint8   `toml:"schema"`
	PaymentAmountDaily  uint64  `toml:"payment_amount_daily"`
	PaymentMint         string  `toml:"payment_mint"`
	MinRentalSeconds    int64   `toml:"min_rental_seconds"`
	MaxRentalSeconds    *int64  `toml:"max_rental_seconds"`
	TransferableEntries bool    `toml:"transferable_entries"`
	Limit               *uint32 `toml:"limit"`
	MaxExpiration       *int64  `toml:"max_expiration"`
	InvalidationType    string  `toml:"invalidation_type"`
}

// Namespace is one namespace declared in the seed file.
type Namespace struct {
	Name   string
	Config models.NamespaceConfig
}

// Creator creates a namespace signed by the identity on ctx.
type Creator interface {
	Create(ctx context.Context, name string, cfg models.NamespaceConfig) (*models.Namespace, error)
}

// Load parses the seed file at path.
func Load(path string) ([]Namespace, error) {
	var raw fileConfig
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("load namespace seed: %w", err)
	}
	return convert(raw)
}

// Parse parses seed file contents.
func Parse(data string) ([]Namespace, error) {
	var raw fileConfig
	if _, err := toml.Decode(data, &raw); err != nil {
		return nil, fmt.Errorf("parse namespace seed: %w", err)
	}
	return convert(raw)
}

func convert(raw fileConfig) ([]Namespace, error) {
	out := make([]Namespace, 0, len(raw.Namespaces))
	for i, ns := range raw.Namespaces {
		it, err := parseInvalidationType(ns.InvalidationType)
		if err != nil {
			return nil, fmt.Errorf("namespace %d (%q): %w", i, ns.Name, err)
		}
		cfg := models.NamespaceConfig{
			UpdateAuthority:     domain.Identity(strings.TrimSpace(ns.UpdateAuthority)),
			RentAuthority:       domain.Identity(strings.TrimSpace(ns.RentAuthority)),
			Schema:              ns.Schema,
			PaymentAmountDaily:  ns.PaymentAmountDaily,
			PaymentMint:         domain.MintID(strings.TrimSpace(ns.PaymentMint)),
			MinRentalSeconds:    ns.MinRentalSeconds,
			MaxRentalSeconds:    ns.MaxRentalSeconds,
			TransferableEntries: ns.TransferableEntries,
			Limit:               ns.Limit,
			MaxExpiration:       ns.MaxExpiration,
			InvalidationType:    it,
		}
		if approver := strings.TrimSpace(ns.ApproveAuthority); approver != "" {
			id := domain.Identity(approver)
			cfg.ApproveAuthority = &id
		}
		out = append(out, Namespace{Name: strings.TrimSpace(ns.Name), Config: cfg})
	}
	return out, nil
}

func parseInvalidationType(s string) (custody.InvalidationType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "return":
		return custody.InvalidationReturn, nil
	case "invalidate":
		return custody.InvalidationInvalidate, nil
	case "release":
		return custody.InvalidationRelease, nil
	case "reissue":
		return custody.InvalidationReissue, nil
	default:
		return custody.InvalidationUnset, fmt.Errorf("unknown invalidation type %q", s)
	}
}

// Apply creates every namespace that does not exist yet, signed by its
// update authority. It returns the number created.
func Apply(ctx context.Context, creator Creator, namespaces []Namespace, logger *slog.Logger) (int, error) {
	created := 0
	for _, ns := range namespaces {
		signed := requestcontext.WithSigners(ctx, ns.Config.UpdateAuthority)
		_, err := creator.Create(signed, ns.Name, ns.Config)
		switch {
		case err == nil:
			created++
			logger.InfoContext(ctx, "seeded namespace", "namespace", ns.Name)
		case dErrors.HasCode(err, dErrors.CodeConflict):
			logger.DebugContext(ctx, "namespace already exists, skipping seed", "namespace", ns.Name)
		default:
			return created, fmt.Errorf("seed namespace %q: %w", ns.Name, err)
		}
	}
	return created, nil
}
