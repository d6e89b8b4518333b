package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"namespaces/internal/custody"
	"namespaces/internal/registry/models"
	"namespaces/internal/registry/store"
	"namespaces/pkg/domain"
	dErrors "namespaces/pkg/domain-errors"
	"namespaces/pkg/platform/sentinel"
)

type LedgerSuite struct {
	suite.Suite
	ledger *Ledger
	ctx    context.Context
	now    time.Time
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.ledger = New()
	s.ctx = context.Background()
	s.now = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (s *LedgerSuite) newNamespace(name string) *models.Namespace {
	ns, err := models.NewNamespace(name, models.NamespaceConfig{
		UpdateAuthority:  "update-authority",
		RentAuthority:    "rent-authority",
		InvalidationType: custody.InvalidationInvalidate,
	}, s.now)
	s.Require().NoError(err)
	return ns
}

// TestCommit verifies writes inside RunInTx become visible after commit.
func (s *LedgerSuite) TestCommit() {
	ns := s.newNamespace("sol")
	entry, err := models.NewEntry(ns, "alice", s.now)
	s.Require().NoError(err)

	err = s.ledger.RunInTx(s.ctx, func(ctx context.Context, stores store.Stores) error {
		if err := stores.Namespaces().Create(ctx, ns); err != nil {
			return err
		}
		if err := stores.Entries().Save(ctx, entry); err != nil {
			return err
		}
		// Reads inside the transaction see its own writes.
		found, err := stores.Entries().FindByID(ctx, entry.ID)
		s.Require().NoError(err)
		s.Equal("alice", found.Name)

		// Readers outside the transaction do not.
		_, err = s.ledger.Entries().FindByID(ctx, entry.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
		return nil
	})
	s.Require().NoError(err)

	found, err := s.ledger.Namespaces().FindByName(s.ctx, "sol")
	s.Require().NoError(err)
	s.Equal(ns.ID, found.ID)

	entries, err := s.ledger.Entries().ListByNamespace(s.ctx, ns.ID)
	s.Require().NoError(err)
	s.Len(entries, 1)
}

// TestRollback verifies that an error from fn discards every staged write.
func (s *LedgerSuite) TestRollback() {
	ns := s.newNamespace("sol")
	s.Require().NoError(s.ledger.Namespaces().Create(s.ctx, ns))

	boom := errors.New("boom")
	err := s.ledger.RunInTx(s.ctx, func(ctx context.Context, stores store.Stores) error {
		found, err := stores.Namespaces().FindByID(ctx, ns.ID)
		s.Require().NoError(err)
		s.Require().NoError(found.IncrementCount(s.now))
		s.Require().NoError(stores.Namespaces().Save(ctx, found))

		entry, err := models.NewEntry(found, "alice", s.now)
		s.Require().NoError(err)
		s.Require().NoError(stores.Entries().Save(ctx, entry))
		return boom
	})
	s.ErrorIs(err, boom)

	found, err := s.ledger.Namespaces().FindByID(s.ctx, ns.ID)
	s.Require().NoError(err)
	s.Zero(found.Count)

	_, err = s.ledger.Entries().FindByID(s.ctx, domain.EntryAddress(ns.ID, "alice"))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestIsolation verifies callers cannot mutate stored records through returned pointers.
func (s *LedgerSuite) TestIsolation() {
	ns := s.newNamespace("sol")
	s.Require().NoError(s.ledger.Namespaces().Create(s.ctx, ns))

	ns.Count = 99
	found, err := s.ledger.Namespaces().FindByID(s.ctx, ns.ID)
	s.Require().NoError(err)
	s.Zero(found.Count)

	found.Count = 42
	again, err := s.ledger.Namespaces().FindByID(s.ctx, ns.ID)
	s.Require().NoError(err)
	s.Zero(again.Count)
}

// TestSentinels verifies the store contract's sentinel errors.
func (s *LedgerSuite) TestSentinels() {
	ns := s.newNamespace("sol")
	s.Require().NoError(s.ledger.Namespaces().Create(s.ctx, ns))

	s.Run("duplicate namespace conflicts", func() {
		err := s.ledger.Namespaces().Create(s.ctx, s.newNamespace("sol"))
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("saving an unknown namespace is not found", func() {
		err := s.ledger.Namespaces().Save(s.ctx, s.newNamespace("other"))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("deleting a missing request is not found", func() {
		err := s.ledger.ClaimRequests().Delete(s.ctx, domain.ClaimRequestAddress(ns.ID, "alice", "bob"))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("deleted reverse entries disappear", func() {
		rev := &models.ReverseEntry{ID: domain.ReverseEntryAddress("bob"), Owner: "bob", NamespaceName: "sol", EntryName: "bob"}
		s.Require().NoError(s.ledger.ReverseEntries().Save(s.ctx, rev))
		err := s.ledger.RunInTx(s.ctx, func(ctx context.Context, stores store.Stores) error {
			return stores.ReverseEntries().Delete(ctx, rev.ID)
		})
		s.Require().NoError(err)
		_, err = s.ledger.ReverseEntries().FindByID(s.ctx, rev.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestPendingRequests verifies pending filtering and creation ordering.
func (s *LedgerSuite) TestPendingRequests() {
	ns := s.newNamespace("sol")
	s.Require().NoError(s.ledger.Namespaces().Create(s.ctx, ns))

	for i, requestor := range []domain.Identity{"carol", "alice", "bob"} {
		req, err := models.NewClaimRequest(ns, "name", requestor, s.now.Add(time.Duration(i)*time.Second))
		s.Require().NoError(err)
		if requestor == "alice" {
			req.ApplyApproval(0, s.now)
		}
		s.Require().NoError(s.ledger.ClaimRequests().Save(s.ctx, req))
	}

	all, err := s.ledger.ClaimRequests().ListByNamespace(s.ctx, ns.ID, false)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal(domain.Identity("carol"), all[0].Requestor)

	pending, err := s.ledger.ClaimRequests().ListByNamespace(s.ctx, ns.ID, true)
	s.Require().NoError(err)
	s.Require().Len(pending, 2)
	s.Equal(domain.Identity("carol"), pending[0].Requestor)
	s.Equal(domain.Identity("bob"), pending[1].Requestor)
}

// TestCancelledContext verifies a cancelled context aborts before fn runs.
func (s *LedgerSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	called := false
	err := s.ledger.RunInTx(ctx, func(context.Context, store.Stores) error {
		called = true
		return nil
	})
	s.False(called)
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
}

// TestSerializedWriters verifies concurrent read-modify-write transactions
// never lose updates.
func (s *LedgerSuite) TestSerializedWriters() {
	ns := s.newNamespace("sol")
	s.Require().NoError(s.ledger.Namespaces().Create(s.ctx, ns))

	const writers = 50
	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.ledger.RunInTx(s.ctx, func(ctx context.Context, stores store.Stores) error {
				found, err := stores.Namespaces().FindByID(ctx, ns.ID)
				if err != nil {
					return err
				}
				if err := found.IncrementCount(s.now); err != nil {
					return err
				}
				return stores.Namespaces().Save(ctx, found)
			})
		}()
	}
	wg.Wait()

	found, err := s.ledger.Namespaces().FindByID(s.ctx, ns.ID)
	s.Require().NoError(err)
	s.Equal(uint32(writers), found.Count)
}
