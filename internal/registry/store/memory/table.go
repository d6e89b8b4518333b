package memory

import (
	"namespaces/pkg/domain"
)

// table is one record map seen through a transaction overlay. Reads fall
// through to base, writes land in writes (a nil value is a tombstone), and
// commit folds writes into base.
//
// A shared table has no overlay: it reads under the ledger's read lock and
// writes straight to base as a single-statement transaction.
type table[V any] struct {
	base   map[domain.RecordID]*V
	writes map[domain.RecordID]*V
	shared *Ledger
}

func newTable[V any](base map[domain.RecordID]*V) *table[V] {
	return &table[V]{base: base, writes: make(map[domain.RecordID]*V)}
}

func sharedTable[V any](l *Ledger, base map[domain.RecordID]*V) *table[V] {
	return &table[V]{base: base, shared: l}
}

func clone[V any](v *V) *V {
	c := *v
	return &c
}

func (t *table[V]) get(id domain.RecordID) (*V, bool) {
	if t.shared != nil {
		t.shared.mu.RLock()
		defer t.shared.mu.RUnlock()
	}
	if v, staged := t.writes[id]; staged {
		if v == nil {
			return nil, false
		}
		return clone(v), true
	}
	v, ok := t.base[id]
	if !ok {
		return nil, false
	}
	return clone(v), true
}

func (t *table[V]) put(id domain.RecordID, v *V) {
	if t.shared != nil {
		t.shared.writeMu.Lock()
		defer t.shared.writeMu.Unlock()
		t.shared.mu.Lock()
		defer t.shared.mu.Unlock()
		t.base[id] = clone(v)
		return
	}
	t.writes[id] = clone(v)
}

func (t *table[V]) del(id domain.RecordID) {
	if t.shared != nil {
		t.shared.writeMu.Lock()
		defer t.shared.writeMu.Unlock()
		t.shared.mu.Lock()
		defer t.shared.mu.Unlock()
		delete(t.base, id)
		return
	}
	t.writes[id] = nil
}

// each visits a copy of every live record. Order is unspecified.
func (t *table[V]) each(fn func(*V)) {
	if t.shared != nil {
		t.shared.mu.RLock()
		defer t.shared.mu.RUnlock()
	}
	for id, v := range t.base {
		if _, staged := t.writes[id]; staged {
			continue
		}
		fn(clone(v))
	}
	for _, v := range t.writes {
		if v != nil {
			fn(clone(v))
		}
	}
}

func (t *table[V]) commit() {
	for id, v := range t.writes {
		if v == nil {
			delete(t.base, id)
			continue
		}
		t.base[id] = v
	}
	clear(t.writes)
}
