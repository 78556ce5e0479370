package withdrawals

import (
	"sort"
	"sync/atomic"

	"gorollupbridge/types"
)

// Snapshot is an immutable view of the registry. Never modify Entries.
type Snapshot struct {
	Version uint64
	Entries map[string]types.PendingWithdrawal
}

// Registry holds withdrawals that have not been claimed yet, keyed by unique id.
// Mutations copy the latest snapshot and publish it with compare-and-swap,
// so a writer never works on a map captured before someone else's update.
type Registry struct {
	current atomic.Pointer[Snapshot]
}

func New() *Registry {
	r := &Registry{}
	r.current.Store(&Snapshot{Entries: map[string]types.PendingWithdrawal{}})
	return r
}

func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// mutate retries fn on a fresh copy until its result is published.
// fn returns false when nothing changed.
func (r *Registry) mutate(fn func(entries map[string]types.PendingWithdrawal) bool) bool {
	for {
		old := r.current.Load()
		entries := make(map[string]types.PendingWithdrawal, len(old.Entries)+1)
		for k, v := range old.Entries {
			entries[k] = v
		}
		if !fn(entries) {
			return false
		}
		next := &Snapshot{Version: old.Version + 1, Entries: entries}
		if r.current.CompareAndSwap(old, next) {
			return true
		}
	}
}

// Upsert inserts or refreshes an entry. The stored state never moves backward.
func (r *Registry) Upsert(pw types.PendingWithdrawal) {
	r.mutate(func(entries map[string]types.PendingWithdrawal) bool {
		if prev, ok := entries[pw.UniqueID]; ok {
			pw.State = prev.State.Max(pw.State)
			if pw.TxID == "" {
				pw.TxID = prev.TxID
			}
		}
		entries[pw.UniqueID] = pw
		return true
	})
}

// SetState advances the state of an entry, returns the resulting state and
// whether the entry exists.
func (r *Registry) SetState(uniqueID string, state types.OutgoingMessageState) (types.OutgoingMessageState, bool) {
	var result types.OutgoingMessageState
	found := false
	r.mutate(func(entries map[string]types.PendingWithdrawal) bool {
		pw, ok := entries[uniqueID]
		if !ok {
			return false
		}
		found = true
		result = pw.State.Max(state)
		if result == pw.State {
			return false
		}
		pw.State = result
		entries[uniqueID] = pw
		return true
	})
	return result, found
}

func (r *Registry) Remove(uniqueID string) bool {
	return r.mutate(func(entries map[string]types.PendingWithdrawal) bool {
		if _, ok := entries[uniqueID]; !ok {
			return false
		}
		delete(entries, uniqueID)
		return true
	})
}

// Rebuild merges the result of a history scan started at base. Entries of
// base missing from found are dropped, entries added after base are kept, and
// states only move forward. It returns the entries that were not registered yet.
func (r *Registry) Rebuild(base *Snapshot, found []types.PendingWithdrawal) []types.PendingWithdrawal {
	var added []types.PendingWithdrawal
	r.mutate(func(entries map[string]types.PendingWithdrawal) bool {
		added = added[:0]
		seen := make(map[string]bool, len(found))
		for _, pw := range found {
			seen[pw.UniqueID] = true
			if prev, ok := entries[pw.UniqueID]; ok {
				pw.State = prev.State.Max(pw.State)
				if pw.TxID == "" {
					pw.TxID = prev.TxID
				}
			} else {
				added = append(added, pw)
			}
			entries[pw.UniqueID] = pw
		}
		for id := range base.Entries {
			if !seen[id] {
				delete(entries, id)
			}
		}
		return true
	})
	return added
}

func (r *Registry) Get(uniqueID string) (types.PendingWithdrawal, bool) {
	pw, ok := r.current.Load().Entries[uniqueID]
	return pw, ok
}

func (r *Registry) Len() int {
	return len(r.current.Load().Entries)
}

// List returns entries ordered by outbox position.
func (r *Registry) List() []types.PendingWithdrawal {
	snap := r.current.Load()
	out := make([]types.PendingWithdrawal, 0, len(snap.Entries))
	for _, pw := range snap.Entries {
		out = append(out, pw)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Message.ID, out[j].Message.ID
		if a == b {
			return out[i].UniqueID < out[j].UniqueID
		}
		return a.Less(b)
	})
	return out
}
