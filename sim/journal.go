package sim

// savedNode is the state of a node before the current instant first touched it.
type savedNode struct {
	idx         int
	tL, tN      Time
	pending     bool
	snapshot    any
	hasSnapshot bool
}

// journal records first-touch state so a failed instant can be undone as a whole.
type journal struct {
	marked []bool
	saved  []savedNode
	lost   []string // leaves invoked this instant whose state cannot be restored
}

func newJournal(size int) *journal {
	return &journal{marked: make([]bool, size)}
}

// touch saves the bookkeeping of node idx unless it was already saved during this instant.
func (j *journal) touch(nodes []coordinator, idx int) bool {
	if j.marked[idx] {
		return false
	}
	j.marked[idx] = true
	n := &nodes[idx]
	j.saved = append(j.saved, savedNode{idx: idx, tL: n.tL, tN: n.tN, pending: n.pending})
	return true
}

// touchLeaf is touch for a leaf, also snapshotting models that implement Snapshotter.
// It runs before any transition of the leaf in this instant.
func (j *journal) touchLeaf(nodes []coordinator, idx int, t Time) error {
	if !j.touch(nodes, idx) {
		return nil
	}
	n := &nodes[idx]
	snap, ok := n.atomic.(Snapshotter)
	if !ok {
		return nil
	}
	s := &j.saved[len(j.saved)-1]
	err := guard(func() error {
		s.snapshot = snap.Snapshot()
		return nil
	})
	if err != nil {
		return &ModelError{Model: n.path, Phase: PhaseSnapshot, Time: t, Err: err}
	}
	s.hasSnapshot = true
	return nil
}

// invoked notes that a transition of leaf idx ran. Without a snapshot its effect
// survives a rollback.
func (j *journal) invoked(nodes []coordinator, idx int) {
	if _, ok := nodes[idx].atomic.(Snapshotter); !ok {
		j.lost = append(j.lost, nodes[idx].path)
	}
}

// rollback restores every touched node, newest first, and clears inboxes.
// It returns the paths of models left out of sync with their coordinator, and
// the errors of Restore calls that failed.
func (j *journal) rollback(nodes []coordinator, t Time) (lost []string, errs []error) {
	lost = append(lost, j.lost...)
	for i := len(j.saved) - 1; i >= 0; i-- {
		s := j.saved[i]
		n := &nodes[s.idx]
		n.tL, n.tN, n.pending = s.tL, s.tN, s.pending
		n.inbox = nil
		if !s.hasSnapshot {
			continue
		}
		err := guard(func() error {
			n.atomic.(Snapshotter).Restore(s.snapshot)
			return nil
		})
		if err != nil {
			lost = append(lost, n.path)
			errs = append(errs, &ModelError{Model: n.path, Phase: PhaseRestore, Time: t, Err: err})
		}
	}
	j.reset()
	return lost, errs
}

// reset forgets the instant, keeping the applied changes.
func (j *journal) reset() {
	for _, s := range j.saved {
		j.marked[s.idx] = false
	}
	j.saved = j.saved[:0]
	j.lost = j.lost[:0]
}
