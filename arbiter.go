package surveillance

import "sort"

// Arbitration is a pure policy: it never mutates its inputs and performs no
// IO. The monitor applies whatever it returns.

// selectionLess orders selections by priority ascending, breaking ties on
// the earlier selection time.
func selectionLess(a, b *Selection) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return a.SelectedAt.Before(b.SelectedAt)
}

// Decide returns the selection that should be active given the current
// selections, the freshly observed snapshots and the currently active
// selection (nil for none).
//
// Candidates are auto-activate selections whose snapshot shows activity.
// With no candidates the current active selection is kept: silence never
// forces a deactivation. Otherwise the best candidate wins, except that a
// still-active current selection is kept unless some candidate has strictly
// lower priority, which avoids flapping between peers.
func Decide(selections Selections, snapshots map[string]*ActivitySnapshot, currentActive *Selection) *Selection {
	candidates := make(Selections, 0, len(selections))
	for _, s := range selections {
		if !s.AutoActivate {
			continue
		}
		snap, ok := snapshots[s.ResourceID]
		if ok && snap.HasActivity {
			candidates = append(candidates, s)
		}
	}

	if len(candidates) == 0 {
		return currentActive
	}

	sort.Slice(candidates, func(i, j int) bool {
		return selectionLess(candidates[i], candidates[j])
	})
	best := candidates[0]

	if currentActive == nil {
		return best
	}

	currentIsCandidate := false
	for _, s := range candidates {
		if s.ResourceID == currentActive.ResourceID {
			currentIsCandidate = true
			break
		}
	}
	if currentIsCandidate && best.Priority >= currentActive.Priority {
		return currentActive
	}

	return best
}

// NextByPriority re-runs arbitration ignoring activity entirely: it picks the
// best auto-activate selection by priority order that is not the currently
// active one. When the active selection is the only auto-activate one it is
// returned unchanged.
func NextByPriority(selections Selections, currentActive *Selection) *Selection {
	candidates := make(Selections, 0, len(selections))
	for _, s := range selections {
		if s.AutoActivate {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return currentActive
	}

	sort.Slice(candidates, func(i, j int) bool {
		return selectionLess(candidates[i], candidates[j])
	})

	for _, s := range candidates {
		if currentActive == nil || s.ResourceID != currentActive.ResourceID {
			return s
		}
	}
	return currentActive
}
