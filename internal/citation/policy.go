// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package citation

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Policy decides when resolved citation refs become interactive.
type Policy int

const (
	// PolicyAlways makes resolved refs interactive while the reply streams.
	PolicyAlways Policy = iota
	// PolicyWhenComplete waits until the owning message is complete.
	PolicyWhenComplete
)

// String returns the config spelling of the policy.
func (p Policy) String() string {
	if p == PolicyWhenComplete {
		return "when_complete"
	}
	return "always"
}

// ParsePolicy parses "always" or "when_complete" (case-insensitive).
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "always":
		return PolicyAlways, nil
	case "when_complete", "when-complete", "complete":
		return PolicyWhenComplete, nil
	default:
		return PolicyAlways, fmt.Errorf("unknown citation policy %q (want always or when_complete)", s)
	}
}

// Interactive reports whether seg may be selected to show its citation.
// Unresolved refs are never interactive.
func (p Policy) Interactive(seg Segment, messageComplete bool) bool {
	if !seg.Resolved() {
		return false
	}
	return p == PolicyAlways || messageComplete
}

// InteractiveRefs returns the interactive segments in display order.
func (p Policy) InteractiveRefs(segs []Segment, messageComplete bool) []Segment {
	return lo.Filter(segs, func(s Segment, _ int) bool {
		return p.Interactive(s, messageComplete)
	})
}
