// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package citation resolves numeric citation markers in reply text.
//
// Markers look like [1] and refer to the id of a citation in the message's
// citation set. A marker may arrive before its citation does; it is then
// returned unresolved and resolves on a later call once the set is known.
// Text from "References:" (or "[References:") to the end is returned as a
// single footer segment and is not scanned for markers.
//
//	segs := citation.Resolve(msg.Text, msg.Citations)
//	for _, s := range segs {
//	    if policy.Interactive(s, msg.Complete()) {
//	        // show s.Citation on selection
//	    }
//	}
package citation
