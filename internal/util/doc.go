// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by citechat packages.
//
// String helpers are display-width aware (go-runewidth) so that truncated
// previews, log excerpts and citation cards line up in a terminal regardless
// of CJK or emoji content. WriteFileAtomic is used when saving configuration.
//
//	preview := util.TruncateWidth(msg.Text, 60)
//	log.Warn().Str("payload", util.Excerpt(line, 120)).Msg("dropping frame")
package util
