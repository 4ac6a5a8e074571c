// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render draws messages and citations as styled terminal text.
//
// Rendering is pure: the same message, segments and options always give the
// same string. Resolved citation markers are styled by whether the citation
// policy makes them interactive; unresolved markers are shown dimmed and
// unchanged. Completed replies can go through glamour, with markers swapped
// for placeholders so markdown never rewrites them.
package render
