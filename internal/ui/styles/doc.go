// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for citechat.
//
// Colors are lipgloss AdaptiveColors so they follow the terminal background.
// A Theme groups the styles the renderers need; NewTheme detects the
// background with termenv unless a fixed mode is configured.
//
//	theme := styles.NewTheme(os.Stdout, cfg.UI.Theme)
//	fmt.Println(theme.UserLabel.Render("You"))
package styles
