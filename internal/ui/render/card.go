// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"fmt"
	"strings"

	"github.com/jeranaias/citechat/internal/model"
	"github.com/jeranaias/citechat/internal/ui/styles"
	"github.com/jeranaias/citechat/internal/util"
)

// maxCardLines bounds the excerpt shown in a citation card.
const maxCardLines = 8

// CitationCard renders a boxed view of one citation: title, page and an
// excerpt of its content wrapped to width.
func CitationCard(th *styles.Theme, c model.Citation, width int) string {
	if th == nil {
		th = styles.DefaultTheme()
	}
	if width < 20 {
		width = 20
	}
	inner := width - 4 // border and padding

	title := th.CardTitle.Render(util.TruncateWidth(fmt.Sprintf("[%d] %s", c.ID, c.Source), inner))
	lines := []string{title}
	if c.Page > 0 {
		lines = append(lines, th.CardMeta.Render(fmt.Sprintf("page %d", c.Page)))
	}

	if content := strings.TrimSpace(c.Content); content != "" {
		wrapped := strings.Split(wrap(content, inner), "\n")
		if len(wrapped) > maxCardLines {
			wrapped = wrapped[:maxCardLines]
			last := strings.TrimRight(wrapped[maxCardLines-1], " ")
			wrapped[maxCardLines-1] = util.TruncateWidth(last+util.Ellipsis, inner)
		}
		lines = append(lines, "", th.CardContent.Render(strings.Join(wrapped, "\n")))
	}

	return th.CardBox.Width(inner + 2).Render(strings.Join(lines, "\n"))
}
