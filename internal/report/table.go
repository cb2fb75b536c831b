// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package report

import (
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

const columnGap = "  "

// table is a plain text table. Column widths are measured in terminal cells, so station names
// with umlauts or wide runes stay aligned.
type table struct {
	header []string
	rows   [][]string
	right  map[int]bool
}

func newTable(header ...string) *table {
	return &table{header: header, right: make(map[int]bool)}
}

func (t *table) alignRight(columns ...int) {
	for _, col := range columns {
		t.right[col] = true
	}
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) widths() []int {
	widths := make([]int, len(t.header))
	for i, h := range t.header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	return widths
}

func (t *table) write(w io.Writer) error {
	widths := t.widths()
	rule := make([]string, len(widths))
	for i, width := range widths {
		rule[i] = strings.Repeat("-", width)
	}

	var sb strings.Builder
	t.line(&sb, t.header, widths)
	t.line(&sb, rule, widths)
	for _, row := range t.rows {
		t.line(&sb, row, widths)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func (t *table) line(sb *strings.Builder, cells []string, widths []int) {
	padded := make([]string, len(widths))
	for i, width := range widths {
		var cell string
		if i < len(cells) {
			cell = cells[i]
		}
		if t.right[i] {
			padded[i] = runewidth.FillLeft(cell, width)
			continue
		}
		padded[i] = runewidth.FillRight(cell, width)
	}
	sb.WriteString(strings.TrimRight(strings.Join(padded, columnGap), " "))
	sb.WriteByte('\n')
}
