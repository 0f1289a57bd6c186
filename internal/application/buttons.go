package application

import "telegram-usersettings/internal/domain/ports/adapter"

// Position places a button in one of the keyboard sections.
type Position int

const (
	PosBody Position = iota
	PosHeader
	// PosLBody rows hold a single wide button under the body.
	PosLBody
	PosFooter
)

// maxEdgeCols caps header and footer rows.
const maxEdgeCols = 8

// ButtonMaker collects inline buttons and lays them out as
// header / body / wide body / footer rows.
type ButtonMaker struct {
	header []adapter.Button
	body   []adapter.Button
	lBody  []adapter.Button
	footer []adapter.Button
}

func NewButtonMaker() *ButtonMaker { return &ButtonMaker{} }

func (b *ButtonMaker) DataButton(text, data string, pos ...Position) {
	btn := adapter.Button{Text: text, Data: data}
	p := PosBody
	if len(pos) > 0 {
		p = pos[0]
	}
	switch p {
	case PosHeader:
		b.header = append(b.header, btn)
	case PosLBody:
		b.lBody = append(b.lBody, btn)
	case PosFooter:
		b.footer = append(b.footer, btn)
	default:
		b.body = append(b.body, btn)
	}
}

// BuildMenu returns the keyboard with cols buttons per body row.
func (b *ButtonMaker) BuildMenu(cols int) *adapter.ReplyMarkup {
	if cols <= 0 {
		cols = 1
	}
	var rows [][]adapter.Button
	rows = append(rows, chunk(b.header, maxEdgeCols)...)
	rows = append(rows, chunk(b.body, cols)...)
	rows = append(rows, chunk(b.lBody, 1)...)
	rows = append(rows, chunk(b.footer, maxEdgeCols)...)
	return &adapter.ReplyMarkup{Buttons: rows}
}

func chunk(btns []adapter.Button, n int) [][]adapter.Button {
	var rows [][]adapter.Button
	for len(btns) > 0 {
		end := n
		if end > len(btns) {
			end = len(btns)
		}
		row := make([]adapter.Button, end)
		copy(row, btns[:end])
		rows = append(rows, row)
		btns = btns[end:]
	}
	return rows
}
