package editor

import (
	"unicode"

	"github.com/mattn/go-runewidth"
)

// CellBuffer is the staged text of the cell being edited.
type CellBuffer struct {
	Runes  []rune
	Pos    int
	Scroll int
	Row    int
	Col    int
}

func newBuffer(row, col int, text string) CellBuffer {
	r := []rune(text)
	return CellBuffer{Runes: r, Pos: len(r), Row: row, Col: col}
}

func (b *CellBuffer) String() string { return string(b.Runes) }

func (b *CellBuffer) Insert(text string) {
	ins := []rune(text)
	out := make([]rune, 0, len(b.Runes)+len(ins))
	out = append(out, b.Runes[:b.Pos]...)
	out = append(out, ins...)
	out = append(out, b.Runes[b.Pos:]...)
	b.Runes = out
	b.Pos += len(ins)
}

func (b *CellBuffer) Backspace() {
	if b.Pos == 0 {
		return
	}
	b.Runes = append(b.Runes[:b.Pos-1], b.Runes[b.Pos:]...)
	b.Pos--
}

// DeleteForward removes up to n runes under and after the cursor.
func (b *CellBuffer) DeleteForward(n int) {
	end := min(b.Pos+n, len(b.Runes))
	if b.Pos >= end {
		return
	}
	b.Runes = append(b.Runes[:b.Pos], b.Runes[end:]...)
}

func (b *CellBuffer) Clear() {
	b.Runes = nil
	b.Pos = 0
	b.Scroll = 0
}

func (b *CellBuffer) Move(delta int) {
	b.Pos = clampPos(b.Pos+delta, len(b.Runes))
}

func (b *CellBuffer) Home() { b.Pos = 0 }
func (b *CellBuffer) End()  { b.Pos = len(b.Runes) }

// settle keeps the cursor on a character, as command mode has no end-of-line slot.
func (b *CellBuffer) settle() {
	if b.Pos >= len(b.Runes) {
		b.Pos = max(len(b.Runes)-1, 0)
	}
}

type runeClass int

const (
	classSpace runeClass = iota
	classWord
	classPunct
)

func classOf(r rune) runeClass {
	switch {
	case unicode.IsSpace(r):
		return classSpace
	case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
		return classWord
	default:
		return classPunct
	}
}

// WordForward moves to the start of the next word.
func (b *CellBuffer) WordForward() {
	n := len(b.Runes)
	i := b.Pos
	if i >= n {
		return
	}
	c := classOf(b.Runes[i])
	for i < n && c != classSpace && classOf(b.Runes[i]) == c {
		i++
	}
	for i < n && classOf(b.Runes[i]) == classSpace {
		i++
	}
	b.Pos = i
}

// WordBackward moves to the start of the previous word.
func (b *CellBuffer) WordBackward() {
	i := b.Pos
	for i > 0 && classOf(b.Runes[i-1]) == classSpace {
		i--
	}
	if i == 0 {
		b.Pos = 0
		return
	}
	c := classOf(b.Runes[i-1])
	for i > 0 && classOf(b.Runes[i-1]) == c {
		i--
	}
	b.Pos = i
}

// Visible returns the slice of text that fits width display cells with the cursor
// in view, and the cursor's cell offset within it.
func (b *CellBuffer) Visible(width int) (string, int) {
	if width < 1 {
		width = 1
	}
	if b.Pos < b.Scroll {
		b.Scroll = b.Pos
	}
	for b.Scroll < b.Pos && runewidth.StringWidth(string(b.Runes[b.Scroll:b.Pos])) >= width {
		b.Scroll++
	}
	w := 0
	end := b.Scroll
	for end < len(b.Runes) {
		rw := runewidth.RuneWidth(b.Runes[end])
		if w+rw > width {
			break
		}
		w += rw
		end++
	}
	return string(b.Runes[b.Scroll:end]), runewidth.StringWidth(string(b.Runes[b.Scroll:b.Pos]))
}

func clampPos(p, n int) int {
	if p < 0 {
		return 0
	}
	if p > n {
		return n
	}
	return p
}
