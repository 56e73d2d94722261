package editor

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabedit/internal/document"
	"tabedit/internal/model"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newFixture() (*Session, *document.Document, *clock) {
	c := &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewSession(Options{Now: c.Now})
	doc := document.New(model.NewTable(
		&model.Column{Name: "id", Type: model.TypeInt, Values: []any{int64(1), int64(2), int64(3)}},
		&model.Column{Name: "name", Type: model.TypeText, Values: []any{"ann", "bob", "cy"}},
		&model.Column{Name: "score", Type: model.TypeFloat, Values: []any{1.5, 2.5, nil}},
	))
	return s, doc, c
}

func feed(s *Session, doc *document.Document, keys ...string) Outcome {
	var out Outcome
	for _, k := range keys {
		o := HandleKey(s, doc, k)
		out.Effects = append(out.Effects, o.Effects...)
	}
	return out
}

// leafPaths lists every complete key sequence below n.
func leafPaths(n *leaderNode, prefix []string) [][]string {
	var out [][]string
	for _, c := range n.children {
		p := append(append([]string{}, prefix...), c.key)
		if c.run != nil {
			out = append(out, p)
			continue
		}
		out = append(out, leafPaths(c, p)...)
	}
	return out
}

func branchPaths(n *leaderNode, prefix []string) [][]string {
	out := [][]string{prefix}
	for _, c := range n.children {
		if c.run == nil {
			out = append(out, branchPaths(c, append(append([]string{}, prefix...), c.key))...)
		}
	}
	return out
}

func TestEveryLeaderLeafReturnsToNormal(t *testing.T) {
	paths := leafPaths(normalLeader, nil)
	require.Len(t, paths, 20)
	for _, p := range paths {
		t.Run(strings.Join(p, ""), func(t *testing.T) {
			s, doc, _ := newFixture()
			feed(s, doc, "2", " ")
			pending, _ := s.LeaderPending()
			require.True(t, pending)

			feed(s, doc, p...)
			assert.Equal(t, ModeNormal, s.Mode)
			assert.Zero(t, s.Count)
			pending, _ = s.LeaderPending()
			assert.False(t, pending)
		})
	}
}

func TestInvalidLeaderKeyCancelsWithoutSideEffects(t *testing.T) {
	for _, prefix := range branchPaths(normalLeader, nil) {
		t.Run("prefix "+strings.Join(prefix, ""), func(t *testing.T) {
			s, doc, _ := newFixture()
			before := doc.Table().Clone()
			cur := doc.Cursor()

			keys := append(append([]string{"3", " "}, prefix...), "Z")
			out := feed(s, doc, keys...)

			assert.Empty(t, out.Effects)
			assert.Equal(t, ModeNormal, s.Mode)
			assert.Zero(t, s.Count)
			assert.Contains(t, s.Flash, "no leader binding")
			assert.True(t, before.Equal(doc.Table()))
			assert.Equal(t, cur, doc.Cursor())
			assert.Zero(t, doc.UndoDepth())
			assert.Nil(t, s.LastAction)
		})
	}
}

func TestLeaderTimeout(t *testing.T) {
	s, doc, c := newFixture()
	feed(s, doc, " ", "r")
	c.now = c.now.Add(2 * time.Second)

	assert.True(t, s.ExpireLeader())
	pending, _ := s.LeaderPending()
	assert.False(t, pending)

	// A late leaf is then read as a plain normal-mode key.
	feed(s, doc, " ", "r")
	c.now = c.now.Add(2 * time.Second)
	feed(s, doc, "j")
	assert.Equal(t, 3, doc.Table().NumRows())
	assert.Equal(t, 1, doc.Cursor().Row)
	assert.Equal(t, "leader timed out", s.Flash)
}

func TestLeaderWithinTimeoutRuns(t *testing.T) {
	s, doc, c := newFixture()
	feed(s, doc, " ", "r")
	c.now = c.now.Add(time.Second)
	assert.False(t, s.ExpireLeader())
	feed(s, doc, "j")
	assert.Equal(t, 4, doc.Table().NumRows())
	assert.Equal(t, 1, doc.Cursor().Row)
}

func TestCountsMultiplyMotionsAndClamp(t *testing.T) {
	s, doc, _ := newFixture()
	feed(s, doc, "2", "j")
	assert.Equal(t, document.Cursor{Row: 2, Col: 0}, doc.Cursor())
	assert.Zero(t, s.Count)

	feed(s, doc, "9", "9", "k")
	assert.Equal(t, 0, doc.Cursor().Row)

	feed(s, doc, "l", "l", "0")
	assert.Equal(t, 0, doc.Cursor().Col, "0 without a count goes to the first column")

	feed(s, doc, "1", "0")
	assert.Equal(t, 10, s.Count, "0 after a digit extends the count")

	s.Count = 0
	feed(s, doc, "9", "9", "9", "9", "9")
	assert.Equal(t, MaxCount, s.Count)
}

func TestGotoRows(t *testing.T) {
	s, doc, _ := newFixture()
	feed(s, doc, "G")
	assert.Equal(t, 2, doc.Cursor().Row)
	feed(s, doc, "g")
	assert.Equal(t, 0, doc.Cursor().Row)
	feed(s, doc, "2", "G")
	assert.Equal(t, 1, doc.Cursor().Row)
	feed(s, doc, "$")
	assert.Equal(t, 2, doc.Cursor().Col)
}

func TestCellInsertCommitsOneUndoableEdit(t *testing.T) {
	s, doc, _ := newFixture()
	feed(s, doc, "i", "backspace", "4", "2", "enter")
	assert.Equal(t, ModeNormal, s.Mode)
	assert.Equal(t, int64(42), doc.Table().Cell(0, 0))
	assert.Equal(t, 1, doc.UndoDepth())

	feed(s, doc, "u")
	assert.Equal(t, int64(1), doc.Table().Cell(0, 0))
}

func TestCellInsertCoercionErrorKeepsBuffer(t *testing.T) {
	s, doc, _ := newFixture()
	feed(s, doc, "i", "x", "enter")
	assert.Equal(t, ModeCellInsert, s.Mode)
	assert.Equal(t, "1x", s.Buffer.String())
	assert.Contains(t, s.Flash, "id (int)")
	assert.Equal(t, int64(1), doc.Table().Cell(0, 0))
	assert.Zero(t, doc.UndoDepth())

	feed(s, doc, "backspace", "enter")
	assert.Equal(t, ModeNormal, s.Mode)
	assert.Equal(t, 1, doc.UndoDepth())
}

func TestCellNormalEditing(t *testing.T) {
	s, doc, _ := newFixture()
	doc.SetCursor(0, 1)
	doc.Table().SetCell(0, 1, "hello big world")

	feed(s, doc, "enter")
	require.Equal(t, ModeCellNormal, s.Mode)
	assert.Equal(t, 0, s.Buffer.Pos)

	feed(s, doc, "2", "w")
	assert.Equal(t, 10, s.Buffer.Pos)
	feed(s, doc, "b")
	assert.Equal(t, 6, s.Buffer.Pos)
	feed(s, doc, "3", "x")
	assert.Equal(t, "hello  world", s.Buffer.String())
	feed(s, doc, "$")
	assert.Equal(t, 11, s.Buffer.Pos)
	feed(s, doc, "0", "i", "X", "esc")
	assert.Equal(t, ModeCellNormal, s.Mode)
	assert.Equal(t, "Xhello  world", s.Buffer.String())

	feed(s, doc, "A", "!", "enter")
	assert.Equal(t, "Xhello  world!", doc.Table().Cell(0, 1))
}

func TestCellNormalEscDiscards(t *testing.T) {
	s, doc, _ := newFixture()
	feed(s, doc, "enter", "x", "esc")
	assert.Equal(t, ModeNormal, s.Mode)
	assert.Equal(t, int64(1), doc.Table().Cell(0, 0))
	assert.Zero(t, doc.UndoDepth())
}

func TestCellLeader(t *testing.T) {
	s, doc, _ := newFixture()
	doc.SetCursor(0, 1)

	feed(s, doc, "enter", " ", "c")
	assert.Equal(t, ModeCellInsert, s.Mode)
	assert.Empty(t, s.Buffer.String())

	feed(s, doc, "z", "esc", " ", "a")
	assert.Equal(t, ModeCellInsert, s.Mode)
	assert.Equal(t, 1, s.Buffer.Pos)

	feed(s, doc, "esc", " ", "d")
	assert.Equal(t, ModeCellNormal, s.Mode)
	assert.Empty(t, s.Buffer.String())

	feed(s, doc, " ", "q")
	assert.Equal(t, ModeCellNormal, s.Mode, "an unknown cell leaf stays in cell-normal")
	assert.Contains(t, s.Flash, "no leader binding")
}

func TestVisualClearIsOneUndo(t *testing.T) {
	s, doc, _ := newFixture()
	feed(s, doc, "v", "j", "l", "d")
	assert.Equal(t, ModeNormal, s.Mode)
	assert.Nil(t, doc.Table().Cell(0, 0))
	assert.Nil(t, doc.Table().Cell(1, 1))
	assert.Equal(t, int64(3), doc.Table().Cell(2, 0))
	assert.Equal(t, 1, doc.UndoDepth())

	feed(s, doc, "u")
	assert.Equal(t, "bob", doc.Table().Cell(1, 1))
}

func TestVisualFillIsAllOrNothing(t *testing.T) {
	s, doc, _ := newFixture()
	out := feed(s, doc, "v", "j", "l", "f")
	require.Len(t, out.Effects, 1)
	assert.Equal(t, Prompt{Kind: PromptFill}, out.Effects[0])

	ApplyPrompt(s, doc, PromptFill, "abc")
	assert.Contains(t, s.Flash, `column "id"`)
	assert.Equal(t, int64(1), doc.Table().Cell(0, 0))
	assert.Zero(t, doc.UndoDepth())

	feed(s, doc, "v", "j", "f")
	ApplyPrompt(s, doc, PromptFill, "7")
	assert.Equal(t, int64(7), doc.Table().Cell(0, 0))
	assert.Equal(t, int64(7), doc.Table().Cell(1, 0))
	assert.Equal(t, 1, doc.UndoDepth())
}

func TestVisualYankAsTSV(t *testing.T) {
	s, doc, _ := newFixture()
	out := feed(s, doc, "v", "j", "l", "y")
	require.Len(t, out.Effects, 1)
	assert.Equal(t, Copy{Text: "1\tann\n2\tbob\n", What: "selection"}, out.Effects[0])
	assert.Equal(t, ModeNormal, s.Mode)
}

func TestRepeatAppliesAtCursor(t *testing.T) {
	s, doc, _ := newFixture()
	feed(s, doc, " ", "r", "j")
	require.Equal(t, 4, doc.Table().NumRows())
	assert.Equal(t, ActInsertRowBelow, s.LastAction.Kind)

	feed(s, doc, "G", ".")
	assert.Equal(t, 5, doc.Table().NumRows())
	assert.Equal(t, 4, doc.Cursor().Row)

	feed(s, doc, "g", "i", "9", "enter", "j", ".")
	assert.Equal(t, int64(19), doc.Table().Cell(1, 0))

	feed(s, doc, "v", "l", "x", "j", ".")
	assert.Nil(t, doc.Table().Cell(2, 0))
	assert.Nil(t, doc.Table().Cell(2, 1))
	assert.Equal(t, 2.5, doc.Table().Cell(2, 2))
}

func TestCountedStructuralLeafIsOneUndo(t *testing.T) {
	s, doc, _ := newFixture()
	feed(s, doc, "3", " ", "r", "k")
	assert.Equal(t, 6, doc.Table().NumRows())
	assert.Equal(t, 1, doc.UndoDepth())
	feed(s, doc, "u")
	assert.Equal(t, 3, doc.Table().NumRows())
	assert.Zero(t, doc.UndoDepth())

	feed(s, doc, "j", "5", " ", "r", "d")
	assert.Equal(t, 1, doc.Table().NumRows(), "delete count clamps to the rows below")
	assert.Equal(t, 1, doc.UndoDepth())

	feed(s, doc, "2", " ", "c", "l")
	assert.Equal(t, 5, doc.Table().NumCols())
	assert.Equal(t, 2, doc.UndoDepth())

	feed(s, doc, "3", ".")
	assert.Equal(t, 8, doc.Table().NumCols())
	assert.Equal(t, 3, doc.UndoDepth())
}

func TestRepeatWithNothingRecorded(t *testing.T) {
	s, doc, _ := newFixture()
	feed(s, doc, ".")
	assert.Equal(t, "nothing to repeat", s.Flash)
}

func TestColumnPrompts(t *testing.T) {
	s, doc, _ := newFixture()
	out := feed(s, doc, " ", "c", "r")
	require.Equal(t, []Effect{Prompt{Kind: PromptRename, Initial: "id"}}, out.Effects)
	ApplyPrompt(s, doc, PromptRename, "key")
	assert.Equal(t, "key", doc.Table().Columns[0].Name)

	out = feed(s, doc, "l", " ", "c", "t")
	require.Equal(t, []Effect{Prompt{Kind: PromptRetype, Initial: "text"}}, out.Effects)
	ApplyPrompt(s, doc, PromptRetype, "nope")
	assert.Equal(t, model.TypeText, doc.Table().Columns[1].Type)
	assert.NotEmpty(t, s.Flash)
}

func TestExCommands(t *testing.T) {
	tests := []struct {
		line  string
		dirty bool
		want  []Effect
		flash string
	}{
		{line: "w", want: []Effect{Save{}}},
		{line: "w out.csv", want: []Effect{Save{Path: "out.csv"}}},
		{line: "wq", want: []Effect{Save{Quit: true}}},
		{line: "q", want: []Effect{Quit{}}},
		{line: "q", dirty: true, flash: "unsaved changes"},
		{line: "q!", dirty: true, want: []Effect{Quit{Force: true}}},
		{line: "bogus", flash: "not an editor command: bogus"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			s, doc, _ := newFixture()
			if tt.dirty {
				require.NoError(t, doc.ClearCell(0, 0))
			}
			out := ApplyPrompt(s, doc, PromptEx, tt.line)
			assert.Equal(t, tt.want, out.Effects)
			if tt.flash != "" {
				assert.Contains(t, s.Flash, tt.flash)
			}
		})
	}
}

func TestExSheetAndGotoRow(t *testing.T) {
	s, doc, _ := newFixture()
	ApplyPrompt(s, doc, PromptEx, "sheet extra")
	assert.Equal(t, "extra", doc.Active().Name)
	assert.Equal(t, []string{document.DefaultSheetName, "extra"}, doc.SheetNames())

	feed(s, doc, "[")
	assert.Equal(t, document.DefaultSheetName, doc.Active().Name)
	ApplyPrompt(s, doc, PromptEx, "sheet extra")
	assert.Equal(t, "extra", doc.Active().Name)

	feed(s, doc, "]")
	ApplyPrompt(s, doc, PromptEx, "3")
	assert.Equal(t, 2, doc.Cursor().Row)
}

func TestLeaderEffects(t *testing.T) {
	s, doc, _ := newFixture()
	doc.SetCursor(1, 1)

	out := feed(s, doc, " ", "y", "c")
	assert.Equal(t, []Effect{Copy{Text: "bob", What: "cell"}}, out.Effects)

	out = feed(s, doc, " ", "y", "r")
	assert.Equal(t, []Effect{Copy{Text: "2\tbob\t2.5", What: "row"}}, out.Effects)

	out = feed(s, doc, " ", "y", "t")
	require.Len(t, out.Effects, 1)
	assert.True(t, strings.HasPrefix(out.Effects[0].(Copy).Text, "id,name,score\n"))

	out = feed(s, doc, " ", "o")
	assert.Equal(t, []Effect{ExternalEdit{Row: 1, Col: 1, Text: "bob"}}, out.Effects)

	out = feed(s, doc, " ", "j")
	require.Len(t, out.Effects, 1)
	assert.Contains(t, out.Effects[0].(PreviewJSON).Text, `"name": "bob"`)

	out = feed(s, doc, " ", "p", "c")
	assert.Equal(t, []Effect{Paste{Row: 1, Col: 1}}, out.Effects)

	out = feed(s, doc, "!")
	assert.Equal(t, []Effect{OpenConsole{}}, out.Effects)
}

func TestExternalEditAndPaste(t *testing.T) {
	s, doc, _ := newFixture()
	ApplyExternalEdit(s, doc, ExternalEdit{Row: 2, Col: 1, Text: "cy"}, "cy\n")
	assert.Equal(t, "cell unchanged", s.Flash)
	assert.Zero(t, doc.UndoDepth())

	ApplyExternalEdit(s, doc, ExternalEdit{Row: 2, Col: 1, Text: "cy"}, "cyd\n")
	assert.Equal(t, "cyd", doc.Table().Cell(2, 1))

	ApplyPaste(s, doc, Paste{Row: 0, Col: 2}, "3.25\r\n")
	assert.Equal(t, 3.25, doc.Table().Cell(0, 2))
	assert.Equal(t, ActSetCell, s.LastAction.Kind)

	ApplyPaste(s, doc, Paste{Row: 0, Col: 0}, "not a number")
	assert.Equal(t, int64(1), doc.Table().Cell(0, 0))
	assert.NotEmpty(t, s.Flash)
}

func TestApplyCommitResetsSession(t *testing.T) {
	s, doc, _ := newFixture()
	feed(s, doc, "v", "j")
	next := doc.Table().Clone()
	next.SetCell(0, 0, int64(100))

	require.NoError(t, ApplyCommit(s, doc, next))
	assert.Equal(t, ModeNormal, s.Mode)
	assert.Equal(t, int64(100), doc.Table().Cell(0, 0))
	assert.Equal(t, 1, doc.UndoDepth())
}

func TestHandlePasteOnlyWhileInserting(t *testing.T) {
	s, doc, _ := newFixture()
	assert.False(t, HandlePaste(s, "x"))
	feed(s, doc, "i")
	assert.True(t, HandlePaste(s, "23"))
	assert.Equal(t, "123", s.Buffer.String())
}
