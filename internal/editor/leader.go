package editor

import (
	"fmt"
	"strings"
	"time"

	"tabedit/internal/document"
)

// leaderNode is one step of a leader sequence. Nodes with a run func are leaves.
type leaderNode struct {
	key      string
	label    string
	children []*leaderNode
	run      func(s *Session, doc *document.Document) Outcome
}

func (n *leaderNode) child(key string) *leaderNode {
	for _, c := range n.children {
		if c.key == key {
			return c
		}
	}
	return nil
}

// Hints lists the "key label" pairs available from n.
func (n *leaderNode) Hints() []string {
	out := make([]string, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, c.key+" "+c.label)
	}
	return out
}

func branch(key, label string, children ...*leaderNode) *leaderNode {
	return &leaderNode{key: key, label: label, children: children}
}

func leaf(key, label string, run func(s *Session, doc *document.Document) Outcome) *leaderNode {
	return &leaderNode{key: key, label: label, run: run}
}

// act is a leaf running a recorded action with the pending count.
func act(key, label string, kind ActionKind) *leaderNode {
	return leaf(key, label, func(s *Session, doc *document.Document) Outcome {
		_ = perform(s, doc, Action{Kind: kind, Count: s.count()})
		return Outcome{}
	})
}

type leaderState struct {
	node    *leaderNode
	path    []string
	started time.Time
	// back is the mode to return to when the sequence ends.
	back Mode
}

func (l leaderState) active() bool { return l.node != nil }

func (s *Session) startLeader(root *leaderNode) {
	s.leader = leaderState{node: root, started: s.opts.Now(), back: s.Mode}
}

func (s *Session) leaderExpired() bool {
	return s.opts.Now().Sub(s.leader.started) > s.opts.LeaderTimeout
}

// LeaderPending reports whether a leader sequence is open, and what it has matched.
func (s *Session) LeaderPending() (bool, string) {
	if !s.leader.active() {
		return false, ""
	}
	return true, strings.Join(s.leader.path, " ")
}

// LeaderHints lists the keys available at the current leader step.
func (s *Session) LeaderHints() []string {
	if !s.leader.active() {
		return nil
	}
	return s.leader.node.Hints()
}

// ExpireLeader abandons a timed-out leader sequence. It reports whether one was dropped.
func (s *Session) ExpireLeader() bool {
	if !s.leader.active() || !s.leaderExpired() {
		return false
	}
	s.cancelLeader("leader timed out")
	return true
}

func (s *Session) cancelLeader(msg string) {
	back := s.leader.back
	s.leader = leaderState{}
	if back == ModeNormal || back == ModeVisual {
		s.Count = 0
	}
	s.Mode = back
	s.fail(msg)
}

func handleLeader(s *Session, doc *document.Document, key string) Outcome {
	if key == "esc" || key == "ctrl+c" {
		s.cancelLeader("")
		return Outcome{}
	}
	next := s.leader.node.child(key)
	if next == nil {
		seq := append(append([]string{}, s.leader.path...), key)
		s.cancelLeader(fmt.Sprintf("no leader binding for %q", strings.Join(seq, " ")))
		return Outcome{}
	}
	if next.run == nil {
		s.leader.node = next
		s.leader.path = append(s.leader.path, key)
		s.leader.started = s.opts.Now()
		return Outcome{}
	}

	back := s.leader.back
	s.leader = leaderState{}
	s.Mode = back
	out := next.run(s, doc)
	if back == ModeNormal {
		s.Mode = ModeNormal
		s.Count = 0
	}
	return out
}

var normalLeader = branch("", "leader",
	branch("r", "rows",
		act("k", "insert above", ActInsertRowAbove),
		act("j", "insert below", ActInsertRowBelow),
		act("d", "delete", ActDeleteRow),
		act("e", "expand height", ActExpandRows),
		act("c", "collapse height", ActCollapseRows),
	),
	branch("c", "columns",
		act("h", "insert left", ActInsertColumnLeft),
		act("l", "insert right", ActInsertColumnRight),
		act("d", "delete", ActDeleteColumn),
		leaf("r", "rename", func(s *Session, doc *document.Document) Outcome {
			s.Count = 0
			return s.openPrompt(PromptRename, doc.Table().Columns[doc.Cursor().Col].Name)
		}),
		leaf("t", "retype", func(s *Session, doc *document.Document) Outcome {
			s.Count = 0
			return s.openPrompt(PromptRetype, string(doc.Table().Columns[doc.Cursor().Col].Type))
		}),
		act("w", "widen", ActWidenColumn),
		act("n", "narrow", ActNarrowColumn),
	),
	branch("y", "yank",
		leaf("c", "cell", yankCell),
		leaf("r", "row", yankRow),
		leaf("t", "table", yankTable),
	),
	branch("p", "paste",
		leaf("c", "cell", func(_ *Session, doc *document.Document) Outcome {
			cur := doc.Cursor()
			return effect(Paste{Row: cur.Row, Col: cur.Col})
		}),
	),
	leaf("o", "open in editor", openExternal),
	leaf("j", "json preview", previewRow),
	leaf("h", "cycle highlight", func(s *Session, doc *document.Document) Outcome {
		s.flash("highlight: " + doc.CycleHighlight().String())
		return Outcome{}
	}),
	leaf(".", "repeat", func(s *Session, doc *document.Document) Outcome {
		repeat(s, doc, s.count())
		return Outcome{}
	}),
)

var cellLeader = branch("", "cell",
	leaf("a", "append", func(s *Session, _ *document.Document) Outcome {
		s.Buffer.End()
		s.Mode = ModeCellInsert
		return Outcome{}
	}),
	leaf("c", "change", func(s *Session, _ *document.Document) Outcome {
		s.Buffer.Clear()
		s.Mode = ModeCellInsert
		return Outcome{}
	}),
	leaf("d", "clear", func(s *Session, _ *document.Document) Outcome {
		s.Buffer.Clear()
		return Outcome{}
	}),
)
