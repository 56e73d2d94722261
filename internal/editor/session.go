// Package editor is the modal input controller.
//
// All interaction state lives in one Session. HandleKey feeds a key string (as
// produced by bubbletea's KeyMsg.String) through the handler for the current mode.
// Handlers mutate the document directly and return effects, such as prompts,
// clipboard or external editor requests, that only the UI shell can perform.
package editor

import (
	"time"
	"unicode/utf8"

	"tabedit/internal/document"
)

type Mode int

const (
	ModeNormal Mode = iota
	ModeCellInsert
	ModeCellNormal
	ModeVisual
)

func (m Mode) String() string {
	switch m {
	case ModeCellInsert:
		return "INSERT"
	case ModeCellNormal:
		return "CELL"
	case ModeVisual:
		return "VISUAL"
	default:
		return "NORMAL"
	}
}

// MaxCount caps the numeric prefix.
const MaxCount = 9999

// Options configure a session.
type Options struct {
	LeaderKey     string
	LeaderTimeout time.Duration
	// Now is the clock used for leader timeouts; nil means time.Now.
	Now func() time.Time
}

// Session is the whole modal state. Handlers receive it by pointer.
type Session struct {
	Mode   Mode
	Count  int
	Buffer CellBuffer
	// Anchor is the fixed corner of the visual selection.
	Anchor     document.Cursor
	LastAction *Action
	Flash      string
	// FlashErr marks Flash as a failure message.
	FlashErr bool

	leader leaderState
	prompt promptState
	opts   Options
}

func NewSession(opts Options) *Session {
	if opts.LeaderKey == "" {
		opts.LeaderKey = " "
	}
	if opts.LeaderTimeout <= 0 {
		opts.LeaderTimeout = 1500 * time.Millisecond
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Session{opts: opts}
}

// LeaderKey returns the configured leader key string.
func (s *Session) LeaderKey() string { return s.opts.LeaderKey }

// LeaderTimeout returns how long a pending leader sequence stays open.
func (s *Session) LeaderTimeout() time.Duration { return s.opts.LeaderTimeout }

// Reset returns to normal mode, dropping counts, leader state, staged edits and the
// flash message. LastAction survives.
func (s *Session) Reset() {
	s.flash("")
	s.Mode = ModeNormal
	s.Count = 0
	s.Buffer = CellBuffer{}
	s.leader = leaderState{}
}

func (s *Session) flash(msg string) { s.Flash, s.FlashErr = msg, false }

func (s *Session) fail(msg string) { s.Flash, s.FlashErr = msg, true }

// count returns the pending count (at least 1) and clears it.
func (s *Session) count() int {
	n := s.Count
	s.Count = 0
	if n < 1 {
		return 1
	}
	return n
}

// pushDigit appends a digit to the pending count. A leading 0 is not a digit.
func (s *Session) pushDigit(key string) bool {
	if len(key) != 1 || key[0] < '0' || key[0] > '9' {
		return false
	}
	if key == "0" && s.Count == 0 {
		return false
	}
	s.Count = s.Count*10 + int(key[0]-'0')
	if s.Count > MaxCount {
		s.Count = MaxCount
	}
	return true
}

// printable reports whether key is a single rune to be inserted as text.
func printable(key string) (rune, bool) {
	if utf8.RuneCountInString(key) != 1 {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(key)
	if r < 0x20 || r == 0x7f {
		return 0, false
	}
	return r, true
}

// Outcome is what a key produced besides direct document mutation.
type Outcome struct {
	Effects []Effect
}

func (o *Outcome) add(e Effect) { o.Effects = append(o.Effects, e) }

func effect(e Effect) Outcome { return Outcome{Effects: []Effect{e}} }

// HandleKey interprets one key for the current mode.
func HandleKey(s *Session, doc *document.Document, key string) Outcome {
	s.flash("")
	if s.leader.active() && s.leaderExpired() {
		s.leader = leaderState{}
		s.flash("leader timed out")
	}
	if s.leader.active() {
		return handleLeader(s, doc, key)
	}

	switch s.Mode {
	case ModeCellInsert:
		return handleCellInsert(s, doc, key)
	case ModeCellNormal:
		return handleCellNormal(s, doc, key)
	case ModeVisual:
		return handleVisual(s, doc, key)
	default:
		return handleNormal(s, doc, key)
	}
}

// HandlePaste inserts bracketed-paste text into the cell buffer when editing.
func HandlePaste(s *Session, text string) bool {
	if s.Mode != ModeCellInsert {
		return false
	}
	s.Buffer.Insert(text)
	return true
}
