package cli

import (
	"log/slog"
	"time"

	"tabedit/internal/document"
	"tabedit/internal/store"
)

// restoreView and rememberView are best effort: a broken state file never blocks
// editing.
func restoreView(path string, doc *document.Document) {
	st, err := store.LoadViewState()
	if err != nil {
		slog.Warn("view state unreadable", "err", err)
		return
	}
	if st.Restore(path, doc) {
		slog.Debug("view restored", "path", path, "sheet", doc.Active().Name)
	}
}

func rememberView(path string, doc *document.Document) {
	if path == "" {
		return
	}
	st, err := store.LoadViewState()
	if err != nil {
		slog.Warn("view state unreadable", "err", err)
		return
	}
	st.Remember(path, doc, time.Now())
	if err := store.SaveViewState(st); err != nil {
		slog.Warn("view state not saved", "err", err)
	}
}
