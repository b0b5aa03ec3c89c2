package control

import (
	"strings"

	"github.com/user/cliprec/pkg/pipeline"
)

// Key actions as sent by the browser.
const (
	KeyDown = "down"
	KeyUp   = "up"
)

// KeyEvent maps a key transition to a control event. Holding Space records,
// Backspace removes the last clip and Enter finishes the session. Key names
// follow KeyboardEvent.code and are matched case-insensitively.
func KeyEvent(key, action string) (pipeline.Event, bool) {
	switch strings.ToLower(key) {
	case "space", " ":
		switch action {
		case KeyDown:
			return pipeline.EventStart, true
		case KeyUp:
			return pipeline.EventStop, true
		}
	case "backspace":
		if action == KeyDown {
			return pipeline.EventUndo, true
		}
	case "enter", "numpadenter":
		if action == KeyDown {
			return pipeline.EventFinish, true
		}
	}
	return 0, false
}
