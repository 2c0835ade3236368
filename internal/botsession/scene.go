package botsession

import (
	"fmt"

	"nvc-coach/internal/session"
)

// Scene is the chat+user-scoped UI state slot: which multi-step
// interaction the user is inside (e.g. the guided exercise wizard) and
// where in it they are. Single version so far; future shapes append to
// SceneChain like any other slot.
type Scene struct {
	Version int               `json:"version"`
	Name    string            `json:"name"`
	Step    int               `json:"step"`
	Payload map[string]string `json:"payload"`
}

func newScene(scope session.Scope) any {
	return &Scene{Version: 1, Payload: map[string]string{}}
}

// SceneChain is the scene slot's schema history.
var SceneChain = session.MustChain(SlotScene,
	session.Version{Number: 1, New: newScene},
)

// Slots returns the bot's slot configuration for the session manager.
// Key derivation is a pure function of slot name and scope and must
// stay stable across schema versions: the keys index persisted data.
func Slots() []session.SlotConfig {
	return []session.SlotConfig{
		{
			Chain: DialogChain,
			Key: func(s session.Scope) (string, bool) {
				if s.ChatID == 0 {
					return "", false
				}
				return fmt.Sprintf("chat:%d", s.ChatID), true
			},
		},
		{
			Chain: AccountChain,
			Key: func(s session.Scope) (string, bool) {
				if s.UserID == 0 {
					return "", false
				}
				return fmt.Sprintf("user:%d", s.UserID), true
			},
		},
		{
			Chain: SceneChain,
			Key: func(s session.Scope) (string, bool) {
				if s.ChatID == 0 || s.UserID == 0 {
					return "", false
				}
				return fmt.Sprintf("chat:%d;user:%d", s.ChatID, s.UserID), true
			},
		},
	}
}
