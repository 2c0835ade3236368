// Package botsession defines the session slots the coaching bot keeps
// per chat and per user, together with their full schema history.
// Every shape ever written to storage stays registered here so that
// old records keep loading; new shapes are appended, never inserted.
package botsession

import (
	"fmt"
	"time"

	"nvc-coach/internal/session"
)

// Slot names.
const (
	SlotDialog  = "dialog"
	SlotAccount = "account"
	SlotScene   = "scene"
)

// Message is one exchange line in a dialog, current shape.
type Message struct {
	Role string    `json:"role"` // "user" or "assistant"
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Dialog is the chat-scoped conversation slot at its current version.
// Exercise tracks progress through the four coaching steps
// (observation, feeling, need, request) in the order the user reached
// them.
type Dialog struct {
	Version  int                 `json:"version"`
	ChatID   int64               `json:"chat_id"`
	Messages []Message           `json:"messages"`
	Exercise *session.OrderedMap `json:"exercise"`
}

// Append records one exchange line with the current time.
func (d *Dialog) Append(role, text string) {
	d.Messages = append(d.Messages, Message{Role: role, Text: text, At: time.Now().UTC()})
}

func newDialog(scope session.Scope) any {
	return &Dialog{
		Version:  3,
		ChatID:   scope.ChatID,
		Messages: []Message{},
		Exercise: session.NewOrderedMap(),
	}
}

// dialogV1 is the original shape, written before records carried a
// version tag. Untagged stored dialogs decode as this.
type dialogV1 struct {
	Version  int         `json:"version"`
	Messages []messageV1 `json:"messages"`
}

type messageV1 struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

func newDialogV1(scope session.Scope) any {
	return &dialogV1{Version: 1, Messages: []messageV1{}}
}

// dialogV2 added the owning chat id, per-message timestamps and a
// coaching mode flag. The mode turned out to be redundant once
// exercise tracking landed in v3.
type dialogV2 struct {
	Version  int       `json:"version"`
	ChatID   int64     `json:"chat_id"`
	Messages []Message `json:"messages"`
	Mode     string    `json:"mode"`
}

func newDialogV2(scope session.Scope) any {
	return &dialogV2{Version: 2, ChatID: scope.ChatID, Messages: []Message{}, Mode: "empathy"}
}

func migrateDialogV2(prev any, scope session.Scope) (any, error) {
	v1, ok := prev.(*dialogV1)
	if !ok {
		return nil, fmt.Errorf("dialog v2: unexpected input %T", prev)
	}
	// v1 records never stored the chat id; it comes from the scope of
	// the turn performing the upgrade.
	v2 := &dialogV2{Version: 2, ChatID: scope.ChatID, Messages: make([]Message, 0, len(v1.Messages)), Mode: "empathy"}
	for _, m := range v1.Messages {
		// v1 never recorded times; zero means "before timestamps".
		v2.Messages = append(v2.Messages, Message{Role: m.Role, Text: m.Text})
	}
	return v2, nil
}

func migrateDialogV3(prev any, scope session.Scope) (any, error) {
	v2, ok := prev.(*dialogV2)
	if !ok {
		return nil, fmt.Errorf("dialog v3: unexpected input %T", prev)
	}
	chatID := v2.ChatID
	if chatID == 0 {
		chatID = scope.ChatID
	}
	return &Dialog{
		Version:  3,
		ChatID:   chatID,
		Messages: v2.Messages,
		Exercise: session.NewOrderedMap(),
	}, nil
}

// DialogChain is the dialog slot's complete schema history.
var DialogChain = session.MustChain(SlotDialog,
	session.Version{Number: 1, New: newDialogV1},
	session.Version{Number: 2, New: newDialogV2, Migrate: migrateDialogV2},
	session.Version{Number: 3, New: newDialog, Migrate: migrateDialogV3},
)
