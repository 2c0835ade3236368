package telegram

import (
	"context"
	"fmt"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"nvc-coach/internal/auditlog"
	"nvc-coach/internal/botsession"
	"nvc-coach/internal/llm"
	"nvc-coach/internal/session"
)

const exerciseScene = "exercise"

// exerciseSteps are the four stages of the guided practice, in the
// order the user walks through them.
var exerciseSteps = []struct {
	Name   string
	Prompt string
}{
	{"observation", "Step 1/4. Describe what happened, as a camera would see it — no judgments, just facts."},
	{"feeling", "Step 2/4. What are you feeling about it? Name the emotion itself, not a thought about others."},
	{"need", "Step 3/4. Which of your needs is behind that feeling? (e.g. respect, rest, safety, connection)"},
	{"request", "Step 4/4. What concrete, doable request could you make — of yourself or of them?"},
}

func (b *Bot) handleCommand(ctx context.Context, t *session.Turn, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		account, _ := session.Get[*botsession.Account](t, botsession.SlotAccount)
		text := "Hi! I help you rephrase difficult moments in the language of needs and feelings. Just tell me what happened."
		if account != nil {
			text += fmt.Sprintf("\n\nYou have %d messages available.", account.Credits.Available())
		}
		b.sendMessage(msg.Chat.ID, text)
	case "reset":
		t.Clear(botsession.SlotDialog)
		t.Clear(botsession.SlotScene)
		b.sendMessage(msg.Chat.ID, "Conversation cleared. We start fresh.")
	case "balance":
		account, ok := session.Get[*botsession.Account](t, botsession.SlotAccount)
		if !ok {
			b.sendMessage(msg.Chat.ID, "No account in this context.")
			return nil
		}
		b.sendMessage(msg.Chat.ID, fmt.Sprintf("You have %d messages available.", account.Credits.Available()))
	case "exercise":
		scene, ok := session.Get[*botsession.Scene](t, botsession.SlotScene)
		if !ok {
			b.sendMessage(msg.Chat.ID, "The exercise needs a direct chat.")
			return nil
		}
		scene.Name = exerciseScene
		scene.Step = 0
		b.sendMessage(msg.Chat.ID, exerciseSteps[0].Prompt)
	default:
		b.sendMessage(msg.Chat.ID, "I don't know that command. Try /start, /exercise, /balance or /reset.")
	}
	return nil
}

func (b *Bot) handleTurn(ctx context.Context, t *session.Turn, msg *tgbotapi.Message) error {
	if scene, ok := session.Get[*botsession.Scene](t, botsession.SlotScene); ok {
		// A stored scene is structurally valid even when its step no
		// longer points inside the wizard (hand-edited store, schema
		// skew). Drop it instead of indexing past the steps.
		if staleExerciseScene(scene) {
			log.Printf("dropping stale exercise scene for chat %d: step %d", msg.Chat.ID, scene.Step)
			scene.Name = ""
			scene.Step = 0
		}
		if scene.Name == exerciseScene {
			return b.handleExerciseStep(t, scene, msg)
		}
	}
	return b.handleEmpathyReply(ctx, t, msg)
}

// staleExerciseScene reports whether a scene claims the exercise
// wizard but points outside its steps.
func staleExerciseScene(scene *botsession.Scene) bool {
	return scene.Name == exerciseScene && (scene.Step < 0 || scene.Step >= len(exerciseSteps))
}

// handleExerciseStep advances the guided practice wizard. Answers are
// kept in the dialog's ordered exercise map so the summary replays
// them in the order they were given.
func (b *Bot) handleExerciseStep(t *session.Turn, scene *botsession.Scene, msg *tgbotapi.Message) error {
	dialog, ok := session.Get[*botsession.Dialog](t, botsession.SlotDialog)
	if !ok {
		return fmt.Errorf("exercise scene without dialog slot")
	}

	step := exerciseSteps[scene.Step]
	dialog.Exercise.Set(step.Name, msg.Text)
	scene.Step++

	if scene.Step < len(exerciseSteps) {
		b.sendMessage(msg.Chat.ID, exerciseSteps[scene.Step].Prompt)
		return nil
	}

	summary := "Here is your complete expression:\n"
	for _, name := range dialog.Exercise.Keys() {
		answer, _ := dialog.Exercise.Get(name)
		summary += fmt.Sprintf("\n%s: %s", name, answer)
	}
	scene.Name = ""
	scene.Step = 0
	b.sendMessage(msg.Chat.ID, summary)
	return nil
}

func (b *Bot) handleEmpathyReply(ctx context.Context, t *session.Turn, msg *tgbotapi.Message) error {
	dialog, ok := session.Get[*botsession.Dialog](t, botsession.SlotDialog)
	if !ok {
		return fmt.Errorf("turn without dialog slot")
	}
	account, _ := session.Get[*botsession.Account](t, botsession.SlotAccount)

	if account != nil && account.GrantMonthly(time.Now().UTC()) {
		log.Printf("monthly credit gift granted to user %d", account.UserID)
	}
	if account != nil && account.Credits.Available() <= 0 {
		b.sendMessage(msg.Chat.ID, "You are out of messages. New ones arrive with the monthly gift.")
		return nil
	}

	dialog.Append("user", msg.Text)

	resp, err := b.llmClient.Generate(ctx, buildContext(b.systemPrompt, dialog))
	if err != nil {
		return fmt.Errorf("generate reply: %w", err)
	}

	dialog.Append("assistant", resp.Content)
	if account != nil {
		account.Credits.Used++
	}

	if b.recorder != nil {
		ev := auditlog.Event{
			ID:        uuid.NewString(),
			Timestamp: time.Now().UTC(),
			ChatID:    msg.Chat.ID,
			UserID:    msg.From.ID,
			Model:     resp.Model,
			Tokens:    resp.TotalTokens,
		}
		if err := b.recorder.Append(ev); err != nil {
			log.Printf("failed to record turn event: %v", err)
		}
	}

	b.sendMessage(msg.Chat.ID, resp.Content)
	return nil
}

// buildContext assembles the LLM request: system prompt first, then
// the persisted dialog history, which already ends with the user's
// latest message.
func buildContext(systemPrompt string, dialog *botsession.Dialog) []llm.Message {
	var msgs []llm.Message
	if systemPrompt != "" {
		msgs = append(msgs, llm.Message{Role: "system", Content: systemPrompt})
	}
	for _, m := range dialog.Messages {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Text})
	}
	return msgs
}
