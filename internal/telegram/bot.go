package telegram

import (
	"context"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nvc-coach/internal/auditlog"
	"nvc-coach/internal/llm"
	"nvc-coach/internal/queue"
	"nvc-coach/internal/session"
)

type Bot struct {
	api          *tgbotapi.BotAPI
	sessions     *session.Manager
	turns        *queue.Queue
	llmClient    llm.Client
	systemPrompt string
	recorder     auditlog.Recorder
	adminUserID  int64
}

func New(botToken string, sessions *session.Manager, turns *queue.Queue, llmClient llm.Client, systemPrompt string, recorder auditlog.Recorder, adminUserID int64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	return &Bot{
		api:          api,
		sessions:     sessions,
		turns:        turns,
		llmClient:    llmClient,
		systemPrompt: systemPrompt,
		recorder:     recorder,
		adminUserID:  adminUserID,
	}, nil
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "my_chat_member"}

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.MyChatMember != nil {
				b.handleChatMember(ctx, update.MyChatMember)
				continue
			}
			if update.Message != nil && update.Message.From != nil {
				b.handleIncomingMessage(ctx, update.Message)
				continue
			}
		}
	}
}

// handleIncomingMessage runs one conversational turn. The queue keeps
// turns for the same chat strictly ordered, so the load-mutate-persist
// cycle inside never races with another message from that chat.
func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	scope := session.Scope{ChatID: chatID, UserID: msg.From.ID}

	err := b.turns.Do(ctx, chatID, func(ctx context.Context) error {
		return b.sessions.Run(ctx, scope, func(t *session.Turn) error {
			if msg.IsCommand() {
				return b.handleCommand(ctx, t, msg)
			}
			return b.handleTurn(ctx, t, msg)
		})
	})
	if err != nil {
		log.Printf("turn failed for chat %d: %v", chatID, err)
		b.sendMessage(chatID, "Sorry, something went wrong. Please try again.")
	}
}

// handleChatMember tears down chat-scoped session state when the bot
// is removed from a chat.
func (b *Bot) handleChatMember(ctx context.Context, upd *tgbotapi.ChatMemberUpdated) {
	if upd.NewChatMember.User == nil || upd.NewChatMember.User.ID != b.api.Self.ID {
		return
	}
	status := upd.NewChatMember.Status
	if status != "kicked" && status != "left" {
		return
	}
	log.Printf("removed from chat %d, dropping its session state", upd.Chat.ID)
	if err := b.sessions.Forget(ctx, session.Scope{ChatID: upd.Chat.ID}); err != nil {
		log.Printf("failed to drop session state for chat %d: %v", upd.Chat.ID, err)
	}
}

// SendAdminReport delivers a text report to the configured admin chat.
func (b *Bot) SendAdminReport(ctx context.Context, text string) error {
	if b.adminUserID == 0 {
		return nil
	}
	_, err := b.api.Send(tgbotapi.NewMessage(b.adminUserID, text))
	return err
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("failed to send message: %v", err)
	}
}
