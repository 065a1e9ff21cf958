package notifier

import (
	"context"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// CommandHandler is called when a user command is received.
type CommandHandler func(command string) string

// StartPolling begins long-polling for Telegram commands. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.API.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			t.API.StopReceivingUpdates()
			log.Println("[INFO] Telegram polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			t.dispatch(update, handler)
		}
	}
}

func (t *TelegramNotifier) dispatch(update tgbotapi.Update, handler CommandHandler) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	text := strings.TrimSpace(update.Message.Text)
	if cmd := update.Message.Command(); cmd != "" {
		text = "/" + cmd
	}
	log.Printf("[INFO] received command: %s", text)

	reply := handler(text)
	if reply == "" {
		return
	}
	if err := t.sendTo(update.Message.Chat.ID, reply); err != nil {
		log.Printf("[ERROR] send reply: %v", err)
	}
}
