package notify

import (
	"context"
	"errors"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of *tgbotapi.BotAPI the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// ChatDirectory resolves the chat linked to an employee.
type ChatDirectory interface {
	ChatIDFor(ctx context.Context, employeeID uint) (int64, bool, error)
}

// Translator renders an event type into text.
type Translator interface {
	Default(messageID string, data map[string]any) string
}

// Telegram posts every event to the HR chat and decisions to the employee.
type Telegram struct {
	sender      Sender
	chats       ChatDirectory
	tr          Translator
	adminChatID int64
}

func NewTelegram(sender Sender, chats ChatDirectory, tr Translator, adminChatID int64) *Telegram {
	return &Telegram{sender: sender, chats: chats, tr: tr, adminChatID: adminChatID}
}

func (t *Telegram) Notify(ctx context.Context, event Event) error {
	text := t.tr.Default(string(event.Type), map[string]any{
		"RequestID":  event.RequestID,
		"EmployeeID": strconv.FormatUint(uint64(event.EmployeeID), 10),
		"ActorID":    strconv.FormatUint(uint64(event.ActorID), 10),
		"Category":   event.Category,
		"Days":       event.Days,
		"Reason":     event.Reason,
	})

	var errs []error
	if t.adminChatID != 0 {
		if _, err := t.sender.Send(tgbotapi.NewMessage(t.adminChatID, text)); err != nil {
			errs = append(errs, err)
		}
	}

	if event.Type == EventApproved || event.Type == EventRejected {
		chatID, ok, err := t.chats.ChatIDFor(ctx, event.EmployeeID)
		switch {
		case err != nil:
			errs = append(errs, err)
		case ok && chatID != t.adminChatID:
			if _, err := t.sender.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}
