package handler

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (h *Handler) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	command := message.Command()
	args := message.CommandArguments()

	switch command {
	case "start", "help":
		h.sendStartMessage(ctx, message)
	case "balance":
		h.showBalance(ctx, message, args)
	case "myleave":
		h.showMyLeave(ctx, message)

	// HR and managers
	case "pending":
		h.showPending(ctx, message)
	case "approve":
		h.approveRequest(ctx, message, args)
	case "reject":
		h.rejectRequest(ctx, message, args)
	case "processed":
		h.markProcessed(ctx, message, args)

	default:
		h.sendUnknownCommand(message)
	}
}

func (h *Handler) sendUnknownCommand(message *tgbotapi.Message) {
	h.reply(message, "bot.unknown_command", nil)
}

func (h *Handler) sendStartMessage(ctx context.Context, message *tgbotapi.Message) {
	emp, ok := h.currentEmployee(ctx, message)
	if !ok {
		return
	}
	h.reply(message, "bot.welcome", map[string]any{"Name": emp.FullName()})
}
