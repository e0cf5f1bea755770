package handler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"leave-ledger/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// showBalance prints every pool of the caller's balance. The year defaults to
// the current one.
func (h *Handler) showBalance(ctx context.Context, message *tgbotapi.Message, args string) {
	emp, ok := h.currentEmployee(ctx, message)
	if !ok {
		return
	}

	year := time.Now().Year()
	if args = strings.TrimSpace(args); args != "" {
		parsed, err := strconv.Atoi(args)
		if err != nil || parsed <= 0 {
			h.reply(message, "bot.bad_year", nil)
			return
		}
		year = parsed
	}

	snap, err := h.leave.GetBalance(ctx, emp.ID, year)
	if err != nil {
		h.replyError(message, err)
		return
	}

	loc := locale(message)
	lines := []string{h.tr.T(loc, "bot.balance_header", map[string]any{"Year": year})}
	for _, p := range snap.Pools {
		lines = append(lines, h.tr.T(loc, "bot.balance_line", map[string]any{
			"Pool":      string(p.Pool),
			"Used":      p.Used,
			"Total":     p.Total,
			"Remaining": p.Remaining,
		}))
	}
	h.send(message.Chat.ID, strings.Join(lines, "\n"))
}

func (h *Handler) showMyLeave(ctx context.Context, message *tgbotapi.Message) {
	emp, ok := h.currentEmployee(ctx, message)
	if !ok {
		return
	}

	requests, err := h.leave.ListByEmployee(ctx, emp.ID)
	if err != nil {
		h.replyError(message, err)
		return
	}
	if len(requests) == 0 {
		h.reply(message, "bot.no_leave", nil)
		return
	}

	loc := locale(message)
	lines := make([]string, 0, len(requests))
	for _, req := range requests {
		lines = append(lines, h.tr.T(loc, "bot.leave_line", map[string]any{
			"RequestID": req.ID,
			"Category":  string(req.Category),
			"Start":     req.StartDate.Format(models.DayLayout),
			"End":       req.EndDate.Format(models.DayLayout),
			"Days":      req.TotalDays,
			"Status":    req.Status,
		}))
	}
	h.send(message.Chat.ID, strings.Join(lines, "\n"))
}
