package handler

import (
	"context"
	"strings"

	"leave-ledger/internal/models"
	"leave-ledger/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// showPending lists the requests the caller may decide.
func (h *Handler) showPending(ctx context.Context, message *tgbotapi.Message) {
	emp, ok := h.currentEmployee(ctx, message)
	if !ok {
		return
	}

	pending, err := h.leave.ListPendingFor(ctx, emp.ID)
	if err != nil {
		h.replyError(message, err)
		return
	}
	if len(pending) == 0 {
		h.reply(message, "bot.no_pending", nil)
		return
	}

	loc := locale(message)
	lines := make([]string, 0, len(pending))
	for _, req := range pending {
		lines = append(lines, h.tr.T(loc, "bot.pending_line", map[string]any{
			"RequestID":  req.ID,
			"EmployeeID": req.EmployeeID,
			"Category":   string(req.Category),
			"Start":      req.StartDate.Format(models.DayLayout),
			"End":        req.EndDate.Format(models.DayLayout),
			"Days":       req.TotalDays,
		}))
	}
	h.send(message.Chat.ID, strings.Join(lines, "\n"))
}

func (h *Handler) approveRequest(ctx context.Context, message *tgbotapi.Message, args string) {
	requestID := strings.TrimSpace(args)
	if requestID == "" || strings.ContainsAny(requestID, " \t") {
		h.reply(message, "bot.usage_approve", nil)
		return
	}
	h.decide(ctx, message, service.DecideInput{RequestID: requestID, Outcome: models.StatusApproved})
}

func (h *Handler) rejectRequest(ctx context.Context, message *tgbotapi.Message, args string) {
	parts := strings.Fields(args)
	if len(parts) < 2 {
		h.reply(message, "bot.usage_reject", nil)
		return
	}
	h.decide(ctx, message, service.DecideInput{
		RequestID: parts[0],
		Outcome:   models.StatusRejected,
		Reason:    strings.Join(parts[1:], " "),
	})
}

func (h *Handler) decide(ctx context.Context, message *tgbotapi.Message, in service.DecideInput) {
	emp, ok := h.currentEmployee(ctx, message)
	if !ok {
		return
	}
	in.ApproverID = emp.ID

	req, err := h.leave.Decide(ctx, in)
	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"request_id":  in.RequestID,
			"approver_id": emp.ID,
		}).Info("decision via bot refused")
		h.replyError(message, err)
		return
	}
	h.reply(message, "bot.decided", map[string]any{"RequestID": req.ID, "Status": req.Status})
}

func (h *Handler) markProcessed(ctx context.Context, message *tgbotapi.Message, args string) {
	requestID := strings.TrimSpace(args)
	if requestID == "" || strings.ContainsAny(requestID, " \t") {
		h.reply(message, "bot.usage_processed", nil)
		return
	}

	emp, ok := h.currentEmployee(ctx, message)
	if !ok {
		return
	}

	req, err := h.leave.ProcessAdministratively(ctx, requestID, emp.ID)
	if err != nil {
		h.replyError(message, err)
		return
	}
	h.reply(message, "bot.processed", map[string]any{"RequestID": req.ID})
}
