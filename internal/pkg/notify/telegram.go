// Package notify sends operator notifications over Telegram. A nil
// notifier is valid and drops every message, so callers never branch on
// whether notifications are configured.
package notify

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Min interval between any two Telegram messages to the same chat to avoid 429 Too Many Requests (~30/min limit).
const telegramSendInterval = 2 * time.Second

// TelegramNotifier sends run lifecycle messages to one chat.
type TelegramNotifier struct {
	bot      *tgbotapi.BotAPI
	chatID   int64
	mu       sync.Mutex
	lastSend time.Time
}

// NewTelegramNotifier creates a notifier, or nil when the token is empty
// or the bot cannot be reached.
func NewTelegramNotifier(token string, chatID int64) *TelegramNotifier {
	if token == "" || chatID == 0 {
		return nil
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		slog.Error("Failed to create telegram bot", "error", err)
		return nil
	}

	bot.Debug = false

	if _, err := bot.GetMe(); err != nil {
		slog.Error("Failed to get bot info", "error", err)
		return nil
	}

	slog.Info("Telegram notifier initialized", "chat_id", chatID)
	return &TelegramNotifier{bot: bot, chatID: chatID}
}

// RunStarted announces a new or resumed run.
func (n *TelegramNotifier) RunStarted(runID string, matchCount, totalSlips, resumeIndex int, stake float64) {
	if resumeIndex > 0 {
		n.send(fmt.Sprintf("▶️ Run %s resumed\nMatches: %d\nSlips: %d/%d remaining\nStake per slip: %.2f",
			runID, matchCount, totalSlips-resumeIndex, totalSlips, stake))
		return
	}
	n.send(fmt.Sprintf("▶️ Run %s started\nMatches: %d\nSlips: %d\nStake per slip: %.2f",
		runID, matchCount, totalSlips, stake))
}

// SlipPlaced reports one successful placement.
func (n *TelegramNotifier) SlipPlaced(index, total int, combination string) {
	n.send(fmt.Sprintf("✅ Slip %d/%d placed: %s", index+1, total, combination))
}

// RunCompleted announces that every slip was placed.
func (n *TelegramNotifier) RunCompleted(runID string, totalSlips int) {
	n.send(fmt.Sprintf("🏁 Run %s complete: all %d slips placed", runID, totalSlips))
}

// FatalFailure reports a terminated run that is safe to resume.
func (n *TelegramNotifier) FatalFailure(runID string, slipIndex int, err error) {
	n.send(fmt.Sprintf("❌ Run %s terminated at slip %d: %v\nRerun to resume from the ledger.", runID, slipIndex, err))
}

// AmbiguousConfirmation reports a slip whose state is unknown and needs
// manual reconciliation before any rerun.
func (n *TelegramNotifier) AmbiguousConfirmation(runID string, slipIndex int, combination string) {
	n.send(fmt.Sprintf("⚠️ Run %s: slip %d (%s) submission is UNCONFIRMED.\nCheck the bookmaker account before rerunning.",
		runID, slipIndex, combination))
}

func (n *TelegramNotifier) send(text string) {
	if n == nil {
		return
	}

	n.mu.Lock()
	if wait := telegramSendInterval - time.Since(n.lastSend); wait > 0 {
		time.Sleep(wait)
	}
	n.lastSend = time.Now()
	n.mu.Unlock()

	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		slog.Error("Failed to send telegram message", "error", err)
	}
}
