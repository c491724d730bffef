// Package bot adapts the dialog engine to the Telegram transport.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/davecgh/go-spew/spew"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/GlebZemlyanikin/RowingModel/internal/dialog"
	"github.com/GlebZemlyanikin/RowingModel/internal/store"
)

const (
	msgSnapshotSaved  = "Снимок состояния сохранён."
	msgSnapshotFailed = "Не удалось сохранить снимок."
	msgRestored       = "Состояние восстановлено из снимка от %s."
	msgNoSnapshots    = "Снимков ещё нет."
	msgUnknownCommand = "Неизвестная команда. Используйте /start."
)

const pollTimeout = 30 // seconds

// Bot runs the Telegram long-polling loop and translates between updates
// and dialog replies. Updates are handled to completion one at a time, so
// per-user state mutation needs no locking beyond the store's own.
type Bot struct {
	api         *tgbotapi.BotAPI
	engine      *dialog.Engine
	mem         *store.Memory
	snapshotter *store.Snapshotter
	snapshots   *store.Client
}

// New connects to the Telegram API with the given token.
func New(
	token string,
	engine *dialog.Engine,
	mem *store.Memory,
	snapshotter *store.Snapshotter,
	snapshots *store.Client,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	return &Bot{
		api:         api,
		engine:      engine,
		mem:         mem,
		snapshotter: snapshotter,
		snapshots:   snapshots,
	}, nil
}

// Run consumes updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout

	updates := b.api.GetUpdatesChan(u)

	slog.Info("bot started", slog.String("username", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update := <-updates:
			b.handleUpdate(update)
		}
	}
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	slog.Debug(spew.Sdump(update))

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	var replies []dialog.Reply

	if msg.IsCommand() {
		replies = b.handleCommand(msg.From.ID, msg.Command())
	} else {
		replies = b.engine.Handle(msg.From.ID, msg.Text)
	}

	b.send(msg.Chat.ID, replies)
}

// handleCommand serves the slash commands that bypass the state machine.
func (b *Bot) handleCommand(userID int64, command string) []dialog.Reply {
	switch command {
	case "start":
		return b.engine.Start(userID)
	case "backup":
		err := b.snapshotter.Save()
		if err != nil {
			slog.Error("manual snapshot failed", slog.Any("error", err))
			return []dialog.Reply{{Text: msgSnapshotFailed}}
		}

		return []dialog.Reply{{Text: msgSnapshotSaved}}
	case "restore":
		snap, err := b.snapshots.LoadLatestSnapshot()
		if err != nil {
			if errors.Is(err, store.ErrNoSnapshot) {
				return []dialog.Reply{{Text: msgNoSnapshots}}
			}

			slog.Error("snapshot restore failed", slog.Any("error", err))

			return []dialog.Reply{{Text: msgSnapshotFailed}}
		}

		b.mem.Restore(snap)

		return []dialog.Reply{{
			Text: msgRestoredAt(snap.Timestamp),
		}}
	default:
		return []dialog.Reply{{Text: msgUnknownCommand}}
	}
}

func (b *Bot) send(chatID int64, replies []dialog.Reply) {
	for _, reply := range replies {
		var msg tgbotapi.Chattable

		if reply.Document != nil {
			doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
				Name:  reply.Document.Name,
				Bytes: reply.Document.Data,
			})
			doc.Caption = reply.Text
			msg = doc
		} else {
			m := tgbotapi.NewMessage(chatID, reply.Text)

			if len(reply.Options) > 0 {
				m.ReplyMarkup = keyboard(reply.Options)
			} else {
				m.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
			}

			msg = m
		}

		_, err := b.api.Send(msg)
		if err != nil {
			slog.Error(
				"message delivery failed",
				slog.Int64("chat_id", chatID),
				slog.Any("error", err),
			)
		}
	}
}

// keyboard renders a choice list as a one-time reply keyboard, three
// buttons per row.
func keyboard(options []string) tgbotapi.ReplyKeyboardMarkup {
	const perRow = 3

	var rows [][]tgbotapi.KeyboardButton

	for i := 0; i < len(options); i += perRow {
		end := min(i+perRow, len(options))

		row := make([]tgbotapi.KeyboardButton, 0, perRow)
		for _, opt := range options[i:end] {
			row = append(row, tgbotapi.NewKeyboardButton(opt))
		}

		rows = append(rows, row)
	}

	kb := tgbotapi.NewOneTimeReplyKeyboard(rows...)
	kb.ResizeKeyboard = true

	return kb
}

func msgRestoredAt(ts time.Time) string {
	return fmt.Sprintf(msgRestored, ts.Format("02.01.2006 15:04:05"))
}
