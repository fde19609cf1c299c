// Package telegram is a chat front-end over the same triage service as
// the web server. A chat is linked to an account with /login.
package telegram

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"arogya/internal/pending"
	"arogya/internal/triage"
	"arogya/internal/wellness"
)

const historyPreview = 5

const helpText = `Arogya health triage

/login <username> <password> link this chat to your account
/quiz take the wellness quiz one question at a time
/quiz <a1> ... <a10> submit all 10 answers at once
/cancel abandon a quiz in progress
/questions show the quiz questions
/score show your wellness score
/history show your recent consultations
/logout unlink this chat

Any other message is treated as a symptom description.`

type Triage interface {
	Login(username, password string) (triage.Account, error)
	HandleSymptom(ctx context.Context, username, symptom string) (triage.Result, error)
	SubmitQuiz(ctx context.Context, username string, raw []any) (int, error)
	Score(ctx context.Context, username string) (int, error)
	History(ctx context.Context, username string) (triage.HistoryView, error)
}

// Links maps chats to usernames.
type Links interface {
	LinkChat(chatID int64, username string) error
	ChatUser(chatID int64) (string, bool, error)
	UnlinkChat(chatID int64) error
}

type Bot struct {
	api         *tgbotapi.BotAPI
	s           sender
	triage      Triage
	links       Links
	drafts      pending.Repository
	adminChatID int64
}

func New(botToken string, t Triage, links Links, drafts pending.Repository, adminChatID int64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	return &Bot{api: api, s: botAPISender{api: api}, triage: t, links: links, drafts: drafts, adminChatID: adminChatID}, nil
}

// Start polls for updates until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	log.Printf("🤖 Telegram bot @%s started", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message != nil {
				b.handleIncomingMessage(ctx, update.Message)
			}
		}
	}
}

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	username, ok := b.linkedUser(chatID)
	if !ok {
		b.sendMessage(chatID, "Please /login <username> <password> first.")
		return
	}
	if draft, ok := b.activeDraft(chatID, username); ok {
		b.answerQuizStep(ctx, draft, text)
		return
	}
	res, err := b.triage.HandleSymptom(ctx, username, text)
	if err != nil {
		log.Printf("❌ symptom from chat %d (%s) failed: %v", chatID, username, err)
		b.sendMessage(chatID, triage.MessageOf(err))
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("%s\n\nWellness score: %d", res.Reply, res.HealthScore))
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	args := strings.Fields(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		b.sendMessage(chatID, helpText)
	case "login":
		b.handleLogin(msg, args)
	case "logout":
		if err := b.links.UnlinkChat(chatID); err != nil {
			log.Printf("⚠️ unlink chat %d: %v", chatID, err)
		}
		b.dropDraft(chatID)
		b.sendMessage(chatID, "Logged out.")
	case "questions":
		b.sendMessage(chatID, questionsText())
	default:
		username, ok := b.linkedUser(chatID)
		if !ok {
			b.sendMessage(chatID, "Please /login <username> <password> first.")
			return
		}
		b.handleUserCommand(ctx, chatID, username, msg.Command(), args)
	}
}

func (b *Bot) handleUserCommand(ctx context.Context, chatID int64, username, cmd string, args []string) {
	switch cmd {
	case "score":
		score, err := b.triage.Score(ctx, username)
		if err != nil {
			b.sendMessage(chatID, triage.MessageOf(err))
			return
		}
		out := fmt.Sprintf("Wellness score: %d/100", score)
		if wellness.NeedsQuiz(score) {
			out += "\nTake the quiz with /quiz to set your starting score."
		}
		b.sendMessage(chatID, out)
	case "history":
		view, err := b.triage.History(ctx, username)
		if err != nil {
			b.sendMessage(chatID, triage.MessageOf(err))
			return
		}
		b.sendMessage(chatID, formatHistory(view))
	case "cancel":
		if _, ok := b.activeDraft(chatID, username); !ok {
			b.sendMessage(chatID, "No quiz in progress.")
			return
		}
		b.dropDraft(chatID)
		b.sendMessage(chatID, "Quiz cancelled.")
	case "quiz":
		if len(args) == 0 {
			b.startQuiz(chatID, username)
			return
		}
		b.dropDraft(chatID)
		raw := make([]any, len(args))
		for i, a := range args {
			raw[i] = a
		}
		score, err := b.triage.SubmitQuiz(ctx, username, raw)
		if err != nil {
			b.sendMessage(chatID, triage.MessageOf(err))
			return
		}
		b.sendMessage(chatID, fmt.Sprintf("Quiz completed successfully. Wellness score: %d", score))
	default:
		b.sendMessage(chatID, "Unknown command. Try /help.")
	}
}

func (b *Bot) handleLogin(msg *tgbotapi.Message, args []string) {
	chatID := msg.Chat.ID
	// the message carries a password
	if _, err := b.s.Request(tgbotapi.NewDeleteMessage(chatID, msg.MessageID)); err != nil {
		log.Printf("⚠️ could not delete login message in chat %d: %v", chatID, err)
	}
	if len(args) != 2 {
		b.sendMessage(chatID, "Usage: /login <username> <password>")
		return
	}
	acct, err := b.triage.Login(args[0], args[1])
	if err != nil {
		b.sendMessage(chatID, triage.MessageOf(err))
		return
	}
	if err := b.links.LinkChat(chatID, acct.Username); err != nil {
		log.Printf("❌ link chat %d: %v", chatID, err)
		b.sendMessage(chatID, "Could not link this chat, try again later.")
		return
	}
	log.Printf("🔗 Chat %d linked to %s", chatID, acct.Username)
	out := fmt.Sprintf("Welcome, %s! Wellness score: %d", acct.Username, acct.HealthScore)
	if acct.NeedsQuiz {
		out += "\nPlease take the quiz first: send /quiz."
	}
	b.sendMessage(chatID, out)
}

func (b *Bot) startQuiz(chatID int64, username string) {
	if b.drafts == nil {
		b.sendMessage(chatID, "Usage: /quiz <a1> ... <a10>. See /questions.")
		return
	}
	draft := pending.Quiz{ChatID: chatID, Username: username, Started: time.Now().UTC().Format(time.RFC3339)}
	if err := b.drafts.Upsert(draft); err != nil {
		log.Printf("❌ start quiz for chat %d: %v", chatID, err)
		b.sendMessage(chatID, "Could not start the quiz, try again later.")
		return
	}
	b.askQuestion(chatID, 0)
}

// answerQuizStep records one reply and either asks the next question or
// submits the full set.
func (b *Bot) answerQuizStep(ctx context.Context, draft pending.Quiz, text string) {
	chatID := draft.ChatID
	qs, err := wellness.Questions()
	if err != nil {
		b.sendMessage(chatID, "Quiz unavailable.")
		return
	}
	step := len(draft.Answers)
	if step >= len(qs) {
		b.dropDraft(chatID)
		return
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil || !isOption(qs[step], value) {
		b.sendMessage(chatID, "Please reply with one of the option numbers, or /cancel.")
		return
	}
	draft.Answers = append(draft.Answers, value)
	if len(draft.Answers) < len(qs) {
		if err := b.drafts.Upsert(draft); err != nil {
			log.Printf("❌ save quiz draft for chat %d: %v", chatID, err)
			b.sendMessage(chatID, "Could not save your answer, try again.")
			return
		}
		b.askQuestion(chatID, len(draft.Answers))
		return
	}

	b.dropDraft(chatID)
	raw := make([]any, len(draft.Answers))
	for i, a := range draft.Answers {
		raw[i] = a
	}
	score, err := b.triage.SubmitQuiz(ctx, draft.Username, raw)
	if err != nil {
		b.sendMessage(chatID, triage.MessageOf(err))
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("Quiz completed successfully. Wellness score: %d", score))
}

func (b *Bot) askQuestion(chatID int64, step int) {
	qs, err := wellness.Questions()
	if err != nil || step >= len(qs) {
		b.sendMessage(chatID, "Quiz unavailable.")
		return
	}
	q := qs[step]
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question %d/%d: %s\n", step+1, len(qs), q.Text)
	for _, o := range q.Options {
		fmt.Fprintf(&sb, "%g = %s\n", o.Value, o.Label)
	}
	b.sendMessage(chatID, sb.String())
}

// activeDraft returns the chat's quiz in progress. A draft left behind by
// another account on the same chat is discarded.
func (b *Bot) activeDraft(chatID int64, username string) (pending.Quiz, bool) {
	if b.drafts == nil {
		return pending.Quiz{}, false
	}
	draft, ok, err := b.drafts.Get(chatID)
	if err != nil {
		log.Printf("⚠️ quiz draft lookup %d: %v", chatID, err)
		return pending.Quiz{}, false
	}
	if !ok {
		return pending.Quiz{}, false
	}
	if draft.Username != username {
		b.dropDraft(chatID)
		return pending.Quiz{}, false
	}
	return draft, true
}

func (b *Bot) dropDraft(chatID int64) {
	if b.drafts == nil {
		return
	}
	if err := b.drafts.Remove(chatID); err != nil {
		log.Printf("⚠️ remove quiz draft %d: %v", chatID, err)
	}
}

func isOption(q wellness.Question, v float64) bool {
	for _, o := range q.Options {
		if o.Value == v {
			return true
		}
	}
	return false
}

func (b *Bot) linkedUser(chatID int64) (string, bool) {
	username, ok, err := b.links.ChatUser(chatID)
	if err != nil {
		log.Printf("⚠️ chat link lookup %d: %v", chatID, err)
		return "", false
	}
	return username, ok
}

// SendReport delivers a report to the admin chat, if one is configured.
func (b *Bot) SendReport(text string) {
	if b.adminChatID == 0 {
		return
	}
	b.sendMessage(b.adminChatID, text)
}

func formatHistory(view triage.HistoryView) string {
	if len(view.Records) == 0 {
		return fmt.Sprintf("No consultations yet. Wellness score: %d", view.HealthScore)
	}
	recs := view.Records
	if len(recs) > historyPreview {
		recs = recs[len(recs)-historyPreview:]
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Wellness score: %d\nLast %d of %d consultations:\n", view.HealthScore, len(recs), len(view.Records))
	for _, r := range recs {
		fmt.Fprintf(&sb, "\n%s %s %s", r.Date, r.Severity.Marker(), r.Symptom)
	}
	return sb.String()
}

func questionsText() string {
	qs, err := wellness.Questions()
	if err != nil {
		return "Quiz unavailable."
	}
	var sb strings.Builder
	sb.WriteString("Answer each question with the number of your choice:\n")
	for i, q := range qs {
		fmt.Fprintf(&sb, "\n%d. %s\n", i+1, q.Text)
		for _, o := range q.Options {
			fmt.Fprintf(&sb, "   %g = %s\n", o.Value, o.Label)
		}
	}
	return sb.String()
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.s.Send(msg); err != nil {
		log.Printf("failed to send message: %v", err)
	}
}
