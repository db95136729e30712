package chat

import (
	"context"
	"errors"

	"datekeeper/internal/services"

	"go.uber.org/zap"
)

// Message is one incoming chat message.
type Message struct {
	UserID   string
	Username string
	RoomID   string
	Text     string
}

// ReplyFunc sends a message back to the conversation the current message came from.
type ReplyFunc func(ctx context.Context, text string, format services.MessageFormat) error

// Config wires a Bot.
type Config struct {
	Events *services.EventService
	Quota  *services.QuotaService
	Admin  *services.AdminService
	// Advisor may be nil, which disables /gift.
	Advisor services.GiftAdvisor
	Logger  *zap.Logger
}

// Bot is the conversational frontend: it routes commands and drives the
// per-user conversation steps.
type Bot struct {
	events   *services.EventService
	quota    *services.QuotaService
	admin    *services.AdminService
	advisor  services.GiftAdvisor
	sessions *sessionStore
	router   *Router
	logger   *zap.Logger
}

func NewBot(cfg Config) *Bot {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	b := &Bot{
		events:   cfg.Events,
		quota:    cfg.Quota,
		admin:    cfg.Admin,
		advisor:  cfg.Advisor,
		sessions: newSessionStore(),
		router:   NewRouter(),
		logger:   cfg.Logger.Named("bot"),
	}

	b.router.Register(b.cmdStart, "start")
	b.router.Register(b.cmdHelp, "help")
	b.router.Register(b.cmdAdd, "add", "more")
	b.router.Register(b.cmdDates, "dates")
	b.router.Register(b.cmdEdit, "edit")
	b.router.Register(b.cmdDone, "done")
	b.router.Register(b.cmdDelete, "delete")
	b.router.Register(b.cmdGift, "gift")
	b.router.Register(b.cmdMenu, "menu", "cancel")
	b.router.RegisterAdmin(b.cmdAdmin, "admin")
	b.router.RegisterAdmin(b.cmdStats, "stats")
	b.router.RegisterAdmin(b.cmdBroadcast, "broadcast")
	return b
}

// Session returns the user's current conversation state.
func (b *Bot) Session(userID string) Session {
	return b.sessions.Get(userID)
}

// Handle processes one message. Messages from the same user are handled one
// at a time, in arrival order.
func (b *Bot) Handle(ctx context.Context, msg Message, reply ReplyFunc) {
	lock := b.sessions.userLock(msg.UserID)
	lock.Lock()
	defer lock.Unlock()

	logged := func(ctx context.Context, text string, format services.MessageFormat) error {
		if err := reply(ctx, text, format); err != nil {
			b.logger.Warn("failed to send reply", zap.String("user_id", msg.UserID), zap.Error(err))
		}
		return nil
	}
	send := replySender(ctx, logged)

	cmd, err := ParseCommand(msg.Text)
	if err == nil {
		b.dispatch(ctx, msg, cmd, logged)
		return
	}

	sess := b.sessions.Get(msg.UserID)
	switch sess.State {
	case StateAwaitingEvent:
		b.onEventInput(ctx, msg, sess, send)
	case StateAwaitingDelete:
		b.onDeleteInput(ctx, msg, send)
	case StateAwaitingGift:
		b.onGiftDescription(ctx, msg, send)
	case StateAwaitingBroadcast:
		b.onBroadcastText(ctx, msg, send)
	default:
		send(textIdleHint, services.FormatPlain)
	}
}

func (b *Bot) dispatch(ctx context.Context, msg Message, cmd *Command, reply ReplyFunc) {
	handler, adminOnly, ok := b.router.Lookup(cmd.Name)
	if !ok {
		_ = reply(ctx, textUnknownCommand, services.FormatPlain)
		return
	}
	if adminOnly && (b.admin == nil || !b.admin.IsAdmin(msg.UserID)) {
		// Admin commands stay invisible to everyone else.
		return
	}
	// A command always abandons whatever step the user was in.
	b.sessions.Clear(msg.UserID)
	handler(ctx, msg, cmd, reply)
}

func (b *Bot) cmdStart(ctx context.Context, msg Message, _ *Command, reply ReplyFunc) {
	name := msg.Username
	if name == "" {
		name = "there"
	}
	_ = reply(ctx, textStart(name), services.FormatMarkdown)
}

func (b *Bot) cmdHelp(ctx context.Context, _ Message, _ *Command, reply ReplyFunc) {
	_ = reply(ctx, textHelp, services.FormatPlain)
}

func (b *Bot) cmdMenu(ctx context.Context, _ Message, _ *Command, reply ReplyFunc) {
	_ = reply(ctx, textMainMenu, services.FormatPlain)
}

func (b *Bot) cmdDone(ctx context.Context, _ Message, _ *Command, reply ReplyFunc) {
	_ = reply(ctx, textAllSaved, services.FormatPlain)
}

// cmdAdd starts the add step; "/add DDMMYYYY Name" saves right away.
func (b *Bot) cmdAdd(ctx context.Context, msg Message, cmd *Command, reply ReplyFunc) {
	b.sessions.Set(msg.UserID, Session{State: StateAwaitingEvent})
	if cmd.Args != "" {
		msg.Text = cmd.Args
		b.onEventInput(ctx, msg, Session{State: StateAwaitingEvent}, replySender(ctx, reply))
		return
	}
	_ = reply(ctx, textAskEvent, services.FormatPlain)
}

func (b *Bot) cmdEdit(ctx context.Context, msg Message, _ *Command, reply ReplyFunc) {
	last, err := b.events.LastEvent(ctx, msg.UserID)
	if errors.Is(err, services.ErrEventNotFound) {
		_ = reply(ctx, textNoEventsEdit, services.FormatPlain)
		return
	}
	if err != nil {
		b.fail(ctx, msg, "load last event", err, reply)
		return
	}
	b.sessions.Set(msg.UserID, Session{State: StateAwaitingEvent, EditingID: last.ID})
	_ = reply(ctx, textEditing(last), services.FormatPlain)
}

func (b *Bot) cmdDates(ctx context.Context, msg Message, _ *Command, reply ReplyFunc) {
	events, err := b.events.List(ctx, msg.UserID)
	if err != nil {
		b.fail(ctx, msg, "list events", err, reply)
		return
	}
	if len(events) == 0 {
		_ = reply(ctx, textNoDates, services.FormatPlain)
		return
	}
	_ = reply(ctx, textDates(events), services.FormatPlain)
}

func (b *Bot) cmdDelete(ctx context.Context, msg Message, cmd *Command, reply ReplyFunc) {
	b.sessions.Set(msg.UserID, Session{State: StateAwaitingDelete})
	if cmd.Args != "" {
		msg.Text = cmd.Args
		b.onDeleteInput(ctx, msg, replySender(ctx, reply))
		return
	}
	_ = reply(ctx, textAskDelete, services.FormatMarkdown)
}

// cmdGift only peeks at the allowance; the description step consumes it.
func (b *Bot) cmdGift(ctx context.Context, msg Message, _ *Command, reply ReplyFunc) {
	if b.advisor == nil {
		_ = reply(ctx, textGiftUnavailable, services.FormatPlain)
		return
	}
	remaining, err := b.quota.GiftCallsRemaining(ctx, msg.UserID)
	if err != nil {
		b.fail(ctx, msg, "check gift allowance", err, reply)
		return
	}
	if remaining == 0 {
		_ = reply(ctx, textGiftLimitPeek, services.FormatPlain)
		return
	}
	b.sessions.Set(msg.UserID, Session{State: StateAwaitingGift})
	_ = reply(ctx, textAskGift(remaining), services.FormatPlain)
}

func (b *Bot) cmdAdmin(ctx context.Context, _ Message, _ *Command, reply ReplyFunc) {
	_ = reply(ctx, textAdminPanel, services.FormatPlain)
}

func (b *Bot) cmdStats(ctx context.Context, msg Message, _ *Command, reply ReplyFunc) {
	stats, err := b.admin.Stats(ctx)
	if err != nil {
		b.fail(ctx, msg, "collect stats", err, reply)
		return
	}
	_ = reply(ctx, textStats(stats), services.FormatMarkdown)
}

func (b *Bot) cmdBroadcast(ctx context.Context, msg Message, cmd *Command, reply ReplyFunc) {
	if cmd.Args != "" {
		msg.Text = cmd.Args
		b.onBroadcastText(ctx, msg, replySender(ctx, reply))
		return
	}
	b.sessions.Set(msg.UserID, Session{State: StateAwaitingBroadcast})
	_ = reply(ctx, textAskBroadcast, services.FormatPlain)
}

type sender func(text string, format services.MessageFormat)

func replySender(ctx context.Context, reply ReplyFunc) sender {
	return func(text string, format services.MessageFormat) {
		_ = reply(ctx, text, format)
	}
}

func (b *Bot) onEventInput(ctx context.Context, msg Message, sess Session, send sender) {
	if sess.EditingID != 0 {
		ev, err := b.events.Edit(ctx, msg.UserID, sess.EditingID, msg.Text)
		if b.rejectEventInput(msg, err, send) {
			return
		}
		b.sessions.Clear(msg.UserID)
		send(textUpdated(ev), services.FormatPlain)
		return
	}

	ev, err := b.events.Create(ctx, msg.UserID, msg.Username, msg.Text)
	if b.rejectEventInput(msg, err, send) {
		return
	}
	b.sessions.Clear(msg.UserID)
	send(textSaved(ev), services.FormatPlain)
	if services.MentionsGiftOccasion(msg.Text) {
		send(textGiftHint, services.FormatPlain)
	}
}

// rejectEventInput answers a failed create or edit and reports whether it did.
// Input mistakes keep the user in the step so they can retry.
func (b *Bot) rejectEventInput(msg Message, err error, send sender) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, services.ErrInvalidFormat):
		send(textInvalidFormat, services.FormatPlain)
	case errors.Is(err, services.ErrMissingName):
		send(textMissingName, services.FormatPlain)
	case errors.Is(err, services.ErrDateInPast):
		send(textDateInPast, services.FormatPlain)
	case errors.Is(err, services.ErrEventLimitReached):
		b.sessions.Clear(msg.UserID)
		send(textLimitReached(b.quota.MaxEventsPerUser()), services.FormatPlain)
	case errors.Is(err, services.ErrEventNotFound):
		b.sessions.Clear(msg.UserID)
		send(textEditMissing, services.FormatPlain)
	default:
		b.logger.Error("failed to save event", zap.String("user_id", msg.UserID), zap.Error(err))
		send(textGenericError, services.FormatPlain)
	}
	return true
}

func (b *Bot) onDeleteInput(ctx context.Context, msg Message, send sender) {
	n, err := b.events.Delete(ctx, msg.UserID, msg.Text)
	switch {
	case errors.Is(err, services.ErrInvalidFormat):
		send(textDeleteFormat, services.FormatMarkdown)
		return
	case errors.Is(err, services.ErrEventNotFound):
		send(textDeleteMissing, services.FormatPlain)
	case err != nil:
		b.logger.Error("failed to delete event", zap.String("user_id", msg.UserID), zap.Error(err))
		send(textGenericError, services.FormatPlain)
		return
	default:
		send(textDeletedMany(n), services.FormatPlain)
	}
	b.sessions.Clear(msg.UserID)
}

func (b *Bot) onGiftDescription(ctx context.Context, msg Message, send sender) {
	b.sessions.Clear(msg.UserID)
	if b.advisor == nil {
		send(textGiftUnavailable, services.FormatPlain)
		return
	}

	ok, err := b.quota.CheckAndConsumeGift(ctx, msg.UserID)
	if err != nil {
		b.logger.Error("failed to consume gift call", zap.String("user_id", msg.UserID), zap.Error(err))
		send(textGenericError, services.FormatPlain)
		return
	}
	if !ok {
		send(textGiftLimit(b.quota.GiftDailyLimit()), services.FormatPlain)
		return
	}

	send(textGiftWait, services.FormatPlain)
	ideas, err := b.advisor.Suggest(ctx, msg.Text)
	if err != nil {
		b.logger.Error("gift advisor failed", zap.String("user_id", msg.UserID), zap.Error(err))
		send(textGiftFailed, services.FormatPlain)
		return
	}
	send(textGiftIdeas(ideas), services.FormatMarkdown)
}

func (b *Bot) onBroadcastText(ctx context.Context, msg Message, send sender) {
	b.sessions.Clear(msg.UserID)
	if b.admin == nil || !b.admin.IsAdmin(msg.UserID) {
		return
	}

	send(textBroadcastStarted, services.FormatPlain)
	res, err := b.admin.Broadcast(ctx, msg.UserID, msg.Text)
	if errors.Is(err, services.ErrEmptyBroadcast) {
		send(textBroadcastEmpty, services.FormatPlain)
		return
	}
	if err != nil {
		b.logger.Error("broadcast failed", zap.Error(err))
		send(textGenericError, services.FormatPlain)
		return
	}
	send(textBroadcastDone(res), services.FormatPlain)
}

func (b *Bot) fail(ctx context.Context, msg Message, op string, err error, reply ReplyFunc) {
	b.logger.Error("command failed", zap.String("op", op), zap.String("user_id", msg.UserID), zap.Error(err))
	_ = reply(ctx, textGenericError, services.FormatPlain)
}
