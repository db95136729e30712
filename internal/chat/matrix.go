package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"datekeeper/internal/services"
	"datekeeper/internal/store"

	"go.uber.org/zap"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/format"
	"maunium.net/go/mautrix/id"
)

// MatrixConfig holds the Matrix connection parameters.
type MatrixConfig struct {
	Homeserver  string
	UserID      string
	AccessToken string
}

// MatrixClient connects the bot to Matrix and delivers notifications.
// It implements services.Notifier.
type MatrixClient struct {
	client      *mautrix.Client
	cfg         MatrixConfig
	subscribers store.SubscriberStore
	logger      *zap.Logger
	stopCh      chan struct{}
}

func NewMatrixClient(cfg MatrixConfig, subscribers store.SubscriberStore, logger *zap.Logger) (*MatrixClient, error) {
	client, err := mautrix.NewClient(cfg.Homeserver, id.UserID(cfg.UserID), cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("create matrix client: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatrixClient{
		client:      client,
		cfg:         cfg,
		subscribers: subscribers,
		logger:      logger.Named("matrix"),
		stopCh:      make(chan struct{}),
	}, nil
}

// Start registers the event handlers and begins syncing in the background.
// The sync loop reconnects with exponential back-off on errors.
func (c *MatrixClient) Start(ctx context.Context, bot *Bot) error {
	c.logger.Warn("Matrix E2EE is not enabled; messages are transmitted in plaintext")

	syncer, ok := c.client.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return errors.New("unexpected matrix syncer type")
	}
	// Skip the backlog delivered by the first sync after a restart.
	syncer.OnSync(c.client.DontProcessOldEvents)
	syncer.OnEventType(event.StateMember, c.handleMembership)
	syncer.OnEventType(event.EventMessage, func(_ context.Context, evt *event.Event) {
		c.handleMessage(ctx, bot, evt)
	})

	go func() {
		const (
			backoffMin = 2 * time.Second
			backoffMax = 5 * time.Minute
		)
		backoff := backoffMin
		for {
			err := c.client.SyncWithContext(ctx)
			if err == nil || ctx.Err() != nil {
				return
			}
			select {
			case <-c.stopCh:
				return
			default:
			}
			c.logger.Error("matrix sync stopped; reconnecting", zap.Error(err), zap.Duration("backoff", backoff))
			select {
			case <-c.stopCh:
				return
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > backoffMax {
				backoff = backoffMax
			}
		}
	}()
	return nil
}

// Stop halts the sync loop.
func (c *MatrixClient) Stop() {
	close(c.stopCh)
	c.client.StopSync()
}

// handleMembership joins every room the bot is invited to.
func (c *MatrixClient) handleMembership(ctx context.Context, evt *event.Event) {
	if evt.GetStateKey() != c.cfg.UserID {
		return
	}
	member := evt.Content.AsMember()
	if member == nil || member.Membership != event.MembershipInvite {
		return
	}
	if _, err := c.client.JoinRoomByID(ctx, evt.RoomID); err != nil {
		c.logger.Warn("failed to accept invite", zap.String("room_id", evt.RoomID.String()), zap.Error(err))
		return
	}
	c.logger.Info("joined room", zap.String("room_id", evt.RoomID.String()), zap.String("inviter", evt.Sender.String()))
}

func (c *MatrixClient) handleMessage(ctx context.Context, bot *Bot, evt *event.Event) {
	if evt.Sender == id.UserID(c.cfg.UserID) {
		return
	}
	content := evt.Content.AsMessage()
	if content == nil || content.MsgType != event.MsgText {
		return
	}

	msg := Message{
		UserID:   evt.Sender.String(),
		Username: evt.Sender.Localpart(),
		RoomID:   evt.RoomID.String(),
		Text:     content.Body,
	}
	if err := c.subscribers.UpsertSubscriber(ctx, msg.UserID, msg.RoomID, msg.Username); err != nil {
		c.logger.Warn("failed to record subscriber", zap.String("user_id", msg.UserID), zap.Error(err))
	}

	roomID := evt.RoomID
	// Gift advice and broadcasts can take a while; keep the sync loop moving.
	go bot.Handle(ctx, msg, func(ctx context.Context, text string, f services.MessageFormat) error {
		return c.sendToRoom(ctx, roomID, text, f)
	})
}

// SendMessage delivers text to the room the user last talked from.
func (c *MatrixClient) SendMessage(ctx context.Context, userID, text string, f services.MessageFormat) error {
	sub, err := c.subscribers.GetSubscriber(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve room for %s: %w", userID, err)
	}
	return c.sendToRoom(ctx, id.RoomID(sub.RoomID), text, f)
}

func (c *MatrixClient) sendToRoom(ctx context.Context, roomID id.RoomID, text string, f services.MessageFormat) error {
	content := messageContent(text, f)
	if _, err := c.client.SendMessageEvent(ctx, roomID, event.EventMessage, &content); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// messageContent builds an m.text body, rendering Markdown to HTML when asked.
func messageContent(text string, f services.MessageFormat) event.MessageEventContent {
	if f == services.FormatMarkdown {
		return format.RenderMarkdown(text, true, false)
	}
	return event.MessageEventContent{
		MsgType: event.MsgText,
		Body:    text,
	}
}

var _ services.Notifier = (*MatrixClient)(nil)
