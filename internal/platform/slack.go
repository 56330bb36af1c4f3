package platform

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-bot/internal/bot"
	"github.com/spec-kit/helpdesk-bot/internal/config"
)

// SlackGateway connects the bot core to Slack over Socket Mode. It is both
// the update source (Run) and the bot.Transport implementation.
type SlackGateway struct {
	api    *slack.Client
	sm     *socketmode.Client
	logger *zap.Logger

	mu       sync.Mutex
	profiles map[string]*slack.User
}

// NewSlackGateway builds the gateway from configuration.
func NewSlackGateway(cfg config.SlackConfig, logger *zap.Logger) *SlackGateway {
	api := slack.New(cfg.BotToken, slack.OptionAppLevelToken(cfg.AppToken))
	return &SlackGateway{
		api:      api,
		sm:       socketmode.New(api),
		logger:   logger,
		profiles: make(map[string]*slack.User),
	}
}

// SendMessage posts text to the channel, threading when threadID is set.
func (g *SlackGateway) SendMessage(_ context.Context, chatID, threadID, text string) error {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if threadID != "" {
		opts = append(opts, slack.MsgOptionTS(threadID))
	}
	_, _, err := g.api.PostMessage(chatID, opts...)
	return err
}

// SendTypingIndicator is a no-op: the Events API offers no typing
// indicator for bots. Kept best-effort per the Transport contract.
func (g *SlackGateway) SendTypingIndicator(_ context.Context, chatID, _ string) error {
	g.logger.Debug("typing indicator unsupported on slack events api", zap.String("chat_id", chatID))
	return nil
}

// Run consumes Socket Mode events until ctx is done, converting message
// events into updates and handing them to submit.
func (g *SlackGateway) Run(ctx context.Context, submit func(bot.Update)) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-g.sm.Events:
				if !ok {
					return
				}
				g.handleEvent(evt, submit)
			}
		}
	}()

	g.logger.Info("slack gateway connected via socket mode")
	return g.sm.RunContext(ctx)
}

func (g *SlackGateway) handleEvent(evt socketmode.Event, submit func(bot.Update)) {
	if evt.Type != socketmode.EventTypeEventsAPI {
		return
	}
	if evt.Request != nil {
		g.sm.Ack(*evt.Request)
	}
	eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
	if !ok || eventsAPIEvent.Type != slackevents.CallbackEvent {
		return
	}
	ev, ok := eventsAPIEvent.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		return
	}
	// Ignore our own messages, edits and other exotic subtypes; plain
	// messages and file shares are the bot's inputs.
	if ev.BotID != "" || (ev.SubType != "" && ev.SubType != "file_share") {
		return
	}

	upd := bot.Update{
		ChatID:     ev.Channel,
		ThreadID:   ev.ThreadTimeStamp,
		Text:       ev.Text,
		ReceivedAt: time.Now(),
	}
	if ev.User != "" {
		upd.Sender = g.sender(ev.User)
	}
	for _, file := range ev.Message.Files {
		if strings.HasPrefix(file.Mimetype, "audio/") {
			upd.Audio = &bot.Audio{
				URL:      file.URLPrivateDownload,
				MimeType: file.Mimetype,
				FileName: file.Name,
			}
			break
		}
	}

	submit(upd)
}

// sender resolves the Slack profile for a user id, caching lookups for the
// process lifetime. Profile failures degrade to an id-only sender.
func (g *SlackGateway) sender(userID string) *bot.Sender {
	g.mu.Lock()
	profile, cached := g.profiles[userID]
	g.mu.Unlock()

	if !cached {
		var err error
		profile, err = g.api.GetUserInfo(userID)
		if err != nil {
			g.logger.Warn("slack user lookup failed", zap.String("user", userID), zap.Error(err))
			profile = nil
		}
		g.mu.Lock()
		g.profiles[userID] = profile
		g.mu.Unlock()
	}

	sender := &bot.Sender{ExternalID: userID}
	if profile != nil {
		sender.DisplayName = profile.RealName
		sender.Username = profile.Name
	}
	return sender
}
