// Package telegram provides the Telegram plugin: notifications and a
// blocking approval gate driven by an inline keyboard.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/giantswarm/stepflow/internal/plugin"
	"github.com/giantswarm/stepflow/pkg/logging"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// Name is the plugin name.
const Name = "telegram"

// Secrets read by Init.
const (
	TokenSecret  = "TELEGRAM_BOT_TOKEN"
	ChatIDSecret = "TELEGRAM_CHAT_ID"
)

// Tool names.
const (
	ToolSendMessage     = "telegram_send_message"
	ToolWaitForApproval = "telegram_wait_for_approval"
)

const (
	actionApprove = "approve"
	actionReject  = "reject"
)

// Options tune the approval loop.
type Options struct {
	// PollInterval is the long polling timeout used while waiting for a
	// decision.
	PollInterval time.Duration

	// ApprovalTimeout bounds a wait when the step does not set one.
	ApprovalTimeout time.Duration

	// ServerURL overrides the Bot API endpoint.
	ServerURL string
}

// Config is the immutable configuration produced by Init.
type Config struct {
	Token           string
	ChatID          interface{}
	PollInterval    time.Duration
	ApprovalTimeout time.Duration
	ServerURL       string
}

// Plugin implements plugin.Plugin.
type Plugin struct {
	opts Options
	log  *logging.Logger
}

// New creates the plugin.
func New(opts Options, log *logging.Logger) *Plugin {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.ApprovalTimeout <= 0 {
		opts.ApprovalTimeout = 30 * time.Minute
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Plugin{opts: opts, log: log.With("TelegramPlugin")}
}

func (p *Plugin) Name() string { return Name }

func (p *Plugin) Tools() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool(ToolSendMessage,
			mcp.WithDescription("Send a message to the configured chat"),
			mcp.WithString("text", mcp.Required(), mcp.Description("Message text")),
			mcp.WithString("parse_mode", mcp.Description("HTML or MarkdownV2"), mcp.Enum("HTML", "MarkdownV2")),
		),
		mcp.NewTool(ToolWaitForApproval,
			mcp.WithDescription("Ask the configured chat to approve or reject and wait for the answer"),
			mcp.WithString("text", mcp.Required(), mcp.Description("What is being approved")),
			mcp.WithNumber("timeout_seconds", mcp.Description("How long to wait before giving up")),
		),
	}
}

// Init validates the bot token and chat id.
func (p *Plugin) Init(_ context.Context, secrets plugin.Secrets) (plugin.Config, error) {
	token, err := secrets.Require(Name, TokenSecret)
	if err != nil {
		return nil, err
	}
	rawChat, err := secrets.Require(Name, ChatIDSecret)
	if err != nil {
		return nil, err
	}
	chatID, err := parseChatID(rawChat)
	if err != nil {
		return nil, err
	}
	return Config{
		Token:           token,
		ChatID:          chatID,
		PollInterval:    p.opts.PollInterval,
		ApprovalTimeout: p.opts.ApprovalTimeout,
		ServerURL:       p.opts.ServerURL,
	}, nil
}

// parseChatID accepts a numeric id or an @channel username.
func parseChatID(raw string) (interface{}, error) {
	if strings.HasPrefix(raw, "@") && len(raw) > 1 {
		return raw, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a numeric chat id or @channel: %w", ChatIDSecret, err)
	}
	return id, nil
}

func (p *Plugin) HandleToolCall(ctx context.Context, cfg plugin.Config, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	conf, err := plugin.ConfigAs[Config](Name, cfg)
	if err != nil {
		return nil, err
	}
	a := plugin.Args(args)

	var result interface{}
	switch name {
	case ToolSendMessage:
		result, err = p.sendMessage(ctx, conf, a)
	case ToolWaitForApproval:
		result, err = p.waitForApproval(ctx, conf, a)
	default:
		return nil, fmt.Errorf("unknown telegram tool: %s", name)
	}
	if err != nil {
		return plugin.ErrorResult("%s failed: %v", name, err), nil
	}
	return plugin.JSONResult(result)
}

// SentMessage is the output of telegram_send_message.
type SentMessage struct {
	MessageID int `json:"message_id"`
}

// Approval is the output of telegram_wait_for_approval. A wait that runs out
// of time reports TimedOut and is not approved.
type Approval struct {
	Approved  bool   `json:"approved"`
	TimedOut  bool   `json:"timed_out"`
	DecidedBy string `json:"decided_by,omitempty"`
	MessageID int    `json:"message_id"`
}

func (p *Plugin) newBot(conf Config, handler bot.HandlerFunc) (*bot.Bot, error) {
	opts := []bot.Option{
		bot.WithSkipGetMe(),
		bot.WithHTTPClient(conf.PollInterval, &http.Client{Timeout: conf.PollInterval + 10*time.Second}),
		bot.WithErrorsHandler(func(err error) {
			p.log.Debug("Telegram polling error: %v", err)
		}),
	}
	if handler != nil {
		opts = append(opts, bot.WithDefaultHandler(handler))
	}
	if conf.ServerURL != "" {
		opts = append(opts, bot.WithServerURL(conf.ServerURL))
	}
	b, err := bot.New(conf.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return b, nil
}

func (p *Plugin) sendMessage(ctx context.Context, conf Config, a plugin.Args) (*SentMessage, error) {
	text, err := a.RequireString("text")
	if err != nil {
		return nil, err
	}
	parseMode, err := a.String("parse_mode")
	if err != nil {
		return nil, err
	}

	b, err := p.newBot(conf, nil)
	if err != nil {
		return nil, err
	}
	msg, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    conf.ChatID,
		Text:      text,
		ParseMode: models.ParseMode(parseMode),
	})
	if err != nil {
		return nil, err
	}
	return &SentMessage{MessageID: msg.ID}, nil
}

type decision struct {
	approved bool
	by       string
}

func (p *Plugin) waitForApproval(ctx context.Context, conf Config, a plugin.Args) (*Approval, error) {
	text, err := a.RequireString("text")
	if err != nil {
		return nil, err
	}
	timeoutSeconds, err := a.Int("timeout_seconds", 0)
	if err != nil {
		return nil, err
	}
	timeout := conf.ApprovalTimeout
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}

	nonce := uuid.New().String()
	decisions := make(chan decision, 1)
	handler := func(ctx context.Context, b *bot.Bot, update *models.Update) {
		cb := update.CallbackQuery
		if cb == nil {
			return
		}
		action, id, ok := strings.Cut(cb.Data, ":")
		if !ok || id != nonce || (action != actionApprove && action != actionReject) {
			return
		}
		_, _ = b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cb.ID, Text: "Recorded: " + action})
		select {
		case decisions <- decision{approved: action == actionApprove, by: displayName(cb.From)}:
		default:
		}
	}

	b, err := p.newBot(conf, handler)
	if err != nil {
		return nil, err
	}
	msg, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: conf.ChatID,
		Text:   text,
		ReplyMarkup: &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{{
				{Text: "Approve", CallbackData: actionApprove + ":" + nonce},
				{Text: "Reject", CallbackData: actionReject + ":" + nonce},
			}},
		},
	})
	if err != nil {
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		b.Start(waitCtx)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	p.log.Info("Waiting up to %s for approval (message %d)", timeout, msg.ID)
	result := &Approval{MessageID: msg.ID}
	select {
	case d := <-decisions:
		result.Approved, result.DecidedBy = d.approved, d.by
	case <-waitCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.TimedOut = true
	}

	status := "Rejected"
	switch {
	case result.TimedOut:
		status = "Timed out"
	case result.Approved:
		status = "Approved"
	}
	if result.DecidedBy != "" {
		status += " by " + result.DecidedBy
	}
	if _, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    conf.ChatID,
		MessageID: msg.ID,
		Text:      text + "\n\n" + status,
	}); err != nil {
		p.log.Warn("Failed to update approval message: %v", err)
	}
	return result, nil
}

func displayName(u models.User) string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
