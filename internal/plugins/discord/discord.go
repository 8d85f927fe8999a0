// Package discord provides the Discord notification plugin.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/giantswarm/stepflow/internal/plugin"
	"github.com/giantswarm/stepflow/pkg/logging"
	pkgstrings "github.com/giantswarm/stepflow/pkg/strings"

	"github.com/bwmarrin/discordgo"
	"github.com/mark3labs/mcp-go/mcp"
)

// Name is the plugin name.
const Name = "discord"

// Secrets read by Init. ChannelSecret is optional and provides the channel
// used when a call does not name one.
const (
	TokenSecret   = "DISCORD_BOT_TOKEN"
	ChannelSecret = "DISCORD_CHANNEL_ID"
)

// ToolSendMessage posts a message to a channel.
const ToolSendMessage = "discord_send_message"

// maxMessageLen is the Discord limit for message content.
const maxMessageLen = 2000

// Config is the immutable configuration produced by Init.
type Config struct {
	Session        *discordgo.Session
	DefaultChannel string
}

// Plugin implements plugin.Plugin.
type Plugin struct {
	httpClient *http.Client
	log        *logging.Logger
}

// New creates the plugin. A nil httpClient keeps discordgo's default.
func New(httpClient *http.Client, log *logging.Logger) *Plugin {
	if log == nil {
		log = logging.Discard()
	}
	return &Plugin{httpClient: httpClient, log: log.With("DiscordPlugin")}
}

func (p *Plugin) Name() string { return Name }

func (p *Plugin) Tools() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool(ToolSendMessage,
			mcp.WithDescription("Post a message to a Discord channel"),
			mcp.WithString("text", mcp.Required(), mcp.Description("Message text; longer messages are truncated to 2000 characters")),
			mcp.WithString("channel_id", mcp.Description("Channel to post to, defaults to DISCORD_CHANNEL_ID")),
		),
	}
}

// Init creates the REST session. No gateway connection is opened.
func (p *Plugin) Init(_ context.Context, secrets plugin.Secrets) (plugin.Config, error) {
	token, err := secrets.Require(Name, TokenSecret)
	if err != nil {
		return nil, err
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	if p.httpClient != nil {
		session.Client = p.httpClient
	}
	return Config{Session: session, DefaultChannel: secrets[ChannelSecret]}, nil
}

func (p *Plugin) HandleToolCall(ctx context.Context, cfg plugin.Config, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	conf, err := plugin.ConfigAs[Config](Name, cfg)
	if err != nil {
		return nil, err
	}
	if name != ToolSendMessage {
		return nil, fmt.Errorf("unknown discord tool: %s", name)
	}

	result, err := p.sendMessage(ctx, conf, plugin.Args(args))
	if err != nil {
		return plugin.ErrorResult("%s failed: %v", name, err), nil
	}
	return plugin.JSONResult(result)
}

// SentMessage is the output of discord_send_message.
type SentMessage struct {
	MessageID string `json:"message_id"`
	ChannelID string `json:"channel_id"`
	Truncated bool   `json:"truncated"`
}

func (p *Plugin) sendMessage(ctx context.Context, conf Config, a plugin.Args) (*SentMessage, error) {
	text, err := a.RequireString("text")
	if err != nil {
		return nil, err
	}
	channel, err := a.String("channel_id")
	if err != nil {
		return nil, err
	}
	if channel == "" {
		channel = conf.DefaultChannel
	}
	if channel == "" {
		return nil, errors.New("argument channel_id is required when DISCORD_CHANNEL_ID is not set")
	}

	content, truncated := pkgstrings.PrefixRunes(text, maxMessageLen)
	msg, err := conf.Session.ChannelMessageSend(channel, content, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	p.log.Debug("Posted message %s to channel %s", msg.ID, channel)
	return &SentMessage{MessageID: msg.ID, ChannelID: msg.ChannelID, Truncated: truncated}, nil
}
