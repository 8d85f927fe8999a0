package discord

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/giantswarm/stepflow/internal/plugin"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// redirect sends every request to target regardless of its host.
type redirect struct {
	target *url.URL
}

func (r redirect) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = r.target.Scheme
	req.URL.Host = r.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

type posted struct {
	channel string
	auth    string
	content string
}

func newTestRegistry(t *testing.T, secrets plugin.Secrets) (*plugin.Registry, *[]posted) {
	t.Helper()
	var got []posted
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		// api/v9/channels/<id>/messages
		require.GreaterOrEqual(t, len(parts), 4)
		channel := parts[len(parts)-2]

		var body struct {
			Content string `json:"content"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		got = append(got, posted{channel: channel, auth: r.Header.Get("Authorization"), content: body.Content})

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "m1", "channel_id": channel, "content": body.Content})
	}))
	t.Cleanup(srv.Close)

	target, err := url.Parse(srv.URL)
	require.NoError(t, err)

	reg := plugin.NewRegistry(nil)
	require.NoError(t, reg.Register(context.Background(), New(&http.Client{Transport: redirect{target: target}}, nil), secrets))
	return reg, &got
}

func result(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	return res.Content[0].(mcp.TextContent).Text
}

func TestSendMessage(t *testing.T) {
	reg, got := newTestRegistry(t, plugin.Secrets{TokenSecret: "tok", ChannelSecret: "default-ch"})
	ctx := context.Background()

	res, err := reg.Call(ctx, ToolSendMessage, map[string]interface{}{"text": "deploy finished"})
	require.NoError(t, err)
	require.False(t, res.IsError, result(t, res))
	assert.JSONEq(t, `{"message_id":"m1","channel_id":"default-ch","truncated":false}`, result(t, res))

	res, err = reg.Call(ctx, ToolSendMessage, map[string]interface{}{"text": strings.Repeat("x", 2500), "channel_id": "other"})
	require.NoError(t, err)
	assert.Contains(t, result(t, res), `"truncated":true`)

	require.Len(t, *got, 2)
	assert.Equal(t, posted{channel: "default-ch", auth: "Bot tok", content: "deploy finished"}, (*got)[0])
	assert.Equal(t, "other", (*got)[1].channel)
	assert.Len(t, (*got)[1].content, maxMessageLen)
}

func TestSendMessage_Errors(t *testing.T) {
	reg, _ := newTestRegistry(t, plugin.Secrets{TokenSecret: "tok"})

	res, err := reg.Call(context.Background(), ToolSendMessage, map[string]interface{}{"text": "hi"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, result(t, res), "channel_id is required")

	res, err = reg.Call(context.Background(), ToolSendMessage, map[string]interface{}{"channel_id": "c"})
	require.NoError(t, err)
	assert.True(t, res.IsError)

	_, err = New(nil, nil).Init(context.Background(), plugin.Secrets{})
	assert.EqualError(t, err, "plugin discord requires secret DISCORD_BOT_TOKEN")
}
