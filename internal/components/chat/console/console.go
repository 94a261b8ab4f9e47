// Package console is a chat transport for local runs. The workspace (users,
// channels, bot identity) comes from a YAML file, inbound messages are read
// line by line, and outbound messages are printed.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/MahdiBaghbani/pizzabot-go/internal/components/chat"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/logutil"
)

// Workspace describes the simulated chat workspace.
type Workspace struct {
	Bot      WorkspaceUser      `yaml:"bot"`
	Users    []WorkspaceUser    `yaml:"users"`
	Channels []WorkspaceChannel `yaml:"channels"`
}

// WorkspaceUser is one directory entry.
type WorkspaceUser struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Bot         bool   `yaml:"bot"`
	Deactivated bool   `yaml:"deactivated"`
}

// WorkspaceChannel is one channel and its member ids.
type WorkspaceChannel struct {
	Name    string   `yaml:"name"`
	Members []string `yaml:"members"`
}

// LoadWorkspace reads a workspace file.
func LoadWorkspace(path string) (*Workspace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace file %s: %w", path, err)
	}
	return ParseWorkspace(data)
}

// ParseWorkspace decodes and validates a YAML workspace.
func ParseWorkspace(data []byte) (*Workspace, error) {
	var ws Workspace
	if err := yaml.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("failed to parse workspace: %w", err)
	}
	if ws.Bot.ID == "" {
		return nil, fmt.Errorf("workspace: bot.id is required")
	}
	if ws.Bot.Name == "" {
		ws.Bot.Name = "pizzabot"
	}
	ws.Bot.Bot = true

	seen := map[string]bool{ws.Bot.ID: true}
	for _, u := range ws.Users {
		if u.ID == "" {
			return nil, fmt.Errorf("workspace: user %q has no id", u.Name)
		}
		if seen[u.ID] {
			return nil, fmt.Errorf("workspace: duplicate user id %q", u.ID)
		}
		seen[u.ID] = true
	}
	for i := range ws.Channels {
		ws.Channels[i].Name = chat.NormalizeChannel(ws.Channels[i].Name)
		if ws.Channels[i].Name == "" {
			return nil, fmt.Errorf("workspace: channel %d has no name", i)
		}
	}
	return &ws, nil
}

// Gateway is a chat.Gateway over a Workspace.
type Gateway struct {
	ws     *Workspace
	out    io.Writer
	logger *slog.Logger

	mu sync.Mutex // serializes writes to out
}

// New creates a console gateway printing outbound messages to out.
func New(ws *Workspace, out io.Writer, logger *slog.Logger) *Gateway {
	logger = logutil.NoopIfNil(logger)
	return &Gateway{
		ws:     ws,
		out:    out,
		logger: logger.With("component", "console"),
	}
}

// Bot returns the bot's identity.
func (g *Gateway) Bot() chat.BotIdentity {
	return chat.BotIdentity{ID: g.ws.Bot.ID, Name: g.ws.Bot.Name}
}

// SendMessage implements chat.Gateway.
func (g *Gateway) SendMessage(ctx context.Context, m chat.Message) error {
	var header string
	if m.IsDirect() {
		u, ok := g.user(m.UserID)
		if !ok || u.Deactivated {
			return chat.ErrUnknownUser
		}
		header = "[DM @" + u.Name + "]"
	} else {
		if _, ok := g.channel(m.Channel); !ok {
			return chat.ErrChannelNotFound
		}
		header = "[#" + m.Channel + "]"
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	_, err := fmt.Fprintf(g.out, "%s %s\n\n", header, m.Text)
	return err
}

// ChannelMembers implements chat.Gateway.
func (g *Gateway) ChannelMembers(ctx context.Context, channel string) ([]string, error) {
	c, ok := g.channel(chat.NormalizeChannel(channel))
	if !ok {
		return nil, chat.ErrChannelNotFound
	}
	if !slices.Contains(c.Members, g.ws.Bot.ID) {
		return nil, chat.ErrNotInChannel
	}
	return slices.Clone(c.Members), nil
}

// LookupUser implements chat.Gateway.
func (g *Gateway) LookupUser(ctx context.Context, userID string) (chat.User, error) {
	u, ok := g.user(userID)
	if !ok {
		return chat.User{}, chat.ErrUnknownUser
	}
	return chat.User{ID: u.ID, Name: u.Name, IsBot: u.Bot, IsDeactivated: u.Deactivated}, nil
}

// Serve reads inbound lines from r until EOF or ctx is done and passes each
// parsed message to fn. Lines look like "<user_id>: <text>" for direct
// messages and "<user_id>@<channel>: <text>" for channel posts.
func (g *Gateway) Serve(ctx context.Context, r io.Reader, fn func(context.Context, chat.Incoming)) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		in, err := ParseLine(line)
		if err != nil {
			g.logger.Warn("ignoring console input", "line", line, "error", err)
			continue
		}
		if _, ok := g.user(in.UserID); !ok {
			g.logger.Warn("ignoring console input from unknown user", "user_id", in.UserID)
			continue
		}
		fn(ctx, in)
	}
	return scanner.Err()
}

// ParseLine parses one console input line.
func ParseLine(line string) (chat.Incoming, error) {
	sender, text, ok := strings.Cut(line, ":")
	if !ok {
		return chat.Incoming{}, fmt.Errorf("expected \"<user_id>: <text>\"")
	}
	sender = strings.TrimSpace(sender)
	userID, channel, _ := strings.Cut(sender, "@")
	if userID == "" {
		return chat.Incoming{}, fmt.Errorf("missing user id")
	}
	return chat.Incoming{
		UserID:  userID,
		Channel: chat.NormalizeChannel(channel),
		Text:    strings.TrimSpace(text),
	}, nil
}

func (g *Gateway) user(id string) (WorkspaceUser, bool) {
	if id == g.ws.Bot.ID {
		return g.ws.Bot, true
	}
	for _, u := range g.ws.Users {
		if u.ID == id {
			return u, true
		}
	}
	return WorkspaceUser{}, false
}

func (g *Gateway) channel(name string) (WorkspaceChannel, bool) {
	for _, c := range g.ws.Channels {
		if c.Name == name {
			return c, true
		}
	}
	return WorkspaceChannel{}, false
}
