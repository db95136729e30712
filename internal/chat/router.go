package chat

import (
	"context"
	"errors"
	"strings"
)

// Command is a parsed slash command.
type Command struct {
	Name string
	// Args is everything after the command name, trimmed.
	Args string
}

// ErrNotACommand is returned by ParseCommand for ordinary text.
var ErrNotACommand = errors.New("not a command (missing prefix)")

// ParseCommand splits "/name args" into a Command. Names are case-insensitive
// and a "@botname" suffix on the name is dropped.
func ParseCommand(text string) (*Command, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return nil, ErrNotACommand
	}
	text = strings.TrimPrefix(text, "/")
	if text == "" {
		return nil, ErrNotACommand
	}

	name, args, _ := strings.Cut(text, " ")
	if at := strings.IndexByte(name, '@'); at > 0 {
		name = name[:at]
	}
	return &Command{
		Name: strings.ToLower(name),
		Args: strings.TrimSpace(args),
	}, nil
}

// Handler handles one command for one incoming message.
type Handler func(ctx context.Context, msg Message, cmd *Command, reply ReplyFunc)

type route struct {
	handler   Handler
	adminOnly bool
}

// Router maps command names to handlers.
type Router struct {
	routes map[string]route
}

func NewRouter() *Router {
	return &Router{routes: make(map[string]route)}
}

// Register adds a handler under one or more names.
func (r *Router) Register(handler Handler, names ...string) {
	for _, n := range names {
		r.routes[n] = route{handler: handler}
	}
}

// RegisterAdmin adds a handler only the admin may invoke.
func (r *Router) RegisterAdmin(handler Handler, names ...string) {
	for _, n := range names {
		r.routes[n] = route{handler: handler, adminOnly: true}
	}
}

// Lookup returns the route for name.
func (r *Router) Lookup(name string) (Handler, bool, bool) {
	rt, ok := r.routes[name]
	return rt.handler, rt.adminOnly, ok
}
