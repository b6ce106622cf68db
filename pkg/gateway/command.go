package gateway

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nexusbot/entitlements/pkg/licensing"
)

var (
	ErrCommandExists  = errors.New("command already registered")
	ErrUnknownCommand = errors.New("unknown command")
	ErrEmptyName      = errors.New("command name cannot be empty")
	ErrNilHandler     = errors.New("command handler cannot be nil")
	ErrInvalidUserID  = errors.New("user id cannot be empty")
)

// Handler executes a command on behalf of a user
type Handler func(ctx context.Context, req *Request) (*Response, error)

// Command describes a registered bot command and the tier it requires.
// Cooldown overrides the dispatcher default when positive; OwnerOnly
// commands refuse everyone except the configured owner.
type Command struct {
	Name         string
	Description  string
	RequiredTier licensing.Tier
	Cooldown     time.Duration
	OwnerOnly    bool
	Handler      Handler
}

// Request carries one invocation through the dispatcher
type Request struct {
	UserID  string
	Command string
	Args    []string
}

// Response is what a command hands back to the caller
type Response struct {
	Message string
	Data    map[string]any
}

// Registry holds the set of known commands
type Registry struct {
	mu       sync.RWMutex
	commands map[string]*Command
}

// NewRegistry creates an empty command registry
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]*Command),
	}
}

// Register adds a command. Names are matched case-insensitively.
func (r *Registry) Register(cmd *Command) error {
	if cmd == nil || cmd.Name == "" {
		return ErrEmptyName
	}
	if cmd.Handler == nil {
		return fmt.Errorf("%w: %s", ErrNilHandler, cmd.Name)
	}

	name := strings.ToLower(cmd.Name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[name]; exists {
		return fmt.Errorf("%w: %s", ErrCommandExists, name)
	}
	r.commands[name] = cmd
	return nil
}

// Lookup returns the command registered under name
func (r *Registry) Lookup(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[strings.ToLower(name)]
	return cmd, ok
}

// Names returns all registered command names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
