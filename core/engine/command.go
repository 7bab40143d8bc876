package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Command is a lifecycle instruction received from a remote surface.
type Command string

const (
	CommandStart  Command = "start"
	CommandPause  Command = "pause"
	CommandResume Command = "resume"
	CommandReset  Command = "reset"
)

// ErrUnknownCommand is returned for command names other than start,
// pause, resume and reset.
var ErrUnknownCommand = errors.New("unknown command")

// ParseCommand normalizes a command name.
func ParseCommand(name string) (Command, error) {
	c := Command(strings.ToLower(strings.TrimSpace(name)))
	switch c {
	case CommandStart, CommandPause, CommandResume, CommandReset:
		return c, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownCommand, name)
}

// Execute runs cmd against the engine.
func (e *Engine) Execute(cmd Command) error {
	switch cmd {
	case CommandStart:
		return e.Start()
	case CommandResume:
		return e.Resume()
	case CommandPause:
		e.Pause()
		return nil
	case CommandReset:
		e.Reset()
		return nil
	}
	return fmt.Errorf("%w %q", ErrUnknownCommand, cmd)
}
