package notify

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Console prints notifications as single lines, the CLI stand-in for toasts.
// Messages are also logged at debug level.
type Console struct {
	out    io.Writer
	logger *slog.Logger

	mu   sync.Mutex
	last Message
}

type Message struct {
	Level string
	Title string
	Body  string
}

func NewConsole(out io.Writer, logger *slog.Logger) *Console {
	if out == nil {
		out = os.Stderr
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{out: out, logger: logger}
}

func (c *Console) Info(title, message string) {
	c.emit("info", title, message)
}

func (c *Console) Success(title, message string) {
	c.emit("success", title, message)
}

func (c *Console) Warning(title, message string) {
	c.emit("warning", title, message)
}

func (c *Console) Error(title, message string) {
	c.emit("error", title, message)
}

// Last returns the most recent notification.
func (c *Console) Last() Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func (c *Console) emit(kind, title, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.last = Message{Level: kind, Title: title, Body: message}
	line := strings.TrimSpace(title)
	if msg := strings.TrimSpace(message); msg != "" {
		if line != "" {
			line += ": "
		}
		line += msg
	}
	fmt.Fprintf(c.out, "[%s] %s\n", kind, line)
	c.logger.Debug("notification", "level", kind, "title", title, "message", message)
}
