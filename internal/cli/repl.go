package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"

	"github.com/hikari-ai/chat-assistant/internal/model"
	"github.com/hikari-ai/chat-assistant/internal/store"
)

type repl struct {
	store *store.Store
	out   io.Writer
}

func newREPL(s *store.Store, out io.Writer) *repl {
	return &repl{store: s, out: out}
}

func (r *repl) run(ctx context.Context) error {
	rl, err := readline.New(r.prompt())
	if err != nil {
		return err
	}
	defer rl.Close()

	// The store notifies on every mutation; the prompt is the renderer's
	// cheapest view of its state.
	r.store.Notify(func() {
		rl.SetPrompt(r.prompt())
	})

	fmt.Fprintln(r.out, "Chat session started. Type /help for commands, /quit to exit.")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := r.command(line); quit {
				break
			}
			continue
		}

		r.send(ctx, line)
	}

	fmt.Fprintln(r.out, "\nChat session ended")
	return nil
}

func (r *repl) prompt() string {
	current := r.store.Current()
	if current == "" {
		return "> "
	}
	for _, h := range r.store.Histories() {
		if h.ID == current {
			return fmt.Sprintf("[%s] > ", h.Title)
		}
	}
	return "> "
}

// command dispatches a slash command. Returns true when the session should end.
func (r *repl) command(line string) bool {
	fields := strings.SplitN(line, " ", 2)
	arg := ""
	if len(fields) == 2 {
		arg = strings.TrimSpace(fields[1])
	}

	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/help":
		r.help()
	case "/new":
		h := r.store.NewChat()
		fmt.Fprintf(r.out, "started %q\n", h.Title)
	case "/list":
		r.list()
	case "/open":
		r.open(arg)
	case "/delete":
		r.delete(arg)
	case "/title":
		r.retitle(arg)
	default:
		fmt.Fprintf(r.out, "unknown command %s (try /help)\n", fields[0])
	}
	return false
}

func (r *repl) help() {
	fmt.Fprint(r.out, `commands:
  /new            start a new chat
  /list           list saved chats
  /open <n>       open chat n from the list
  /delete <n>     delete chat n from the list
  /title <text>   rename the current chat
  /quit           exit
`)
}

func (r *repl) send(ctx context.Context, text string) {
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	sp.Suffix = " thinking..."
	sp.Start()

	reply, err := r.store.AppendExchange(ctx, text)
	sp.Stop()

	if err != nil {
		if errors.Is(err, store.ErrEmptyMessage) || errors.Is(err, store.ErrBusy) {
			return
		}
		// Transient notice; the typed turn stays in the transcript but was
		// not saved to any history.
		fmt.Fprintln(r.out, "! failed to get a response; your message was not saved")
		return
	}

	fmt.Fprintf(r.out, "\n%s\n\n", reply.Content)
}

func (r *repl) list() {
	histories := r.store.Histories()
	if len(histories) == 0 {
		fmt.Fprintln(r.out, "no saved chats")
		return
	}

	current := r.store.Current()
	for i, h := range histories {
		marker := " "
		if h.ID == current {
			marker = "*"
		}
		fmt.Fprintf(r.out, "%s %2d. %-33s  %d messages  %s\n",
			marker, i+1, h.Title, len(h.Messages), h.UpdatedAt.Format("2006-01-02 15:04"))
	}
}

func (r *repl) open(arg string) {
	h, ok := r.pick(arg)
	if !ok {
		return
	}

	r.store.Select(h.ID)
	fmt.Fprintf(r.out, "opened %q\n", h.Title)
	for _, msg := range r.store.Messages() {
		prefix := "you"
		if msg.Role == model.RoleAssistant {
			prefix = "assistant"
		}
		fmt.Fprintf(r.out, "[%s] %s\n", prefix, msg.Content)
	}
}

func (r *repl) delete(arg string) {
	h, ok := r.pick(arg)
	if !ok {
		return
	}
	r.store.Delete(h.ID)
	fmt.Fprintf(r.out, "deleted %q\n", h.Title)
}

func (r *repl) retitle(title string) {
	current := r.store.Current()
	if current == "" {
		fmt.Fprintln(r.out, "no chat is open")
		return
	}
	if title == "" {
		fmt.Fprintln(r.out, "usage: /title <text>")
		return
	}
	r.store.UpdateTitle(current, title)
}

// pick resolves a 1-based list index from /list output.
func (r *repl) pick(arg string) (model.ChatHistory, bool) {
	histories := r.store.Histories()
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(histories) {
		fmt.Fprintln(r.out, "usage: give a chat number from /list")
		return model.ChatHistory{}, false
	}
	return histories[n-1], true
}
