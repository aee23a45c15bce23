package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aivistech/infrabot/internal/auth"
	"github.com/aivistech/infrabot/internal/concurrency"
	"github.com/aivistech/infrabot/internal/convo"
	"github.com/aivistech/infrabot/internal/errors"
	"github.com/aivistech/infrabot/internal/registry"
	"github.com/aivistech/infrabot/internal/sshexec"
	"github.com/aivistech/infrabot/internal/store"
)

const helpText = `Available commands:
/set_server <name> <host> <port> <user> [label] - register a server
/list_servers - list this chat's servers
/select_server <name> - choose the report target
/server_info [name] - show server details
/edit_server <name> <field>=<value> ... - change host, port, user or label
/delete_server <name> - remove a server
/report - run the diagnostic report on the selected server
/chat - start talking to the assistant (mentioning the bot also works)
/endchat - stop the conversation
/resetchat - forget the conversation history
/grant <id> / /revoke <id> - manage access (admin only)
/help - this message`

const farewellText = "If you need help again, just mention me!"

// Dispatcher routes authorized events to the registry, the executor or the
// conversation controller, and renders the reply text. All per-chat state
// transitions happen under the chat lock.
type Dispatcher struct {
	guard    *auth.Guard
	registry *registry.Registry
	executor *sshexec.Executor
	convo    *convo.Controller
	locks    *concurrency.ChatLockManager
}

func NewDispatcher(guard *auth.Guard, reg *registry.Registry, exec *sshexec.Executor, conv *convo.Controller, locks *concurrency.ChatLockManager) *Dispatcher {
	return &Dispatcher{
		guard:    guard,
		registry: reg,
		executor: exec,
		convo:    conv,
		locks:    locks,
	}
}

// Handle processes one inbound event and returns the reply text. An empty
// reply means nothing is sent back.
func (d *Dispatcher) Handle(ctx context.Context, evt *Event) string {
	if strings.TrimSpace(evt.Text) == "" {
		return ""
	}

	if IsSlashCommand(evt.Text) {
		return d.handleCommand(ctx, evt)
	}
	return d.handleFreeText(ctx, evt)
}

func (d *Dispatcher) handleCommand(ctx context.Context, evt *Event) string {
	cmd, err := Parse(evt.Text)
	if err != nil {
		return errors.UserMessage(err)
	}

	// Help is the only operation exempt from authorization.
	if _, ok := cmd.(HelpCmd); ok {
		return helpText
	}

	if !d.guard.IsAuthorized(evt.UserID, evt.ChatID) {
		slog.Warn("Unauthorized command", "user", evt.UserID, "chat", evt.ChatID, "source", evt.Source)
		return d.deniedMessage(evt)
	}

	d.locks.Lock(evt.ChatID)
	defer d.locks.Unlock(evt.ChatID)

	switch c := cmd.(type) {
	case SetServerCmd:
		if err := d.registry.Register(evt.ChatID, c.Record); err != nil {
			return errors.UserMessage(err)
		}
		return fmt.Sprintf("Server %q registered.", c.Record.Name)
	case ListServersCmd:
		return d.renderServerList(evt.ChatID)
	case SelectServerCmd:
		if err := d.registry.Select(evt.ChatID, c.Name); err != nil {
			return errors.UserMessage(err)
		}
		return fmt.Sprintf("Server %q selected.", c.Name)
	case ServerInfoCmd:
		records, err := d.registry.Info(evt.ChatID, c.Name)
		if err != nil {
			return errors.UserMessage(err)
		}
		return d.renderServerInfo(evt.ChatID, records)
	case EditServerCmd:
		if err := d.registry.Edit(evt.ChatID, c.Name, c.Patch); err != nil {
			return errors.UserMessage(err)
		}
		return fmt.Sprintf("Server %q updated.", c.Name)
	case DeleteServerCmd:
		if err := d.registry.Delete(evt.ChatID, c.Name); err != nil {
			return errors.UserMessage(err)
		}
		return fmt.Sprintf("Server %q deleted.", c.Name)
	case GrantCmd:
		if err := d.guard.Grant(evt.UserID, c.PrincipalID); err != nil {
			return errors.UserMessage(err)
		}
		return fmt.Sprintf("Access granted to %d.", c.PrincipalID)
	case RevokeCmd:
		if err := d.guard.Revoke(evt.UserID, c.PrincipalID); err != nil {
			return errors.UserMessage(err)
		}
		return fmt.Sprintf("Access revoked from %d.", c.PrincipalID)
	case ReportCmd:
		return d.runReport(ctx, evt.ChatID)
	case StartChatCmd:
		if err := d.convo.Activate(ctx, evt.ChatID); err != nil {
			return errors.UserMessage(err)
		}
		return "Conversation mode on. Send me a message."
	case EndChatCmd:
		if err := d.convo.Deactivate(evt.ChatID); err != nil {
			return errors.UserMessage(err)
		}
		return farewellText
	case ResetChatCmd:
		if err := d.convo.Reset(evt.ChatID); err != nil {
			return errors.UserMessage(err)
		}
		return "Conversation history forgotten."
	default:
		// Unreachable: Parse only produces the variants above.
		return errors.UserMessage(errors.InvalidInput("unsupported command"))
	}
}

func (d *Dispatcher) handleFreeText(ctx context.Context, evt *Event) string {
	if !d.guard.IsAuthorized(evt.UserID, evt.ChatID) {
		if evt.Mention {
			return d.deniedMessage(evt)
		}
		// Plain chatter from strangers is ignored, not lectured.
		return ""
	}

	d.locks.Lock(evt.ChatID)
	defer d.locks.Unlock(evt.ChatID)

	if evt.Mention {
		if err := d.convo.Activate(ctx, evt.ChatID); err != nil {
			return errors.UserMessage(err)
		}
	} else if !d.convo.Active(evt.ChatID) {
		return ""
	}

	turn := evt.Text
	if evt.FullName != "" || evt.UserName != "" {
		turn = fmt.Sprintf("[%s (%s)] %s", evt.FullName, evt.UserName, evt.Text)
	}

	reply, ended, err := d.convo.Converse(ctx, evt.ChatID, turn)
	if err != nil {
		return errors.UserMessage(err)
	}

	if name, ok := assistantCommand(reply); ok {
		return d.runAssistantCommand(ctx, evt.ChatID, name)
	}
	if ended {
		return farewellText
	}
	return reply
}

// assistantCommand recognizes the "cmd:<name>" reply convention.
func assistantCommand(reply string) (string, bool) {
	trimmed := strings.TrimSpace(reply)
	if !strings.HasPrefix(strings.ToLower(trimmed), "cmd:") {
		return "", false
	}
	return strings.ToLower(strings.TrimSpace(trimmed[len("cmd:"):])), true
}

// runAssistantCommand executes a single diagnostic command the assistant
// asked for. Only canonical table names are honored; the assistant cannot
// smuggle arbitrary shell through the reply channel.
func (d *Dispatcher) runAssistantCommand(ctx context.Context, chatID int64, name string) string {
	spec, ok := sshexec.Lookup(name)
	if !ok {
		return fmt.Sprintf("The assistant requested %q, which is not a permitted command. Allowed: %s.",
			name, strings.Join(sshexec.Names(), ", "))
	}

	rec, err := d.registry.Selected(chatID)
	if err != nil {
		return errors.UserMessage(err)
	}

	entry, err := d.executor.RunCommand(ctx, targetFor(rec), spec)
	if err != nil {
		return errors.UserMessage(err)
	}

	formatted, err := d.convo.PostOnThread(ctx, chatID, commandPrompt(entry))
	if err != nil {
		slog.Warn("Assistant formatting failed, sending raw output", "chat", chatID, "error", err)
		return fmt.Sprintf("--- %s (%s) ---\n%s", entry.Name, entry.Command, entry.Output)
	}
	return formatted
}

// runReport is the /report path: selected server, full table, assistant
// formatting with a raw fallback.
func (d *Dispatcher) runReport(ctx context.Context, chatID int64) string {
	report, err := d.collectReport(ctx, chatID)
	if err != nil {
		return errors.UserMessage(err)
	}

	formatted, err := d.convo.PostOnThread(ctx, chatID, reportPrompt(report))
	if err != nil {
		slog.Warn("Assistant formatting failed, sending raw report", "chat", chatID, "error", err)
		return "The assistant is unavailable, raw report below.\n\n" + report.Render()
	}
	return formatted
}

// RunScheduledReport produces the formatted report for the cron job. It
// takes the chat lock itself since no inbound event is driving it.
func (d *Dispatcher) RunScheduledReport(ctx context.Context, chatID int64) (string, error) {
	d.locks.Lock(chatID)
	defer d.locks.Unlock(chatID)

	report, err := d.collectReport(ctx, chatID)
	if err != nil {
		return "", err
	}

	formatted, err := d.convo.PostOnThread(ctx, chatID, reportPrompt(report))
	if err != nil {
		return "The assistant is unavailable, raw report below.\n\n" + report.Render(), nil
	}
	return formatted, nil
}

func (d *Dispatcher) collectReport(ctx context.Context, chatID int64) (*sshexec.Report, error) {
	rec, err := d.registry.Selected(chatID)
	if err != nil {
		return nil, err
	}
	return d.executor.RunReport(ctx, targetFor(rec))
}

func (d *Dispatcher) deniedMessage(evt *Event) string {
	return fmt.Sprintf("%s Your ids: user %d, chat %d.",
		errors.UserMessage(errors.ErrPermissionDenied), evt.UserID, evt.ChatID)
}

func (d *Dispatcher) renderServerList(chatID int64) string {
	servers, selected := d.registry.List(chatID)
	if len(servers) == 0 {
		return "No servers registered. Add one with /set_server."
	}

	var b strings.Builder
	b.WriteString("Registered servers:\n")
	for _, rec := range servers {
		marker := " "
		if rec.Name == selected {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %s - %s@%s:%d", marker, rec.Name, rec.User, rec.Host, rec.Port)
		if rec.Label != "" {
			fmt.Fprintf(&b, " (%s)", rec.Label)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n* marks the selected server.")
	return b.String()
}

func (d *Dispatcher) renderServerInfo(chatID int64, records []store.ServerRecord) string {
	if len(records) == 0 {
		return "No servers registered. Add one with /set_server."
	}
	_, selected := d.registry.List(chatID)

	var b strings.Builder
	for i, rec := range records {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Name: %s\nHost: %s\nPort: %d\nUser: %s", rec.Name, rec.Host, rec.Port, rec.User)
		if rec.Label != "" {
			fmt.Fprintf(&b, "\nLabel: %s", rec.Label)
		}
		if rec.Name == selected {
			b.WriteString("\nSelected: yes")
		}
	}
	return b.String()
}

func targetFor(rec store.ServerRecord) sshexec.Target {
	return sshexec.Target{
		Name: rec.Name,
		Host: rec.Host,
		Port: rec.Port,
		User: rec.User,
	}
}

func reportPrompt(report *sshexec.Report) string {
	return "You are an IT infrastructure support assistant. Below are the outputs of diagnostic " +
		"commands from the server. Format this information concisely and technically for IT " +
		"professionals, without obvious explanations, stating the situation of each item.\n\n" +
		report.Render()
}

func commandPrompt(entry sshexec.Entry) string {
	return "You are an IT infrastructure support assistant. Format the command output below " +
		"concisely and technically for IT professionals, explaining the situation.\n\n" +
		fmt.Sprintf("Output of %s (%s):\n%s", entry.Name, entry.Command, entry.Output)
}
