package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aivistech/infrabot/internal/errors"
	"github.com/aivistech/infrabot/internal/store"

	"github.com/google/shlex"
)

// IsSlashCommand reports whether the text starts a slash command.
func IsSlashCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/")
}

// Parse turns a slash-command line into its Command variant. Telegram
// appends "@botname" to commands in groups; that suffix is stripped.
func Parse(text string) (Command, error) {
	parts, err := shlex.Split(strings.TrimSpace(text))
	if err != nil {
		parts = strings.Fields(text)
	}
	if len(parts) == 0 {
		return nil, errors.InvalidInput("empty command")
	}

	name := parts[0]
	if at := strings.Index(name, "@"); at > 0 {
		name = name[:at]
	}
	args := parts[1:]

	switch name {
	case "/set_server":
		return parseSetServer(args)
	case "/list_servers":
		return ListServersCmd{}, nil
	case "/select_server":
		if len(args) != 1 {
			return nil, errors.InvalidInput("usage: /select_server <name>")
		}
		return SelectServerCmd{Name: args[0]}, nil
	case "/server_info":
		if len(args) > 1 {
			return nil, errors.InvalidInput("usage: /server_info [name]")
		}
		cmd := ServerInfoCmd{}
		if len(args) == 1 {
			cmd.Name = args[0]
		}
		return cmd, nil
	case "/edit_server":
		return parseEditServer(args)
	case "/delete_server":
		if len(args) != 1 {
			return nil, errors.InvalidInput("usage: /delete_server <name>")
		}
		return DeleteServerCmd{Name: args[0]}, nil
	case "/grant":
		id, err := parsePrincipal(args)
		if err != nil {
			return nil, err
		}
		return GrantCmd{PrincipalID: id}, nil
	case "/revoke":
		id, err := parsePrincipal(args)
		if err != nil {
			return nil, err
		}
		return RevokeCmd{PrincipalID: id}, nil
	case "/report":
		return ReportCmd{}, nil
	case "/chat":
		return StartChatCmd{}, nil
	case "/endchat":
		return EndChatCmd{}, nil
	case "/resetchat":
		return ResetChatCmd{}, nil
	case "/help", "/start":
		return HelpCmd{}, nil
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("unknown command %s, see /help", name))
	}
}

func parseSetServer(args []string) (Command, error) {
	if len(args) < 4 || len(args) > 5 {
		return nil, errors.InvalidInput("usage: /set_server <name> <host> <port> <user> [label]")
	}
	port, err := strconv.Atoi(args[2])
	if err != nil || port <= 0 || port > 65535 {
		return nil, errors.InvalidInput(fmt.Sprintf("invalid port %q", args[2]))
	}
	rec := store.ServerRecord{
		Name: args[0],
		Host: args[1],
		Port: port,
		User: args[3],
	}
	if len(args) == 5 {
		rec.Label = args[4]
	}
	return SetServerCmd{Record: rec}, nil
}

func parseEditServer(args []string) (Command, error) {
	if len(args) < 2 {
		return nil, errors.InvalidInput("usage: /edit_server <name> <field>=<value> ...")
	}
	cmd := EditServerCmd{Name: args[0]}
	for _, pair := range args[1:] {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || value == "" {
			return nil, errors.InvalidInput(fmt.Sprintf("expected field=value, got %q", pair))
		}
		switch key {
		case "host":
			cmd.Patch.Host = &value
		case "port":
			port, err := strconv.Atoi(value)
			if err != nil || port <= 0 || port > 65535 {
				return nil, errors.InvalidInput(fmt.Sprintf("invalid port %q", value))
			}
			cmd.Patch.Port = &port
		case "user":
			cmd.Patch.User = &value
		case "label":
			cmd.Patch.Label = &value
		default:
			return nil, errors.InvalidInput(fmt.Sprintf("unknown field %q (host, port, user, label)", key))
		}
	}
	return cmd, nil
}

func parsePrincipal(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, errors.InvalidInput("usage: /grant|/revoke <user or chat id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, errors.InvalidInput(fmt.Sprintf("invalid principal id %q", args[0]))
	}
	return id, nil
}
