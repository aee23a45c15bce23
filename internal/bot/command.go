package bot

import "github.com/aivistech/infrabot/internal/store"

// Command is the closed set of recognized operations. The parser produces
// exactly one variant per slash command; the dispatcher consumes them in a
// single exhaustive switch. Free text is not a Command, it is routed by
// conversation mode.
type Command interface {
	isCommand()
}

type SetServerCmd struct {
	Record store.ServerRecord
}

type ListServersCmd struct{}

type SelectServerCmd struct {
	Name string
}

type ServerInfoCmd struct {
	// Name is optional; empty means every record in the chat.
	Name string
}

type EditServerCmd struct {
	Name  string
	Patch store.ServerPatch
}

type DeleteServerCmd struct {
	Name string
}

type GrantCmd struct {
	PrincipalID int64
}

type RevokeCmd struct {
	PrincipalID int64
}

type ReportCmd struct{}

type StartChatCmd struct{}

type EndChatCmd struct{}

type ResetChatCmd struct{}

type HelpCmd struct{}

func (SetServerCmd) isCommand()    {}
func (ListServersCmd) isCommand()  {}
func (SelectServerCmd) isCommand() {}
func (ServerInfoCmd) isCommand()   {}
func (EditServerCmd) isCommand()   {}
func (DeleteServerCmd) isCommand() {}
func (GrantCmd) isCommand()        {}
func (RevokeCmd) isCommand()       {}
func (ReportCmd) isCommand()       {}
func (StartChatCmd) isCommand()    {}
func (EndChatCmd) isCommand()      {}
func (ResetChatCmd) isCommand()    {}
func (HelpCmd) isCommand()         {}
