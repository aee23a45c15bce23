package sshexec

import "time"

// CommandSpec is one entry in the compiled-in table of permitted diagnostic
// commands. The table is the safety boundary: executed strings come only
// from here, never from chat input, and nothing at runtime can add or alter
// entries. Timeout zero means the executor default applies.
type CommandSpec struct {
	Name    string
	Script  string
	Timeout time.Duration
}

// Commands is the fixed report table, executed sequentially in this order.
var Commands = []CommandSpec{
	{Name: "disk", Script: "df -h"},
	{Name: "memory", Script: "free -m"},
	{Name: "load", Script: "uptime"},
	{Name: "web", Script: "systemctl status apache2 --no-pager --lines=0"},
	{Name: "database", Script: "systemctl status mysql --no-pager --lines=0"},
}

// Lookup resolves a canonical command name against the table.
func Lookup(name string) (CommandSpec, bool) {
	for _, spec := range Commands {
		if spec.Name == name {
			return spec, true
		}
	}
	return CommandSpec{}, false
}

// Names returns the canonical command names in table order.
func Names() []string {
	names := make([]string, 0, len(Commands))
	for _, spec := range Commands {
		names = append(names, spec.Name)
	}
	return names
}
