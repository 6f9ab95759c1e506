package router

import (
	"context"
	"fmt"
	"strings"
)

// HelpCommand lists every registered command, or details for one.
func (m *CommandManager) HelpCommand() Command {
	return Command{
		Name:        "help",
		Aliases:     []string{"start"},
		Description: "list commands",
		Usage:       "/help [command]",
		Handle: func(ctx context.Context, req *Request) error {
			return req.Reply(ctx, m.helpText(req.Args))
		},
	}
}

func (m *CommandManager) helpText(args []string) string {
	if len(args) > 0 {
		c, ok := m.lookup(sanitizeTelegramCommand(strings.TrimPrefix(args[0], "/")))
		if !ok {
			return "unknown command, try /help"
		}
		lines := []string{"/" + c.Name}
		if c.Description != "" {
			lines = append(lines, c.Description)
		}
		if c.Access == AccessOwnerOnly {
			lines = append(lines, "🔒 owner only")
		}
		if c.Usage != "" {
			lines = append(lines, "usage: "+c.Usage)
		}
		if len(c.Aliases) > 0 {
			lines = append(lines, "aliases: /"+strings.Join(c.Aliases, ", /"))
		}
		return strings.Join(lines, "\n")
	}

	lines := []string{"Commands:"}
	for _, c := range m.sorted() {
		lock := ""
		if c.Access == AccessOwnerOnly {
			lock = " 🔒"
		}
		lines = append(lines, fmt.Sprintf("/%s%s  %s", c.Name, lock, c.Description))
	}
	return strings.Join(lines, "\n")
}
