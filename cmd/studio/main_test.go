package main

import (
	"testing"

	"github.com/spf13/cobra"
)

func TestCommandTree(t *testing.T) {
	want := map[string][]string{
		"config":  {"init", "list"},
		"project": {"create", "list", "get", "delete"},
		"queue":   {"add", "list", "attach", "retry", "remove"},
		"upload":  {"run"},
		"migrate": nil,
	}

	for name, subs := range want {
		group := findCommand(t, rootCmd.Commands(), name)
		for _, sub := range subs {
			findCommand(t, group.Commands(), sub)
		}
	}
}

func findCommand(t *testing.T, cmds []*cobra.Command, name string) *cobra.Command {
	t.Helper()
	for _, c := range cmds {
		if c.Name() == name {
			return c
		}
	}
	t.Fatalf("command %q not registered", name)
	return nil
}
