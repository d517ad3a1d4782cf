package cmd

import "testing"

func TestSubcommandsRegistered(t *testing.T) {
	want := map[string]bool{
		"serve":    false,
		"generate": false,
		"migrate":  false,
		"version":  false,
	}

	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q is not registered", name)
		}
	}
}

func TestRootFlags(t *testing.T) {
	if rootCmd.PersistentFlags().Lookup("log-level") == nil {
		t.Error("root command is missing the log-level flag")
	}
	if rootCmd.PersistentFlags().Lookup("log-json") == nil {
		t.Error("root command is missing the log-json flag")
	}
}
