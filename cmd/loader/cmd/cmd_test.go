package cmd

import (
	"testing"
)

// Test command initialization and registration
func TestCommandsRegistered(t *testing.T) {
	if rootCmd == nil {
		t.Fatal("rootCmd should not be nil")
	}

	commands := rootCmd.Commands()
	expectedCommands := map[string]bool{
		"run":      false,
		"replay":   false,
		"validate": false,
		"seed":     false,
		"version":  false,
	}

	for _, cmd := range commands {
		// Extract command name (handles "replay <bucket> <key>..." -> "replay")
		cmdName := cmd.Use
		for key := range expectedCommands {
			if len(cmdName) >= len(key) && cmdName[:len(key)] == key {
				expectedCommands[key] = true
				break
			}
		}
	}

	for cmdName, found := range expectedCommands {
		if !found {
			t.Errorf("expected command '%s' to be registered with root command", cmdName)
		}
	}
}

func TestSeedRejectsUnknownKind(t *testing.T) {
	seedKind = "bogus"
	defer func() { seedKind = "cloudtrail" }()

	if err := runSeed(seedCmd, nil); err == nil {
		t.Error("runSeed() with unknown kind should return error")
	}
}
