package speech

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
)

// ExecSynthesizer speaks by shelling out to a TTS command (espeak-ng,
// say, piper, ...). The text is appended as the final argument.
type ExecSynthesizer struct {
	Command string
	Args    []string
}

// NewExecSynthesizer creates a synthesizer around a TTS command line.
func NewExecSynthesizer(command string, args ...string) *ExecSynthesizer {
	return &ExecSynthesizer{Command: command, Args: args}
}

// Speak renders the text and blocks until the command exits.
func (s *ExecSynthesizer) Speak(ctx context.Context, text string) error {
	args := append(append([]string{}, s.Args...), text)
	cmd := exec.CommandContext(ctx, s.Command, args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("speech: speak: %w", err)
	}
	return nil
}

// NullSynthesizer logs prompts instead of speaking them. Used when no
// TTS command is configured.
type NullSynthesizer struct{}

// Speak logs the prompt text.
func (NullSynthesizer) Speak(_ context.Context, text string) error {
	slog.Info("prompt", "text", text)
	return nil
}
