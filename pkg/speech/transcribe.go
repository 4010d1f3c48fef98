package speech

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ExecTranscriber streams transcripts from a speech-to-text command
// (vosk-transcriber, whisper-stream, ...). The command listens on the
// microphone itself, prints one recognition update per line on stdout,
// and exits at end of speech; its last line is the final transcript.
type ExecTranscriber struct {
	Command string
	Args    []string
}

// NewExecTranscriber creates a transcriber around an STT command line.
func NewExecTranscriber(command string, args ...string) *ExecTranscriber {
	return &ExecTranscriber{Command: command, Args: args}
}

// Stream launches the command and emits its output as transcript
// events. The channel closes when the command exits.
func (t *ExecTranscriber) Stream(ctx context.Context) (<-chan TranscriptEvent, error) {
	cmd := exec.CommandContext(ctx, t.Command, t.Args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("speech: transcribe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("speech: transcribe: %w", err)
	}

	events := make(chan TranscriptEvent)
	go func() {
		defer close(events)

		var last string
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			last = line
			events <- TranscriptEvent{Text: line}
		}

		err := cmd.Wait()
		switch {
		case ctx.Err() != nil:
			// Cancelled capture; keep whatever was heard.
		case err != nil:
			events <- TranscriptEvent{Err: fmt.Errorf("speech: transcribe: %w", err)}
			return
		}
		if last != "" {
			events <- TranscriptEvent{Text: last, Final: true}
		}
	}()
	return events, nil
}
