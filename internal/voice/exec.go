package voice

import (
	"context"
	"os/exec"
	"strings"
)

// ExecRecognizer shells out to an external transcription command (for
// example a whisper wrapper) that records one utterance and prints the final
// transcript to stdout. Exit codes map onto the recognition error set:
// 2 = microphone permission denied, empty output = no speech detected.
type ExecRecognizer struct {
	command string
	args    []string
}

// NewExecRecognizer creates a recognizer from a shell command line. An empty
// command yields an unavailable recognizer.
func NewExecRecognizer(commandLine string) Recognizer {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return Unsupported()
	}
	return &ExecRecognizer{command: fields[0], args: fields[1:]}
}

// Available reports whether the command exists on PATH.
func (r *ExecRecognizer) Available() bool {
	_, err := exec.LookPath(r.command)
	return err == nil
}

// Recognize runs one transcription session.
func (r *ExecRecognizer) Recognize(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, r.command, r.args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 2 {
			return "", &RecognitionError{Code: ErrNotAllowed, Err: err}
		}
		return "", &RecognitionError{Code: ErrOther, Err: err}
	}

	transcript := strings.TrimSpace(string(out))
	if transcript == "" {
		return "", &RecognitionError{Code: ErrNoSpeech}
	}

	return transcript, nil
}
