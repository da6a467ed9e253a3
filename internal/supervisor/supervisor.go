package supervisor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/creack/pty"

	"github.com/re-cinq/scriptorium/internal/fileutil"
)

// Options configures one multi-attempt supervised run.
type Options struct {
	Binary            string
	Prompt            string
	WorkDir           string
	Model             string
	ReasoningEffort   string
	TicketID          string
	SkipGitRepoCheck  bool
	LogRoot           string
	NoOutputTimeout   time.Duration
	HardTimeout       time.Duration
	PollInterval      time.Duration
	MaxAttempts       int
	MCPEndpoint       string
	ContinuationText  string
}

// Result is the outcome of the final attempt of a supervised run.
type Result struct {
	ExitCode        int
	Stdout          string
	LogPath         string
	LastMessagePath string
	LastMessage     string
	TimeoutKind     TimeoutKind
	AttemptCount    int
}

// Completed reports whether the run succeeded without needing a retry:
// exit code 0 and no watchdog fired.
func (r Result) Completed() bool {
	return r.ExitCode == 0 && r.TimeoutKind == TimeoutNone
}

const defaultContinuationText = "Continue from the previous attempt and complete the ticket."

// Run executes the agent for up to opts.MaxAttempts attempts, building a
// continuation prompt from the previous attempt's tail output on retry, and
// returns the final attempt's Result.
func Run(ctx context.Context, opts Options) (Result, error) {
	harness := HarnessFor(opts.Model)

	maxAttempts := opts.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}
	continuation := opts.ContinuationText
	if continuation == "" {
		continuation = defaultContinuationText
	}

	sanitizedID := SanitizeTicketID(opts.TicketID)
	ticketLogDir := filepath.Join(opts.LogRoot, sanitizedID)
	if err := fileutil.EnsureDir(ticketLogDir); err != nil {
		return Result{}, fmt.Errorf("creating log dir: %w", err)
	}

	prompt := opts.Prompt
	var result Result

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		logPath := filepath.Join(ticketLogDir, fmt.Sprintf("attempt-%02d.jsonl", attempt))
		lastMessagePath := filepath.Join(ticketLogDir, fmt.Sprintf("attempt-%02d.last_message.txt", attempt))

		req := Request{
			Binary:           opts.Binary,
			Prompt:           prompt,
			WorkDir:          opts.WorkDir,
			Model:            opts.Model,
			ReasoningEffort:  opts.ReasoningEffort,
			TicketID:         opts.TicketID,
			Attempt:          attempt,
			SkipGitRepoCheck: opts.SkipGitRepoCheck,
			LastMessagePath:  lastMessagePath,
			MCPEndpoint:      opts.MCPEndpoint,
		}

		args, err := harness.BuildArgs(req)
		if err != nil {
			return Result{}, err
		}

		attemptResult, err := runOneAttempt(ctx, opts.Binary, args, opts.WorkDir, prompt, logPath,
			opts.NoOutputTimeout, opts.HardTimeout, pollInterval)
		if err != nil {
			return Result{}, fmt.Errorf("attempt %d: %w", attempt, err)
		}
		attemptResult.LastMessagePath = lastMessagePath
		attemptResult.LastMessage = readLastMessage(lastMessagePath)
		attemptResult.AttemptCount = attempt
		result = attemptResult

		if result.Completed() || attempt == maxAttempts {
			break
		}

		prompt = buildContinuationPrompt(opts.Prompt, attempt, result, continuation)
	}

	return result, nil
}

func readLastMessage(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

// buildContinuationPrompt implements the exact continuation format of
// spec.md §4.3.
func buildContinuationPrompt(originalPrompt string, attempt int, prev Result, continuation string) string {
	excerptSource := prev.LastMessage
	if excerptSource == "" {
		excerptSource = prev.Stdout
	}
	excerpt := tail(excerptSource, 1200)

	var sb strings.Builder
	sb.WriteString(originalPrompt)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Attempt %d failed with exit code %d (timeout: %s).\n", attempt, prev.ExitCode, prev.TimeoutKind)
	sb.WriteString("Last output excerpt:\n")
	sb.WriteString(excerpt)
	sb.WriteString("\n\n")
	sb.WriteString(continuation)
	sb.WriteString("\n")
	return sb.String()
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// runOneAttempt launches the child under a PTY, closes stdin after writing
// the prompt, and streams output under the dual watchdog poll loop of
// spec.md §4.3.
func runOneAttempt(ctx context.Context, binary string, args []string, workDir, prompt, logPath string,
	noOutputTimeout, hardTimeout, pollInterval time.Duration) (Result, error) {

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return Result{}, fmt.Errorf("opening log file %s: %w", logPath, err)
	}
	defer logFile.Close()

	cmd := exec.Command(binary, args...)
	cmd.Dir = workDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	ptmx, pts, err := pty.Open()
	if err != nil {
		return Result{}, fmt.Errorf("opening pty: %w", err)
	}
	defer ptmx.Close()

	cmd.Stdin = strings.NewReader(prompt)
	cmd.Stdout = pts
	cmd.Stderr = pts

	if err := cmd.Start(); err != nil {
		pts.Close()
		return Result{}, fmt.Errorf("starting agent: %w", err)
	}
	pts.Close()

	var stdout bytes.Buffer
	start := time.Now()
	lastOutput := start
	timeoutKind := TimeoutNone

	chunks := make(chan []byte, 16)
	readErrs := make(chan error, 1)
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := ptmx.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				chunks <- chunk
			}
			if err != nil {
				readErrs <- err
				return
			}
		}
	}()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	childDone := make(chan error, 1)
	go func() { childDone <- cmd.Wait() }()

	var waitErr error
	var waited bool

loop:
	for {
		select {
		case chunk := <-chunks:
			stdout.Write(chunk)
			logFile.Write(chunk)
			lastOutput = time.Now()
		case err := <-readErrs:
			if err != nil && !isExpectedPTYClose(err) {
				// Non-EIO read error: not recorded anywhere; the watchdog
				// loop still converges via childDone below.
			}
		case waitErr = <-childDone:
			waited = true
			// Drain any remaining buffered chunks before exiting.
			drainRemaining(chunks, &stdout, logFile)
			break loop
		case now := <-ticker.C:
			if hardTimeout > 0 && now.Sub(start) >= hardTimeout {
				timeoutKind = TimeoutHard
				killProcessGroup(cmd)
				break loop
			}
			if noOutputTimeout > 0 && now.Sub(lastOutput) >= noOutputTimeout {
				timeoutKind = TimeoutNoOutput
				killProcessGroup(cmd)
				break loop
			}
		case <-ctx.Done():
			killProcessGroup(cmd)
			break loop
		}
	}

	if !waited {
		select {
		case waitErr = <-childDone:
		case <-time.After(5 * time.Second):
			waitErr = errors.New("timed out waiting for killed process to exit")
		}
	}

	exitCode := exitCodeOf(waitErr)

	return Result{
		ExitCode:    exitCode,
		Stdout:      stdout.String(),
		LogPath:     logPath,
		TimeoutKind: timeoutKind,
	}, nil
}

func drainRemaining(chunks chan []byte, stdout *bytes.Buffer, logFile io.Writer) {
	for {
		select {
		case chunk := <-chunks:
			stdout.Write(chunk)
			logFile.Write(chunk)
		default:
			return
		}
	}
}

func isExpectedPTYClose(err error) bool {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err == syscall.EIO
	}
	return errors.Is(err, io.EOF)
}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err == nil {
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
		return
	}
	_ = cmd.Process.Kill()
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
