package judge

// #region imports
import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// #endregion

// #region options

// ProcessOptions configures a ProcessRunner.
type ProcessOptions struct {
	Candidates    []string      // probed in order
	Entrypoint    string        // file that must exist in the installation root
	Interpreter   string        // program that runs the entry point
	Timeout       time.Duration // hard deadline per run
	CredentialEnv string        // env var holding the judge credential
	ModelHost     string        // exported to the judge as OLLAMA_API_BASE
}

func (o ProcessOptions) withDefaults() ProcessOptions {
	if o.Candidates == nil {
		o.Candidates = DefaultCandidates
	}
	if o.Entrypoint == "" {
		o.Entrypoint = DefaultEntrypoint
	}
	if o.Interpreter == "" {
		o.Interpreter = DefaultInterpreter
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.CredentialEnv == "" {
		o.CredentialEnv = DefaultCredential
	}
	return o
}

const stderrTail = 512

// #endregion

// #region runner-struct

// ProcessRunner invokes a locally installed judge as a child process.
type ProcessRunner struct {
	opts   ProcessOptions
	logger zerolog.Logger

	mu   sync.Mutex
	root string
}

// NewProcessRunner creates a runner. The installation is probed on Ready.
func NewProcessRunner(opts ProcessOptions, logger zerolog.Logger) *ProcessRunner {
	return &ProcessRunner{
		opts:   opts.withDefaults(),
		logger: logger.With().Str("component", "judge-process").Logger(),
	}
}

// #endregion

// #region ready

// Ready probes the installation and checks the credential.
func (r *ProcessRunner) Ready() error {
	if _, err := r.installation(); err != nil {
		return err
	}
	if os.Getenv(r.opts.CredentialEnv) == "" {
		return fmt.Errorf("%w: %s", ErrMissingCredential, r.opts.CredentialEnv)
	}
	return nil
}

func (r *ProcessRunner) installation() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.root != "" {
		return r.root, nil
	}
	root, err := FindInstallation(r.opts.Candidates, r.opts.Entrypoint)
	if err != nil {
		return "", err
	}
	r.root = root
	r.logger.Debug().Str("root", root).Msg("judge installation found")
	return root, nil
}

// #endregion

// #region run

// Run writes the seed file and executes the judge under a hard deadline.
// Caller cancellation does not stop an in-flight run; only the deadline does.
func (r *ProcessRunner) Run(ctx context.Context, cfg Config) ([]byte, error) {
	root, err := r.installation()
	if err != nil {
		return nil, err
	}

	seedPath, err := WriteConfig(cfg)
	if err != nil {
		return nil, err
	}
	defer os.Remove(seedPath)

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.opts.Interpreter, filepath.Join(root, r.opts.Entrypoint), seedPath)
	cmd.Dir = root
	cmd.Env = r.env()
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	r.logger.Info().
		Str("behavior", cfg.Behavior).
		Str("model", cfg.TargetModel).
		Dur("timeout", r.opts.Timeout).
		Msg("starting judge")

	err = cmd.Run()
	elapsed := time.Since(started)

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		r.logger.Warn().Dur("elapsed", elapsed).Msg("judge killed at deadline")
		return nil, fmt.Errorf("%w after %s", ErrTimeout, r.opts.Timeout)
	}
	if err != nil {
		r.logger.Warn().Err(err).Dur("elapsed", elapsed).Msg("judge failed")
		if tail := lastBytes(stderr.String(), stderrTail); tail != "" {
			return nil, fmt.Errorf("judge exited: %w: %s", err, tail)
		}
		return nil, fmt.Errorf("judge exited: %w", err)
	}

	r.logger.Info().Dur("elapsed", elapsed).Int("bytes", stdout.Len()).Msg("judge finished")
	return stdout.Bytes(), nil
}

// #endregion

// #region helpers

func (r *ProcessRunner) env() []string {
	env := os.Environ()
	env = append(env, r.opts.CredentialEnv+"="+os.Getenv(r.opts.CredentialEnv))
	if r.opts.ModelHost != "" {
		env = append(env, "OLLAMA_API_BASE="+r.opts.ModelHost)
	}
	return env
}

func lastBytes(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// #endregion
