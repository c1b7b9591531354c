//go:build integration

package itest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"
)

const cliTimeout = 30 * time.Second

type robustCase struct {
	name            string
	args            func(t *testing.T, repoRoot string) []string
	env             map[string]string
	wantContains    []string
	wantNotContains []string
}

type cliRunResult struct {
	exitCode int
	output   string
}

func TestRobustness_ArgsValidation(t *testing.T) {
	repoRoot := mustRepoRoot(t)

	cases := []robustCase{
		{
			name: "no args",
			args: staticArgs("transcribe"),
			wantContains: []string{
				"accepts 1 arg(s), received 0",
			},
		},
		{
			name: "too many args",
			args: staticArgs("transcribe", "a.mp4", "extra"),
			wantContains: []string{
				"accepts 1 arg(s), received 2",
			},
		},
		{
			name: "unknown flag",
			args: staticArgs("transcribe", "a.mp4", "--wat"),
			wantContains: []string{
				"unknown flag: --wat",
			},
		},
		{
			name: "unknown duplicate mode",
			args: staticArgs("transcribe", "a.mp4", "--duplicate", "skip"),
			wantContains: []string{
				`duplicate mode: unsupported value "skip"`,
			},
		},
		{
			name: "unknown write mode",
			args: staticArgs("transcribe", "a.mp4", "--write-mode", "mmap"),
			wantContains: []string{
				`write mode: unsupported value "mmap"`,
			},
		},
		{
			name: "gpu non bool",
			args: staticArgs("transcribe", "a.mp4", "--gpu=maybe"),
			wantContains: []string{
				`invalid argument "maybe" for "--gpu"`,
			},
		},
		{
			name: "model id with path",
			args: staticArgs("models", "rm", "../../etc/passwd"),
			wantContains: []string{
				"invalid model id",
			},
		},
		{
			name: "bad config value from env",
			args: staticArgs("history"),
			env: map[string]string{
				"SRTGEN_LOG_FORMAT": "xml",
			},
			wantContains: []string{
				`logging.format "xml"`,
			},
		},
	}

	runRobustCases(t, repoRoot, cases)
}

func TestRobustness_InvalidInputMedia(t *testing.T) {
	repoRoot := mustRepoRoot(t)

	cases := []robustCase{
		{
			name: "missing input path",
			args: func(t *testing.T, _ string) []string {
				return []string{"transcribe", filepath.Join(t.TempDir(), "does-not-exist.mp4")}
			},
			wantContains: []string{
				"Cannot read input media: input file not found",
			},
		},
		{
			name: "input is directory",
			args: func(t *testing.T, _ string) []string {
				return []string{"transcribe", t.TempDir()}
			},
			wantContains: []string{
				"input is a directory",
			},
		},
		{
			name: "input is non media file",
			args: func(t *testing.T, _ string) []string {
				t.Helper()
				p := filepath.Join(t.TempDir(), "not-media.txt")
				if err := os.WriteFile(p, []byte("plain text, not audio"), 0o644); err != nil {
					t.Fatalf("write fixture: %v", err)
				}
				return []string{"transcribe", p}
			},
			wantContains: []string{
				"Audio conversion failed",
			},
		},
		{
			name: "model not downloaded",
			args: func(t *testing.T, _ string) []string {
				t.Helper()
				p := filepath.Join(t.TempDir(), "talk.mp4")
				if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
					t.Fatalf("write fixture: %v", err)
				}
				return []string{"transcribe", p, "--model", "medium"}
			},
			wantContains: []string{
				"Model unavailable: medium",
			},
		},
	}

	runRobustCases(t, repoRoot, cases)
}

func runRobustCases(t *testing.T, repoRoot string, cases []robustCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := runCLI(t, repoRoot, tc.args(t, repoRoot), isolatedEnv(t), tc.env)
			if res.exitCode == 0 {
				t.Fatalf("expected non-zero exit code, got 0\noutput:\n%s", res.output)
			}
			for _, want := range tc.wantContains {
				if !strings.Contains(res.output, want) {
					t.Fatalf("expected output to contain %q\noutput:\n%s", want, res.output)
				}
			}
			for _, notWant := range tc.wantNotContains {
				if strings.Contains(res.output, notWant) {
					t.Fatalf("expected output to not contain %q\noutput:\n%s", notWant, res.output)
				}
			}
		})
	}
}

func runCLI(t *testing.T, repoRoot string, args []string, env ...map[string]string) cliRunResult {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()

	cmdArgs := append([]string{"run", "./cmd/srtgen"}, args...)
	cmd := exec.CommandContext(ctx, "go", cmdArgs...)
	cmd.Dir = repoRoot
	overrides := append([]map[string]string{{
		"NO_COLOR": "1",
		"TERM":     "dumb",
	}}, env...)
	cmd.Env = mergeEnv(os.Environ(), overrides...)

	out, err := cmd.CombinedOutput()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		t.Fatalf("command timed out after %s: go %s", cliTimeout, strings.Join(cmdArgs, " "))
	}

	res := cliRunResult{output: string(out)}
	if err == nil {
		res.exitCode = 0
		return res
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.exitCode = exitErr.ExitCode()
		return res
	}

	t.Fatalf("run command: %v\noutput:\n%s", err, string(out))
	return cliRunResult{}
}

func mergeEnv(base []string, overrides ...map[string]string) []string {
	env := make(map[string]string, len(base))
	for _, kv := range base {
		i := strings.IndexByte(kv, '=')
		if i <= 0 {
			continue
		}
		env[kv[:i]] = kv[i+1:]
	}

	for _, set := range overrides {
		for k, v := range set {
			env[k] = v
		}
	}

	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(out)
	return out
}

// isolatedEnv points config, state and models at a fresh temp dir that holds
// a placeholder ggml-base.bin.
func isolatedEnv(t *testing.T) map[string]string {
	t.Helper()
	dir := t.TempDir()
	modelsDir := filepath.Join(dir, "models")
	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		t.Fatalf("create models dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(modelsDir, "ggml-base.bin"), []byte("placeholder"), 0o644); err != nil {
		t.Fatalf("write model placeholder: %v", err)
	}
	return map[string]string{
		"SRTGEN_CONFIG":     filepath.Join(dir, "config.toml"),
		"SRTGEN_MODELS_DIR": modelsDir,
		"SRTGEN_STATE_DIR":  filepath.Join(dir, "state"),
		"SRTGEN_MODEL":      "base",
	}
}

func staticArgs(args ...string) func(t *testing.T, _ string) []string {
	clone := append([]string(nil), args...)
	return func(t *testing.T, _ string) []string {
		t.Helper()
		return append([]string(nil), clone...)
	}
}
