package whisper

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

//go:embed assets/fw_helper.py
var helperScript []byte

const pythonPathEnv = "FWTEXT_PYTHON"

// HelperEngine runs faster-whisper inside a Python helper process and talks to it over
// JSON lines on stdin/stdout.
type HelperEngine struct {
	Python string
	Logger *zap.Logger
}

var _ Engine = (*HelperEngine)(nil)

func NewHelperEngine(logger *zap.Logger) (*HelperEngine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if override := strings.TrimSpace(os.Getenv(pythonPathEnv)); override != "" {
		if err := ensureExecutable(override); err != nil {
			return nil, fmt.Errorf("%s is not executable: %w", pythonPathEnv, err)
		}
		return &HelperEngine{Python: override, Logger: logger}, nil
	}

	python, err := ResolvePython(exec.LookPath)
	if err != nil {
		return nil, err
	}

	return &HelperEngine{Python: python, Logger: logger}, nil
}

func ResolvePython(lookPath func(string) (string, error)) (string, error) {
	candidates := PythonCandidates(runtime.GOOS)
	for _, candidate := range candidates {
		if path, err := lookPath(candidate); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("python interpreter not found (tried %s); install Python 3 with faster-whisper or set %s", strings.Join(candidates, ", "), pythonPathEnv)
}

func PythonCandidates(goos string) []string {
	if goos == "windows" {
		return []string{"python", "py", "python3"}
	}
	return []string{"python3", "python"}
}

// Load starts the helper and blocks until the model is resident.
func (e *HelperEngine) Load(ctx context.Context, req LoadRequest) (Model, error) {
	modelDir, err := ResolveModelDir(req.ModelDir)
	if err != nil {
		return nil, err
	}
	if _, err := exec.LookPath(e.Python); err != nil {
		return nil, fmt.Errorf("python interpreter missing or not executable: %w", err)
	}

	script, err := os.CreateTemp("", "fwtext-helper-*.py")
	if err != nil {
		return nil, fmt.Errorf("create helper script: %w", err)
	}
	scriptPath := script.Name()
	removeScript := func() {
		if err := os.Remove(scriptPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			e.log().Warn("failed to remove helper script", zap.String("path", scriptPath), zap.Error(err))
		}
	}
	if _, err := script.Write(helperScript); err != nil {
		_ = script.Close()
		removeScript()
		return nil, fmt.Errorf("write helper script: %w", err)
	}
	if err := script.Close(); err != nil {
		removeScript()
		return nil, fmt.Errorf("write helper script: %w", err)
	}

	args := []string{scriptPath, "--model-dir", modelDir, "--device", req.Device, "--compute-type", req.ComputeType}
	cmd := exec.CommandContext(ctx, e.Python, args...)
	stderr := newTailBuffer(8 << 10)
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		removeScript()
		return nil, fmt.Errorf("open helper stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		removeScript()
		return nil, fmt.Errorf("open helper stdout: %w", err)
	}

	e.log().Debug("starting faster-whisper helper", zap.String("python", e.Python), zap.Strings("args", args))
	if err := cmd.Start(); err != nil {
		removeScript()
		return nil, fmt.Errorf("start python helper: %w", err)
	}

	model := newHelperModel(stdin, stdout, e.log())
	model.wait = func() error {
		waitErr := cmd.Wait()
		if waitErr == nil {
			return nil
		}
		return classifyHelperFailure(e.Python, waitErr, stderr.String())
	}
	model.kill = func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
	}
	model.cleanup = removeScript

	if err := model.awaitReady(); err != nil {
		_ = model.Close()
		return nil, err
	}

	return model, nil
}

func (e *HelperEngine) log() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func classifyHelperFailure(python string, err error, stderr string) error {
	errText := lastLines(strings.TrimSpace(stderr), 6)
	switch {
	case isMissingModuleError(stderr):
		return fmt.Errorf("faster-whisper is not installed for %s; run `%s -m pip install faster-whisper`", python, python)
	case isCUDALibraryError(stderr):
		return fmt.Errorf("faster-whisper could not load CUDA libraries (%s); install cuBLAS/cuDNN or use the cpu device", errText)
	case isIllegalInstructionError(stderr) || isIllegalInstructionError(err.Error()):
		return errors.New("faster-whisper helper crashed with an illegal CPU instruction; " +
			"your CPU may lack instruction set extensions required by CTranslate2")
	case errText != "":
		return fmt.Errorf("faster-whisper helper failed: %w (%s)", err, errText)
	default:
		return fmt.Errorf("faster-whisper helper failed: %w", err)
	}
}

func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}

func isMissingModuleError(stderr string) bool {
	value := strings.ToLower(stderr)
	return strings.Contains(value, "no module named 'faster_whisper'") ||
		strings.Contains(value, "no module named \"faster_whisper\"")
}

func isCUDALibraryError(stderr string) bool {
	value := strings.ToLower(strings.TrimSpace(stderr))
	if value == "" {
		return false
	}

	patterns := []string{
		"libcublas",
		"libcudnn",
		"cuda driver version is insufficient",
		"no cuda-capable device",
	}

	for _, pattern := range patterns {
		if strings.Contains(value, pattern) {
			return true
		}
	}

	return false
}

func isIllegalInstructionError(stderr string) bool {
	return strings.Contains(strings.ToLower(stderr), "illegal instruction")
}

func lastLines(text string, n int) string {
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
