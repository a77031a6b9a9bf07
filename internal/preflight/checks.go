package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"golang.org/x/sys/unix"

	"menuviz/internal/config"
	"menuviz/internal/services/llm"
)

// CheckLLM verifies that the LLM API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt (no retries).
func CheckLLM(ctx context.Context, name string, cfg config.LLMConfig) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Referer: cfg.Referer,
		Title:   cfg.Title,
	}, llm.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("API reachable (%s)", cfg.Model)}
}

// CheckImageBackend verifies the image generation host answers. Any
// non-5xx status counts as reachable since the prompt root has no image.
func CheckImageBackend(ctx context.Context, baseURL string) Result {
	const name = "Image backend"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, base, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%v)", err)}
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%v)", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckKafka verifies at least one analytics broker accepts a connection.
func CheckKafka(brokers []string) Result {
	const name = "Kafka analytics"

	if len(brokers) == 0 {
		return Result{Name: name, Detail: "no brokers configured"}
	}
	cfg := sarama.NewConfig()
	cfg.Net.DialTimeout = 5 * time.Second
	cfg.Metadata.Retry.Max = 0
	client, err := sarama.NewClient(brokers, cfg)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("connect failed (%v)", err)}
	}
	defer client.Close()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d broker(s) reachable", len(client.Brokers()))}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// Requirement is an external command MenuViz may run.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// CommandStatus is the lookup result for one requirement.
type CommandStatus struct {
	Requirement
	Available bool
	Detail    string
}

// CheckCommands evaluates the external commands the config refers to. Both
// are optional: without them camera capture or spoken output is unavailable.
func CheckCommands(cfg *config.Config) []CommandStatus {
	requirements := []Requirement{
		{
			Name:        "Camera capture",
			Command:     cfg.Camera.CaptureCommand,
			Description: "Grabs still frames for menuviz scan --camera",
			Optional:    true,
		},
	}
	if strings.TrimSpace(cfg.Speech.Command) != "" {
		requirements = append(requirements, Requirement{
			Name:        "Speech",
			Command:     cfg.Speech.Command,
			Description: "Reads results aloud",
			Optional:    true,
		})
	}

	out := make([]CommandStatus, 0, len(requirements))
	for _, req := range requirements {
		status := CommandStatus{Requirement: req}
		command := strings.TrimSpace(req.Command)
		if command == "" {
			status.Detail = "not configured"
		} else if path, err := exec.LookPath(command); err != nil {
			status.Detail = fmt.Sprintf("%s not found on PATH", command)
		} else {
			status.Available = true
			status.Detail = path
		}
		out = append(out, status)
	}
	return out
}

// summarizeLLMError produces a human-readable summary for LLM health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	return err.Error()
}
