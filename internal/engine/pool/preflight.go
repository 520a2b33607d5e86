package pool

import (
	"context"
	"strings"
)

// PreflightError reports an unusable Docker daemon along with a hint for fixing it.
type PreflightError struct {
	Hint  string
	Cause error
}

func (e *PreflightError) Error() string {
	return e.Hint
}

func (e *PreflightError) Unwrap() error {
	return e.Cause
}

// CheckDocker pings the daemon. It runs before any docker_image hook, and before
// unstaged changes are set aside, so a missing daemon never leaves the work tree
// half stashed.
func CheckDocker(ctx context.Context, runtime ContainerRuntime) error {
	if err := runtime.Ping(ctx); err != nil {
		return classifyDockerError(err)
	}
	return nil
}

func classifyDockerError(err error) *PreflightError {
	msg := strings.ToLower(err.Error())

	hint := "docker_image hooks need Docker, but the daemon could not be reached. Install it from https://docs.docker.com/get-docker/"
	switch {
	case strings.Contains(msg, "permission denied"):
		hint = "Docker permission denied. Add yourself to the docker group (sudo usermod -aG docker $USER) and log in again."
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "is the docker daemon running"):
		hint = "Docker is not running. Start the daemon and retry."
	}
	return &PreflightError{Hint: hint, Cause: err}
}
