package engine

import (
	"context"

	"github.com/docker/docker/client"
)

// PingDaemon checks that the Docker daemon is reachable before the
// dispatcher hands work to the compose CLI. Failing here gives the user a
// remediation message instead of a compose stack trace.
func PingDaemon(ctx context.Context) error {
	cli, err := client.NewClientWithOpts(
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return NewEngineError("ping", 0, "failed to create docker client", ErrDaemonUnreachable)
	}
	defer cli.Close()

	if _, err := cli.Ping(ctx); err != nil {
		return NewEngineError("ping", 0, "docker daemon did not answer; is the docker service running?", ErrDaemonUnreachable)
	}
	return nil
}
