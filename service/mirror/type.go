package mirror

import "context"

// The mirror is best-effort: callers only depend on the boolean outcome and
// must never block pipeline health on it.
type IService interface {
	Enabled() bool
	// Sync pushes the local directory to the remote host. Returns true on
	// success; also true when mirroring is disabled (nothing to do).
	Sync(ctx context.Context, localDir string) bool
	// TestConnection probes the remote host over ssh.
	TestConnection(ctx context.Context) bool
	Status() map[string]interface{}
}
