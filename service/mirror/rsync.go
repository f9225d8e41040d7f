package mirror

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/woodlandhills/snowcam/service/config"
	"github.com/woodlandhills/snowcam/service/lgr"
)

const (
	syncTimeout = 60 * time.Second
	sshTimeout  = 15 * time.Second
)

type rsyncService struct {
	CfgSvc config.IService
}

// NewRsync returns a mirror publisher that shells out to rsync over ssh.
func NewRsync(cfgsvc config.IService) IService {
	return &rsyncService{
		CfgSvc: cfgsvc,
	}
}

func (svc *rsyncService) Enabled() bool {
	return svc.CfgSvc.IsMirrorEnabled()
}

func (svc *rsyncService) Sync(ctx context.Context, localDir string) bool {
	if !svc.Enabled() {
		lgr.Logger.Debug("mirror sync disabled, skipping")
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	sshCmd := fmt.Sprintf("ssh -p %d -i %s -o StrictHostKeyChecking=no",
		svc.CfgSvc.GetMirrorPort(),
		svc.CfgSvc.GetMirrorSSHKeyPath(),
	)

	args := strings.Fields(svc.CfgSvc.GetMirrorRsyncOptions())
	args = append(args,
		"-e", sshCmd,
		localDir+"/",
		fmt.Sprintf("%s@%s:%s/",
			svc.CfgSvc.GetMirrorUser(),
			svc.CfgSvc.GetMirrorHost(),
			svc.CfgSvc.GetMirrorRemotePath(),
		),
	)

	lgr.Logger.Info("starting mirror synchronization",
		slog.String("localPath", localDir),
		slog.String("remotePath", svc.CfgSvc.GetMirrorRemotePath()),
	)

	cmd := exec.CommandContext(ctx, "rsync", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		lgr.Logger.Error("mirror synchronization failed",
			slog.Any("error", err),
			slog.String("stderr", strings.TrimSpace(stderr.String())),
		)
		return false
	}

	lgr.Logger.Info("mirror synchronization completed")

	// Refresh the landing page so the remote host always embeds the newest
	// sequence. Best-effort like the sync itself.
	svc.updateIndexHTML(ctx, localDir)

	return true
}

func (svc *rsyncService) TestConnection(ctx context.Context) bool {
	if !svc.Enabled() {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, sshTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ssh",
		svc.sshArgs("echo mirror connection test successful")...)

	if err := cmd.Run(); err != nil {
		lgr.Logger.Warn("mirror connection test failed", slog.Any("error", err))
		return false
	}

	lgr.Logger.Info("mirror connection test successful")
	return true
}

func (svc *rsyncService) Status() map[string]interface{} {
	if !svc.Enabled() {
		return map[string]interface{}{"enabled": false}
	}

	_, keyErr := os.Stat(svc.CfgSvc.GetMirrorSSHKeyPath())

	return map[string]interface{}{
		"enabled":      true,
		"host":         svc.CfgSvc.GetMirrorHost(),
		"user":         svc.CfgSvc.GetMirrorUser(),
		"remotePath":   svc.CfgSvc.GetMirrorRemotePath(),
		"sshKeyExists": keyErr == nil,
	}
}

func (svc *rsyncService) updateIndexHTML(ctx context.Context, localDir string) {
	latest := latestSequenceName(localDir)
	if latest == "" {
		lgr.Logger.Warn("no sequence found to embed in mirror index.html")
		return
	}

	html := indexHTML(latest)

	ctx, cancel := context.WithTimeout(ctx, sshTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ssh",
		svc.sshArgs(fmt.Sprintf("cat > %s/index.html", svc.CfgSvc.GetMirrorRemotePath()))...)
	cmd.Stdin = strings.NewReader(html)

	if err := cmd.Run(); err != nil {
		lgr.Logger.Warn("failed to update mirror index.html", slog.Any("error", err))
		return
	}

	lgr.Logger.Info("mirror index.html updated", slog.String("sequence", latest))
}

func (svc *rsyncService) sshArgs(remoteCmd string) []string {
	return []string{
		"-p", fmt.Sprintf("%d", svc.CfgSvc.GetMirrorPort()),
		"-i", svc.CfgSvc.GetMirrorSSHKeyPath(),
		"-o", "StrictHostKeyChecking=no",
		"-o", "ConnectTimeout=10",
		fmt.Sprintf("%s@%s", svc.CfgSvc.GetMirrorUser(), svc.CfgSvc.GetMirrorHost()),
		remoteCmd,
	}
}

func latestSequenceName(dir string) string {
	paths, err := filepath.Glob(filepath.Join(dir, "*.gif"))
	if err != nil || len(paths) == 0 {
		return ""
	}

	sort.Slice(paths, func(i, j int) bool {
		si, erri := os.Stat(paths[i])
		sj, errj := os.Stat(paths[j])
		if erri != nil || errj != nil {
			return paths[i] > paths[j]
		}
		return si.ModTime().After(sj.ModTime())
	})

	return filepath.Base(paths[0])
}

func indexHTML(sequenceName string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <title>Snow Load Monitoring</title>
    <meta http-equiv="refresh" content="300">
    <style>
        body { font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f0f0f0; }
        .container { max-width: 1200px; margin: 0 auto; background-color: white; border-radius: 8px; overflow: hidden; }
        .header { background-color: #2c3e50; color: white; padding: 20px; text-align: center; }
        .content { padding: 20px; text-align: center; }
        .camera-image { max-width: 100%%; height: auto; border-radius: 4px; }
        .info { margin-top: 20px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Snow Load Monitoring</h1>
        </div>
        <div class="content">
            <img src="%s" alt="Snow Load Monitoring" class="camera-image">
            <div class="info">
                <p>Updates every 5 minutes. Page refreshes automatically.</p>
            </div>
        </div>
    </div>
</body>
</html>
`, sequenceName)
}
