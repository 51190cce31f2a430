package bind

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// AppID identifies bindings owned by this tool in the HTTP.SYS binding
// table. Fixed so re-runs replace our own binding rather than stacking up.
const AppID = "{9d42cc9e-6a5a-4f83-9a2f-5f6b6c8d1f20}"

type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// NetshListener manages HTTP.SYS SSL bindings through netsh.
type NetshListener struct {
	run runner
}

func NewNetshListener() *NetshListener {
	return &NetshListener{run: execRun}
}

// Unbind implements Listener.
func (l *NetshListener) Unbind(ctx context.Context, ip string, port int) error {
	out, err := l.run(ctx, "netsh", "http", "delete", "sslcert", ipport(ip, port))
	if err != nil {
		if nothingBound(out) {
			return nil
		}
		return fmt.Errorf("netsh delete sslcert: %v: %s", err, bytes.TrimSpace(out))
	}
	return nil
}

// Bind implements Listener.
func (l *NetshListener) Bind(ctx context.Context, ip string, port int, thumbprint string) error {
	out, err := l.run(ctx, "netsh", "http", "add", "sslcert",
		ipport(ip, port), "certhash="+thumbprint, "appid="+AppID)
	if err != nil {
		return fmt.Errorf("netsh add sslcert: %v: %s", err, bytes.TrimSpace(out))
	}
	return nil
}

func ipport(ip string, port int) string {
	return fmt.Sprintf("ipport=%s:%d", ip, port)
}

// nothingBound matches netsh's complaint when no binding exists at the
// ipport (ERROR_FILE_NOT_FOUND).
func nothingBound(out []byte) bool {
	s := strings.ToLower(string(out))
	return strings.Contains(s, "cannot find") || strings.Contains(s, "file specified")
}

// WindowsServiceController drives the hosting service with net stop/start.
type WindowsServiceController struct {
	run runner
}

func NewWindowsServiceController() *WindowsServiceController {
	return &WindowsServiceController{run: execRun}
}

// Stop implements ServiceController.
func (c *WindowsServiceController) Stop(ctx context.Context, name string) error {
	out, err := c.run(ctx, "net", "stop", name)
	if err != nil {
		if alreadyStopped(out) {
			return nil
		}
		return fmt.Errorf("net stop %s: %v: %s", name, err, bytes.TrimSpace(out))
	}
	return nil
}

// Start implements ServiceController.
func (c *WindowsServiceController) Start(ctx context.Context, name string) error {
	out, err := c.run(ctx, "net", "start", name)
	if err != nil {
		return fmt.Errorf("net start %s: %v: %s", name, err, bytes.TrimSpace(out))
	}
	return nil
}

func alreadyStopped(out []byte) bool {
	return strings.Contains(strings.ToLower(string(out)), "is not started")
}
