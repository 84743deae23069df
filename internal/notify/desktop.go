package notify

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// DesktopSender shows a macOS notification through osascript.
type DesktopSender struct {
	goos string
	run  commandRunner
}

// NewDesktopSender returns a DesktopSender for the running OS.
func NewDesktopSender() *DesktopSender {
	return &DesktopSender{goos: runtime.GOOS, run: execRunner}
}

// Send displays title and message in the notification centre.
func (d *DesktopSender) Send(ctx context.Context, title, message string) error {
	if d.goos != "darwin" {
		return fmt.Errorf("desktop: notifications need macOS, running on %s", d.goos)
	}
	script := fmt.Sprintf(`display notification %s with title %s`, appleScriptString(message), appleScriptString(title))
	if out, err := d.run(ctx, "osascript", "-e", script); err != nil {
		return fmt.Errorf("desktop: osascript: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Name returns the sender identifier.
func (d *DesktopSender) Name() string { return "desktop" }

// appleScriptString quotes s as an AppleScript string literal.
func appleScriptString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}
