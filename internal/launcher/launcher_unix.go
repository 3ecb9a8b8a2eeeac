//go:build !windows

package launcher

import (
	"os/exec"
	"runtime"
	"syscall"
)

// setProcAttr puts the browser in its own process group so terminate reaches helpers.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// terminate sends SIGTERM to the process group, falling back to the process.
func terminate(cmd *exec.Cmd) error {
	pid := cmd.Process.Pid
	pgid, err := syscall.Getpgid(pid)
	if err == nil && pgid > 0 {
		return syscall.Kill(-pgid, syscall.SIGTERM)
	}
	return syscall.Kill(pid, syscall.SIGTERM)
}

func openerCommand() string {
	if runtime.GOOS == "darwin" {
		return "open"
	}
	return "xdg-open"
}

// openDefault hands url to the desktop's URL handler.
func openDefault(url string) error {
	cmd := exec.Command(openerCommand(), url)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
