//go:build !linux

package gitexec

import "os/exec"

func setSysProcAttr(cmd *exec.Cmd) {}
