package core

import "os/exec"

func configureProcess(cmd *exec.Cmd) {}
