package restart

import (
	"os"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// Supervisor describes the parent process
type Supervisor struct {
	PID   int32
	Name  string
	Known bool // the parent is a process manager that relaunches children
}

var knownSupervisors = []string{
	"systemd",
	"supervisord",
	"runsv",
	"s6-supervise",
	"tini",
	"dumb-init",
	"docker-init",
	"containerd-shim",
	"launchd",
	"pm2",
}

// IsKnownSupervisor reports whether a process name belongs to a supervisor
func IsKnownSupervisor(name string) bool {
	name = strings.ToLower(name)
	for _, s := range knownSupervisors {
		if name == s || strings.HasPrefix(name, s) {
			return true
		}
	}
	return false
}

// DetectSupervisor inspects the parent of the current process
func DetectSupervisor() Supervisor {
	return detectParent(int32(os.Getppid()))
}

func detectParent(ppid int32) Supervisor {
	sup := Supervisor{PID: ppid, Name: "unknown"}

	proc, err := process.NewProcess(ppid)
	if err != nil {
		return sup
	}
	name, err := proc.Name()
	if err != nil || name == "" {
		return sup
	}

	sup.Name = name
	sup.Known = IsKnownSupervisor(name)
	return sup
}
