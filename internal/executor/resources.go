package executor

import (
	"fmt"
	"strconv"
	"strings"
)

// sandboxLimits are the resource bounds applied to every sandbox container,
// parsed once when the runner is built so a bad limit string fails at
// startup instead of on the first command.
type sandboxLimits struct {
	memoryBytes int64
	cpuQuota    int64
}

// dockerCPUPeriod is the scheduler period Docker uses for CPU quotas, in
// microseconds per period.
const dockerCPUPeriod = 100_000

func parseSandboxLimits(cpu, memory string) (sandboxLimits, error) {
	memBytes, err := parseMemoryBytes(memory)
	if err != nil {
		return sandboxLimits{}, fmt.Errorf("memory limit: %w", err)
	}

	quota, err := parseCPUQuota(cpu)
	if err != nil {
		return sandboxLimits{}, fmt.Errorf("cpu limit: %w", err)
	}

	return sandboxLimits{memoryBytes: memBytes, cpuQuota: quota}, nil
}

// parseMemoryBytes converts a human-readable memory limit ("2g", "512m",
// "1024k", bare bytes) to bytes. Empty or "0" disables the limit.
func parseMemoryBytes(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "0" {
		return 0, nil
	}

	unit := int64(1)
	switch {
	case strings.HasSuffix(s, "g"):
		unit = 1 << 30
		s = strings.TrimSuffix(s, "g")
	case strings.HasSuffix(s, "m"):
		unit = 1 << 20
		s = strings.TrimSuffix(s, "m")
	case strings.HasSuffix(s, "k"):
		unit = 1 << 10
		s = strings.TrimSuffix(s, "k")
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parseMemoryBytes(%q): %w", s, err)
	}

	return n * unit, nil
}

// parseCPUQuota converts a CPU core count ("2", "0.5") to a Docker CPU
// quota in microseconds per period. Empty or "0" disables the limit.
func parseCPUQuota(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}

	cores, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parseCPUQuota(%q): %w", s, err)
	}

	return int64(cores * dockerCPUPeriod), nil
}
