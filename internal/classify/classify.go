// Package classify implements risk classification of proposed commands
// against a compiled, immutable rule table.
package classify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gosuda/aegis/internal/domain"
)

// Verdict is the outcome of classifying one command.
type Verdict struct {
	Allowed          bool
	Risk             domain.RiskLevel
	RequiresApproval bool
	Reason           string
}

// Ruleset is the source form of the classification policy. Patterns are
// regular expressions matched against the trimmed command; SafePrefixes is
// a plain allow-list checked on the first token sequence.
type Ruleset struct {
	Forbidden    []string
	High         []string
	Medium       []string
	SafePrefixes []string
}

type compiledRule struct {
	re     *regexp.Regexp
	source string
}

// Classifier evaluates commands against the compiled rule table. It holds
// no mutable state after construction and is safe for concurrent use
// without locking.
type Classifier struct {
	forbidden    []compiledRule
	high         []compiledRule
	medium       []compiledRule
	safePrefixes []string
}

// New compiles a ruleset into a Classifier. A malformed pattern is a
// configuration error and fails construction rather than being skipped.
func New(rules Ruleset) (*Classifier, error) {
	forbidden, err := compile(rules.Forbidden)
	if err != nil {
		return nil, fmt.Errorf("classify.New: forbidden: %w", err)
	}
	high, err := compile(rules.High)
	if err != nil {
		return nil, fmt.Errorf("classify.New: high: %w", err)
	}
	medium, err := compile(rules.Medium)
	if err != nil {
		return nil, fmt.Errorf("classify.New: medium: %w", err)
	}

	return &Classifier{
		forbidden:    forbidden,
		high:         high,
		medium:       medium,
		safePrefixes: rules.SafePrefixes,
	}, nil
}

// Default returns a Classifier built from the built-in homelab rule table.
// Panics on a malformed built-in pattern; that is a programming error and
// must fail at startup, not be hidden at runtime.
func Default() *Classifier {
	c, err := New(DefaultRules())
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultRules is the built-in policy table for homelab command execution.
func DefaultRules() Ruleset {
	return Ruleset{
		Forbidden: []string{
			`rm\s+(-[a-zA-Z]*\s+)*(/|/\*)(\s|$)`,  // recursive delete of root
			`rm\s+-[a-zA-Z]*r[a-zA-Z]*f?\s+/\S*`,  // rm -rf on absolute paths
			`dd\s+.*of=/dev/(sd|nvme|vd|hd)`,      // raw disk write
			`mkfs(\.\w+)?\s`,                      // filesystem creation
			`:\(\)\s*\{.*\};\s*:`,                 // fork bomb
			`(curl|wget)\s+.*\|\s*(sudo\s+)?(ba)?sh`, // pipe remote script to shell
			`>\s*/dev/(sd|nvme|vd|hd)`,            // redirect onto block device
			`chmod\s+(-R\s+)?000\s+/`,             // lock out the root tree
		},
		High: []string{
			`\breboot\b`,
			`\bshutdown\b`,
			`\bhalt\b`,
			`systemctl\s+(stop|disable|mask)\s`,
			`docker\s+(rm|rmi|system\s+prune)`,
			`iptables\s+(-F|--flush)`,
			`userdel\s`,
			`rm\s+-[a-zA-Z]*r`,
		},
		Medium: []string{
			`systemctl\s+(restart|reload|start|enable)\s`,
			`docker\s+(restart|stop|start|kill)\s`,
			`\bkill(all)?\b`,
			`apt(-get)?\s+(install|remove|upgrade)`,
			`ip\s+(link|addr|route)\s+(add|del|set)`,
			`mount\s|umount\s`,
		},
		SafePrefixes: []string{
			"uptime", "df", "du", "free", "ps", "top -b -n 1",
			"systemctl status", "journalctl", "docker ps", "docker logs",
			"docker stats --no-stream", "ip addr show", "ip route show",
			"ping -c", "dig", "nslookup", "cat /proc/", "ls",
			"smartctl -H", "sensors", "whoami", "hostname", "date",
		},
	}
}

// Classify evaluates a single command. Forbidden patterns short-circuit
// regardless of any other match; an empty command fails closed. Commands
// matching nothing classify as medium so they still pass through the
// approval workflow rather than running unattended.
func (c *Classifier) Classify(command string) Verdict {
	cmd := strings.TrimSpace(command)
	if cmd == "" {
		return Verdict{
			Allowed: false,
			Risk:    domain.RiskForbidden,
			Reason:  "empty command",
		}
	}

	if rule, ok := match(c.forbidden, cmd); ok {
		return Verdict{
			Allowed: false,
			Risk:    domain.RiskForbidden,
			Reason:  "matches forbidden pattern " + rule.source,
		}
	}

	if rule, ok := match(c.high, cmd); ok {
		return Verdict{
			Allowed:          true,
			Risk:             domain.RiskHigh,
			RequiresApproval: true,
			Reason:           "matches high-risk pattern " + rule.source,
		}
	}

	if rule, ok := match(c.medium, cmd); ok {
		return Verdict{
			Allowed:          true,
			Risk:             domain.RiskMedium,
			RequiresApproval: true,
			Reason:           "matches medium-risk pattern " + rule.source,
		}
	}

	for _, prefix := range c.safePrefixes {
		if safeMatch(cmd, prefix) {
			return Verdict{
				Allowed: true,
				Risk:    domain.RiskSafe,
				Reason:  "safe allow-list prefix " + prefix,
			}
		}
	}

	// Unmatched commands default to medium: executable, but only after
	// a human signs off.
	return Verdict{
		Allowed:          true,
		Risk:             domain.RiskMedium,
		RequiresApproval: true,
		Reason:           "no rule matched; defaulting to medium",
	}
}

func compile(patterns []string) ([]compiledRule, error) {
	rules := make([]compiledRule, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		rules = append(rules, compiledRule{re: re, source: p})
	}
	return rules, nil
}

// safeMatch reports whether cmd is covered by a safe allow-list prefix.
// The prefix must end on a token boundary so "ls" does not cover "lsof".
func safeMatch(cmd, prefix string) bool {
	if cmd == prefix {
		return true
	}
	if !strings.HasPrefix(cmd, prefix) {
		return false
	}
	next := cmd[len(prefix)]
	return next == ' ' || strings.HasSuffix(prefix, "/")
}

func match(rules []compiledRule, cmd string) (compiledRule, bool) {
	for _, r := range rules {
		if r.re.MatchString(cmd) {
			return r, true
		}
	}
	return compiledRule{}, false
}
