package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Harness identifies which coding-agent CLI family a model string selects.
type Harness int

const (
	// HarnessCodex is the only harness the core requires (spec.md §4.3, §6).
	HarnessCodex Harness = iota
	HarnessClaude
	HarnessGeneric
)

func (h Harness) String() string {
	switch h {
	case HarnessCodex:
		return "codex"
	case HarnessClaude:
		return "claude-code"
	default:
		return "typoi"
	}
}

// SelectHarness maps a model string to a harness family by prefix, per
// spec.md §6: "claude-" -> claude-code, "codex-"/"gpt-" -> codex,
// otherwise -> generic ("typoi").
func SelectHarness(model string) Harness {
	switch {
	case strings.HasPrefix(model, "claude-"):
		return HarnessClaude
	case strings.HasPrefix(model, "codex-"), strings.HasPrefix(model, "gpt-"):
		return HarnessCodex
	default:
		return HarnessGeneric
	}
}

// Endpoint is a parsed MCP endpoint URL with defaulted port.
type Endpoint struct {
	Scheme string
	Host   string
	Port   int
}

// String renders the endpoint back to "<scheme>://<host>:<port>".
func (e Endpoint) String() string {
	return fmt.Sprintf("%s://%s:%d", e.Scheme, e.Host, e.Port)
}

// ParseEndpoint parses an MCP endpoint URL. Scheme and host are required;
// port defaults to 443 for https and 80 for http when omitted, and must
// fall in [1, 65535] (spec.md §6).
func ParseEndpoint(raw string) (host string, port int, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, fmt.Errorf("parsing endpoint %q: %w", raw, err)
	}
	if u.Scheme == "" {
		return "", 0, fmt.Errorf("endpoint %q: missing scheme", raw)
	}
	if u.Hostname() == "" {
		return "", 0, fmt.Errorf("endpoint %q: missing host", raw)
	}

	portStr := u.Port()
	if portStr == "" {
		switch u.Scheme {
		case "https":
			return u.Hostname(), 443, nil
		case "http":
			return u.Hostname(), 80, nil
		default:
			return "", 0, fmt.Errorf("endpoint %q: no port and no default for scheme %q", raw, u.Scheme)
		}
	}

	p, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("endpoint %q: invalid port: %w", raw, err)
	}
	if p < 1 || p > 65535 {
		return "", 0, fmt.Errorf("endpoint %q: port %d out of range [1, 65535]", raw, p)
	}
	return u.Hostname(), p, nil
}

// ParseEndpointStruct is a convenience wrapper returning an Endpoint value.
func ParseEndpointStruct(raw string) (Endpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, err
	}
	host, port, err := ParseEndpoint(raw)
	if err != nil {
		return Endpoint{}, err
	}
	return Endpoint{Scheme: u.Scheme, Host: host, Port: port}, nil
}
