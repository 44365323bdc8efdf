package conduit

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/docker/go-units"
)

// statsPrefix is the marker the conduit workload prints on its periodic
// stats line. Lines without it are ignored.
const statsPrefix = "proxy stats"

var (
	connectingRe = regexp.MustCompile(`\bconnecting(?:Clients)?[=:]\s*([0-9]+)`)
	connectedRe  = regexp.MustCompile(`\bconnected(?:Clients)?[=:]\s*([0-9]+)`)
	bytesUpRe    = regexp.MustCompile(`\b(?:up|bytesUp)[=:]\s*([0-9.]+\s*[KMGTP]?i?B|[0-9]+)`)
	bytesDownRe  = regexp.MustCompile(`\b(?:down|bytesDown)[=:]\s*([0-9.]+\s*[KMGTP]?i?B|[0-9]+)`)
)

// ProxyStats holds the fields scraped from a single conduit stats line.
// Fields missing from the line stay zero.
type ProxyStats struct {
	ConnectingClients int
	ConnectedClients  int
	BytesUp           int64
	BytesDown         int64
}

// ParseProxyStats extracts stats from one log line. The second return value
// is false when the line does not carry the stats marker.
func ParseProxyStats(line string) (ProxyStats, bool) {
	if !strings.Contains(strings.ToLower(line), statsPrefix) {
		return ProxyStats{}, false
	}

	var s ProxyStats
	if m := connectingRe.FindStringSubmatch(line); m != nil {
		s.ConnectingClients, _ = strconv.Atoi(m[1])
	}
	if m := connectedRe.FindStringSubmatch(line); m != nil {
		s.ConnectedClients, _ = strconv.Atoi(m[1])
	}
	s.BytesUp = parseByteField(bytesUpRe, line)
	s.BytesDown = parseByteField(bytesDownRe, line)
	return s, true
}

// LatestProxyStats scans a log tail and returns the newest stats line.
func LatestProxyStats(logText string) (ProxyStats, bool) {
	lines := strings.Split(logText, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if s, ok := ParseProxyStats(lines[i]); ok {
			return s, true
		}
	}
	return ProxyStats{}, false
}

func parseByteField(re *regexp.Regexp, line string) int64 {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return 0
	}
	val := strings.TrimSpace(m[1])
	if n, err := strconv.ParseInt(val, 10, 64); err == nil {
		return n
	}
	if n, err := units.FromHumanSize(val); err == nil {
		return n
	}
	return 0
}

// UpLabel renders the upstream byte total for display, "-" when unknown.
func (s ProxyStats) UpLabel() string {
	return sizeLabel(s.BytesUp)
}

// DownLabel renders the downstream byte total for display, "-" when unknown.
func (s ProxyStats) DownLabel() string {
	return sizeLabel(s.BytesDown)
}

func sizeLabel(n int64) string {
	if n <= 0 {
		return "-"
	}
	return units.HumanSize(float64(n))
}
