package infrastructure

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

// Summary line: [#2089b0 SIZE:256KiB/1.5MiB(16%) CN:1 DL:256KiB ETA:5s]
var (
	summarySizeRe  = regexp.MustCompile(`SIZE:([^/]+)/([^(]+)\((\d+)%\)`)
	summarySpeedRe = regexp.MustCompile(`SPD:([^\]]+)`)
	summaryDLRe    = regexp.MustCompile(`DL:([^\s\]]+)`)
	summaryETARe   = regexp.MustCompile(`ETA:([^\s\]]+)`)
)

// size suffixes, longest first so that "KiB" is not read as "B"
var sizeUnits = []struct {
	suffix     string
	multiplier float64
}{
	{"TiB", 1 << 40},
	{"GiB", 1 << 30},
	{"MiB", 1 << 20},
	{"KiB", 1 << 10},
	{"B", 1},
}

// ParseSummaryLine parses one accelerator summary line.
// It returns false for any line that is not a summary line.
func ParseSummaryLine(line string) (domain.AcceleratorSnapshot, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "[#") || !strings.Contains(line, "SIZE:") {
		return domain.AcceleratorSnapshot{}, false
	}

	m := summarySizeRe.FindStringSubmatch(line)
	if m == nil {
		return domain.AcceleratorSnapshot{}, false
	}
	percent, err := strconv.Atoi(m[3])
	if err != nil {
		return domain.AcceleratorSnapshot{}, false
	}

	speed := "0B/s"
	if s := summarySpeedRe.FindStringSubmatch(line); s != nil {
		speed = strings.TrimSpace(s[1])
	} else if s := summaryDLRe.FindStringSubmatch(line); s != nil {
		speed = s[1] + "/s"
	}

	eta := "--"
	if e := summaryETARe.FindStringSubmatch(line); e != nil && e[1] != "-" {
		eta = e[1]
	}

	return domain.AcceleratorSnapshot{
		DownloadedBytes: ParseSize(strings.TrimSpace(m[1])),
		TotalBytes:      ParseSize(strings.TrimSpace(m[2])),
		Percent:         math.Min(domain.MaxInFlightPercent, float64(percent)),
		Speed:           speed,
		ETA:             eta,
	}, true
}

// ParseSize converts an accelerator size token (B, KiB, MiB, GiB, TiB) into bytes.
// Empty, zero and unrecognized tokens yield 0.
func ParseSize(token string) int64 {
	if token == "" || token == "0B" {
		return 0
	}
	for _, unit := range sizeUnits {
		if !strings.HasSuffix(token, unit.suffix) {
			continue
		}
		n, err := strconv.ParseFloat(strings.TrimSuffix(token, unit.suffix), 64)
		if err != nil || n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		size := n * unit.multiplier
		if size >= math.MaxInt64 {
			return 0
		}
		return int64(size)
	}
	return 0
}
