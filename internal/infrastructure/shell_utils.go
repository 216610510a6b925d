package infrastructure

import (
	"net/url"
	"strings"
)

// characters with a special meaning to a POSIX shell
const shellSpecialChars = " \t\n\r'\"$`\\!*?[](){}|;<>&~#%"

// maximum query length kept when a URL argument is logged
const maxLoggedQuery = 48

// ShellEscape quotes s for a POSIX shell when it contains special characters.
// The result is used for display and for yt-dlp's --downloader-args, which
// splits its value shell-style.
func ShellEscape(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, shellSpecialChars) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// ShellEscapeCommand renders a command line for the transfer log.
// Long query strings of URL arguments are elided, signed CDN links run to
// several kilobytes.
func ShellEscapeCommand(binary string, args ...string) string {
	var b strings.Builder
	b.WriteString(ShellEscape(binary))
	for _, arg := range args {
		b.WriteByte(' ')
		b.WriteString(ShellEscape(elideURLQuery(arg)))
	}
	return b.String()
}

func elideURLQuery(arg string) string {
	if !strings.HasPrefix(arg, "http://") && !strings.HasPrefix(arg, "https://") {
		return arg
	}
	u, err := url.Parse(arg)
	if err != nil || len(u.RawQuery) <= maxLoggedQuery {
		return arg
	}
	u.RawQuery = u.RawQuery[:maxLoggedQuery] + "..."
	return u.String()
}
