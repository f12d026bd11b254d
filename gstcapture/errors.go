package gstcapture

import (
	"strings"

	"github.com/tinyzimmer/go-gst/gst"
)

// ErrorCategory classifies GStreamer errors for telemetry. Network
// errors are worth reconnecting on; codec and auth errors usually are
// not, but the reconnect loop treats them uniformly and lets the
// backoff cap bound the damage.
type ErrorCategory int

const (
	// CategoryNetwork indicates connection, timeout or DNS failures.
	CategoryNetwork ErrorCategory = iota
	// CategoryCodec indicates decode/format/negotiation failures.
	CategoryCodec
	// CategoryAuth indicates authentication/authorization failures.
	CategoryAuth
	// CategoryUnknown indicates unclassified failures.
	CategoryUnknown
)

// String returns a human-readable category name.
func (c ErrorCategory) String() string {
	switch c {
	case CategoryNetwork:
		return "network"
	case CategoryCodec:
		return "codec"
	case CategoryAuth:
		return "auth"
	default:
		return "unknown"
	}
}

var (
	authKeywords = []string{
		"unauthorized", "401", "403", "forbidden",
		"authentication", "credentials", "password",
	}
	codecKeywords = []string{
		"codec", "decode", "format", "negotiation", "caps",
		"h264", "not negotiated", "no decoder", "missing plugin",
	}
	networkKeywords = []string{
		"connection", "timeout", "unreachable", "network", "dns",
		"resolve", "socket", "tcp", "rtsp", "could not connect",
	}
)

// classifyError categorizes a GStreamer bus error by message heuristics
// (go-gst's GError does not expose the error domain).
func classifyError(gerr *gst.GError) ErrorCategory {
	if gerr == nil {
		return CategoryUnknown
	}
	combined := strings.ToLower(gerr.Error() + " " + gerr.DebugString())
	return classifyMessage(combined)
}

// classifyMessage classifies an already-lowercased error string.
// Auth is checked first (most specific), then codec, then network.
func classifyMessage(combined string) ErrorCategory {
	for _, kw := range authKeywords {
		if strings.Contains(combined, kw) {
			return CategoryAuth
		}
	}
	for _, kw := range codecKeywords {
		if strings.Contains(combined, kw) {
			return CategoryCodec
		}
	}
	for _, kw := range networkKeywords {
		if strings.Contains(combined, kw) {
			return CategoryNetwork
		}
	}
	return CategoryUnknown
}
