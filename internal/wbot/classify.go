package wbot

import "strings"

// fatalMarkers are substrings of probe errors that mean the underlying
// session is gone for good rather than momentarily unhealthy. Matching is
// deliberately coarse: whatsapp-web.js surfaces teardown as plain text, so
// any message containing a marker is fatal regardless of other content.
// Extend this list when the client library grows new teardown messages.
var fatalMarkers = []string{
	"Session closed.",
	"Protocol error",
	"Target closed",
}

// IsSessionClosed reports whether err indicates the underlying connection
// has been torn down, as opposed to a transient probe failure.
func IsSessionClosed(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range fatalMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
