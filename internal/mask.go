package internal

import "strings"

// MaskChannel redacts a channel identifier for logs and audit metadata:
// "alice@example.com" becomes "a***@example.com" and "+15550100" becomes
// "+1*****00".
func MaskChannel(channel string) string {
	if channel == "" {
		return ""
	}
	if local, domain, ok := strings.Cut(channel, "@"); ok {
		if local == "" {
			return "***@" + domain
		}
		return local[:1] + "***@" + domain
	}
	if len(channel) <= 4 {
		return strings.Repeat("*", len(channel))
	}
	return channel[:2] + strings.Repeat("*", len(channel)-4) + channel[len(channel)-2:]
}
