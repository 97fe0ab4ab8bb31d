package links

import (
	"net/url"
	"strings"
)

// Platform tags a link for icon selection on the client.
type Platform string

const (
	PlatformGitHub        Platform = "github"
	PlatformLinkedIn      Platform = "linkedin"
	PlatformInstagram     Platform = "instagram"
	PlatformYouTube       Platform = "youtube"
	PlatformTwitter       Platform = "twitter"
	PlatformFacebook      Platform = "facebook"
	PlatformTikTok        Platform = "tiktok"
	PlatformPinterest     Platform = "pinterest"
	PlatformReddit        Platform = "reddit"
	PlatformSnapchat      Platform = "snapchat"
	PlatformDiscord       Platform = "discord"
	PlatformTelegram      Platform = "telegram"
	PlatformWhatsApp      Platform = "whatsapp"
	PlatformMedium        Platform = "medium"
	PlatformStackOverflow Platform = "stackoverflow"
	PlatformGoogleDrive   Platform = "googledrive"
	PlatformWebsite       Platform = "website"
	PlatformCustom        Platform = "custom"
)

var knownPlatforms = map[Platform]struct{}{
	PlatformGitHub:        {},
	PlatformLinkedIn:      {},
	PlatformInstagram:     {},
	PlatformYouTube:       {},
	PlatformTwitter:       {},
	PlatformFacebook:      {},
	PlatformTikTok:        {},
	PlatformPinterest:     {},
	PlatformReddit:        {},
	PlatformSnapchat:      {},
	PlatformDiscord:       {},
	PlatformTelegram:      {},
	PlatformWhatsApp:      {},
	PlatformMedium:        {},
	PlatformStackOverflow: {},
	PlatformGoogleDrive:   {},
	PlatformWebsite:       {},
	PlatformCustom:        {},
}

// hostPlatforms is checked in order; the first suffix match wins.
var hostPlatforms = []struct {
	suffix   string
	platform Platform
}{
	{"github.com", PlatformGitHub},
	{"linkedin.com", PlatformLinkedIn},
	{"instagram.com", PlatformInstagram},
	{"youtube.com", PlatformYouTube},
	{"youtu.be", PlatformYouTube},
	{"twitter.com", PlatformTwitter},
	{"x.com", PlatformTwitter},
	{"facebook.com", PlatformFacebook},
	{"tiktok.com", PlatformTikTok},
	{"pinterest.com", PlatformPinterest},
	{"reddit.com", PlatformReddit},
	{"snapchat.com", PlatformSnapchat},
	{"discord.gg", PlatformDiscord},
	{"discord.com", PlatformDiscord},
	{"t.me", PlatformTelegram},
	{"wa.me", PlatformWhatsApp},
	{"medium.com", PlatformMedium},
	{"stackoverflow.com", PlatformStackOverflow},
	{"drive.google.com", PlatformGoogleDrive},
}

// ParsePlatform maps free-form input onto the closed set, falling back to custom.
func ParsePlatform(raw string) Platform {
	candidate := Platform(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := knownPlatforms[candidate]; ok {
		return candidate
	}
	return PlatformCustom
}

// DetectPlatform guesses the platform from a link URL's host.
func DetectPlatform(rawURL string) Platform {
	parsed, err := url.Parse(NormalizeURL(rawURL))
	if err != nil {
		return PlatformCustom
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	if host == "" {
		return PlatformCustom
	}
	for _, candidate := range hostPlatforms {
		if host == candidate.suffix || strings.HasSuffix(host, "."+candidate.suffix) {
			return candidate.platform
		}
	}
	return PlatformWebsite
}

// resolvePlatform prefers an explicit choice and otherwise detects from the URL.
func resolvePlatform(raw, normalizedURL string) Platform {
	if strings.TrimSpace(raw) == "" {
		return DetectPlatform(normalizedURL)
	}
	return ParsePlatform(raw)
}

// NormalizeURL trims the input and prefixes https:// when no http(s) scheme is present.
// Blank input stays blank so callers can reject it.
func NormalizeURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return trimmed
	}
	return "https://" + trimmed
}
