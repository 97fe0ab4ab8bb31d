package links

// PopularLink is a dashboard shortcut that pre-fills the add-link form.
type PopularLink struct {
	Name      string
	URLPrefix string
	Platform  Platform
}

var popularLinks = []PopularLink{
	{Name: "GitHub", URLPrefix: "https://github.com/", Platform: PlatformGitHub},
	{Name: "LinkedIn", URLPrefix: "https://linkedin.com/in/", Platform: PlatformLinkedIn},
	{Name: "Instagram", URLPrefix: "https://instagram.com/", Platform: PlatformInstagram},
	{Name: "YouTube", URLPrefix: "https://youtube.com/", Platform: PlatformYouTube},
	{Name: "Facebook", URLPrefix: "https://facebook.com/", Platform: PlatformFacebook},
	{Name: "Twitter", URLPrefix: "https://twitter.com/", Platform: PlatformTwitter},
	{Name: "TikTok", URLPrefix: "https://tiktok.com/@", Platform: PlatformTikTok},
	{Name: "Pinterest", URLPrefix: "https://pinterest.com/", Platform: PlatformPinterest},
	{Name: "Reddit", URLPrefix: "https://reddit.com/user/", Platform: PlatformReddit},
	{Name: "Snapchat", URLPrefix: "https://snapchat.com/add/", Platform: PlatformSnapchat},
	{Name: "Discord", URLPrefix: "https://discord.gg/", Platform: PlatformDiscord},
	{Name: "Telegram", URLPrefix: "https://t.me/", Platform: PlatformTelegram},
	{Name: "WhatsApp", URLPrefix: "https://wa.me/", Platform: PlatformWhatsApp},
	{Name: "Medium", URLPrefix: "https://medium.com/@", Platform: PlatformMedium},
	{Name: "Stack Overflow", URLPrefix: "https://stackoverflow.com/users/", Platform: PlatformStackOverflow},
	{Name: "Google Drive", URLPrefix: "https://drive.google.com/", Platform: PlatformGoogleDrive},
	{Name: "Portfolio Website", URLPrefix: "https://", Platform: PlatformWebsite},
}

// PopularLinks returns a copy of the shortcut catalog.
func PopularLinks() []PopularLink {
	return append([]PopularLink(nil), popularLinks...)
}
