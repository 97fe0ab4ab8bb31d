package server

import (
	"net/http"

	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/analytics"
	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/links"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (h *httpHandler) handlePublicProfile(c *gin.Context) {
	profile, err := h.profiles.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	active, err := h.links.LoadActive(c.Request.Context(), profile.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if h.recorder != nil {
		h.recorder.EnqueueView(analytics.ViewEvent{
			ProfileID:      profile.ID,
			ViewerID:       c.GetString(userIDContextKey),
			VisitorSession: visitorSession(c),
			UserAgent:      c.Request.UserAgent(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"profile": publicProfilePayload{
			Username:    profile.Username,
			DisplayName: profile.DisplayName,
			Bio:         profile.Bio,
			AvatarURL:   profile.AvatarURL,
		},
		"links": newPublicLinkPayloads(active),
	})
}

func (h *httpHandler) handlePublicClick(c *gin.Context) {
	link, ok := h.trackClick(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": link.URL})
}

func (h *httpHandler) handleRedirect(c *gin.Context) {
	link, ok := h.trackClick(c)
	if !ok {
		return
	}
	c.Redirect(http.StatusFound, link.URL)
}

func (h *httpHandler) trackClick(c *gin.Context) (links.Link, bool) {
	link, err := h.links.FindActive(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return links.Link{}, false
	}
	if h.recorder != nil {
		h.recorder.EnqueueClick(analytics.ClickEvent{
			ProfileID:      link.UserID,
			LinkID:         link.ID,
			ViewerID:       c.GetString(userIDContextKey),
			VisitorSession: visitorSession(c),
			UserAgent:      c.Request.UserAgent(),
		})
	}
	return link, true
}

// visitorSession returns the anonymous visitor id, issuing a cookie on first visit.
func visitorSession(c *gin.Context) string {
	if cookie, err := c.Request.Cookie(visitorCookieName); err == nil {
		if parsed, err := uuid.Parse(cookie.Value); err == nil {
			return parsed.String()
		}
	}
	session := uuid.NewString()
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     visitorCookieName,
		Value:    session,
		Path:     "/",
		MaxAge:   visitorCookieMaxAge,
		HttpOnly: true,
		Secure:   c.Request.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return session
}
