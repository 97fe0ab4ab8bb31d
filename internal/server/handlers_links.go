package server

import (
	"net/http"

	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/links"
	"github.com/gin-gonic/gin"
)

func (h *httpHandler) handleListLinks(c *gin.Context) {
	h.respondWithLinks(c, http.StatusOK, c.GetString(userIDContextKey), nil)
}

func (h *httpHandler) handleCreateLink(c *gin.Context) {
	var request linkCreateRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	userID := c.GetString(userIDContextKey)
	link, err := h.links.Append(c.Request.Context(), userID, request.Title, request.URL, request.Platform)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publish(userID, RealtimeEventLinksChanged)
	created := newLinkPayload(link)
	h.respondWithLinks(c, http.StatusCreated, userID, &created)
}

func (h *httpHandler) handleUpdateLink(c *gin.Context) {
	var request linkUpdateRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	patch := links.Patch{
		Title:    request.Title,
		URL:      request.URL,
		IsActive: request.IsActive,
		Platform: request.Platform,
	}
	if patch.IsEmpty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty_patch", "message": "nothing to update"})
		return
	}
	userID := c.GetString(userIDContextKey)
	if _, err := h.links.Update(c.Request.Context(), userID, c.Param("id"), patch); err != nil {
		h.respondError(c, err)
		return
	}
	h.publish(userID, RealtimeEventLinksChanged)
	h.respondWithLinks(c, http.StatusOK, userID, nil)
}

func (h *httpHandler) handleDeleteLink(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	if err := h.links.Remove(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	h.publish(userID, RealtimeEventLinksChanged)
	h.respondWithLinks(c, http.StatusOK, userID, nil)
}

func (h *httpHandler) handleMoveLink(c *gin.Context) {
	var request linkMoveRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.Index == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	direction, ok := links.ParseDirection(request.Direction)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_direction", "message": "direction must be up or down"})
		return
	}
	userID := c.GetString(userIDContextKey)
	if err := h.links.MoveAt(c.Request.Context(), userID, *request.Index, direction); err != nil {
		h.respondError(c, err)
		return
	}
	h.publish(userID, RealtimeEventLinksChanged)
	h.respondWithLinks(c, http.StatusOK, userID, nil)
}

func (h *httpHandler) handlePopularLinks(c *gin.Context) {
	catalog := links.PopularLinks()
	payloads := make([]popularLinkPayload, 0, len(catalog))
	for _, entry := range catalog {
		payloads = append(payloads, popularLinkPayload{
			Name:      entry.Name,
			URLPrefix: entry.URLPrefix,
			Platform:  string(entry.Platform),
		})
	}
	c.JSON(http.StatusOK, gin.H{"links": payloads})
}

// respondWithLinks ends every link mutation with a fresh reload of the list.
func (h *httpHandler) respondWithLinks(c *gin.Context, status int, userID string, created *linkPayload) {
	ordered, err := h.links.LoadOrdered(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	body := gin.H{"links": newLinkPayloads(ordered)}
	if created != nil {
		body["link"] = created
	}
	c.JSON(status, body)
}
