package server

import (
	"net/http"

	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/profiles"
	"github.com/gin-gonic/gin"
)

// multipart framing around the image itself
const avatarRequestOverhead = 64 * 1024

func (h *httpHandler) handleGetProfile(c *gin.Context) {
	profile, err := h.profiles.Get(c.Request.Context(), c.GetString(userIDContextKey))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newProfilePayload(profile))
}

func (h *httpHandler) handleUpdateProfile(c *gin.Context) {
	var request profileUpdateRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	userID := c.GetString(userIDContextKey)
	profile, err := h.profiles.Update(c.Request.Context(), userID, profiles.Update{
		Username:    request.Username,
		DisplayName: request.DisplayName,
		Bio:         request.Bio,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publish(userID, RealtimeEventProfileChanged)
	c.JSON(http.StatusOK, newProfilePayload(profile))
}

func (h *httpHandler) handleUploadAvatar(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, profiles.MaxAvatarBytes+avatarRequestOverhead)
	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_avatar", "message": "please upload a valid image file"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_avatar", "message": "please upload a valid image file"})
		return
	}
	defer file.Close()

	userID := c.GetString(userIDContextKey)
	profile, err := h.profiles.UploadAvatar(c.Request.Context(), userID, profiles.AvatarUpload{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
	}, file)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publish(userID, RealtimeEventProfileChanged)
	c.JSON(http.StatusOK, newProfilePayload(profile))
}

func (h *httpHandler) handleDeleteAvatar(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	profile, err := h.profiles.DeleteAvatar(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publish(userID, RealtimeEventProfileChanged)
	c.JSON(http.StatusOK, newProfilePayload(profile))
}
