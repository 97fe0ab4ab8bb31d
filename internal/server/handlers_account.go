package server

import (
	"net/http"

	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/users"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *httpHandler) handleSignUp(c *gin.Context) {
	var request signUpRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	account, err := h.users.SignUp(c.Request.Context(), request.Email, request.Password, request.Username)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondWithSession(c, http.StatusCreated, account)
}

func (h *httpHandler) handleSignIn(c *gin.Context) {
	var request signInRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	account, err := h.users.SignIn(c.Request.Context(), request.Email, request.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondWithSession(c, http.StatusOK, account)
}

func (h *httpHandler) handleSignOut(c *gin.Context) {
	setSessionCookie(c, h.sessions.CookieName(), "", -1)
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleMe(c *gin.Context) {
	account, err := h.users.Lookup(c.Request.Context(), c.GetString(userIDContextKey))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAccountPayload(account))
}

func (h *httpHandler) respondWithSession(c *gin.Context, status int, account users.Account) {
	token, expiresIn, err := h.tokens.IssueToken(c.Request.Context(), account.ID)
	if err != nil {
		h.logger.Error("failed to issue session token", zap.String("account_id", account.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}
	setSessionCookie(c, h.sessions.CookieName(), token, int(expiresIn))
	c.JSON(status, authResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
		User:        newAccountPayload(account),
	})
}
