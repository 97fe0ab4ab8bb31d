package server

import (
	"time"

	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/links"
	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/profiles"
	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/users"
)

type accountPayload struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type profilePayload struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Bio         string    `json:"bio"`
	AvatarURL   string    `json:"avatar_url"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type publicProfilePayload struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatar_url"`
}

type linkPayload struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Platform  string    `json:"platform"`
	Position  int       `json:"position"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type publicLinkPayload struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Platform string `json:"platform"`
}

type popularLinkPayload struct {
	Name      string `json:"name"`
	URLPrefix string `json:"url_prefix"`
	Platform  string `json:"platform"`
}

type authResponsePayload struct {
	AccessToken string         `json:"access_token"`
	ExpiresIn   int64          `json:"expires_in"`
	TokenType   string         `json:"token_type"`
	User        accountPayload `json:"user"`
}

type signUpRequestPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

type signInRequestPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileUpdateRequestPayload struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
}

type linkCreateRequestPayload struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Platform string `json:"platform"`
}

type linkUpdateRequestPayload struct {
	Title    *string `json:"title"`
	URL      *string `json:"url"`
	IsActive *bool   `json:"is_active"`
	Platform *string `json:"platform"`
}

type linkMoveRequestPayload struct {
	Index     *int   `json:"index"`
	Direction string `json:"direction"`
}

func newAccountPayload(account users.Account) accountPayload {
	return accountPayload{
		ID:        account.ID,
		Email:     account.Email,
		CreatedAt: account.CreatedAt,
	}
}

func newProfilePayload(profile profiles.Profile) profilePayload {
	return profilePayload{
		ID:          profile.ID,
		Username:    profile.Username,
		DisplayName: profile.DisplayName,
		Bio:         profile.Bio,
		AvatarURL:   profile.AvatarURL,
		UpdatedAt:   profile.UpdatedAt,
	}
}

func newLinkPayload(link links.Link) linkPayload {
	return linkPayload{
		ID:        link.ID,
		Title:     link.Title,
		URL:       link.URL,
		Platform:  string(link.Platform),
		Position:  link.Position,
		IsActive:  link.IsActive,
		CreatedAt: link.CreatedAt,
		UpdatedAt: link.UpdatedAt,
	}
}

func newLinkPayloads(ordered []links.Link) []linkPayload {
	payloads := make([]linkPayload, 0, len(ordered))
	for _, link := range ordered {
		payloads = append(payloads, newLinkPayload(link))
	}
	return payloads
}

func newPublicLinkPayloads(active []links.Link) []publicLinkPayload {
	payloads := make([]publicLinkPayload, 0, len(active))
	for _, link := range active {
		payloads = append(payloads, publicLinkPayload{
			ID:       link.ID,
			Title:    link.Title,
			URL:      link.URL,
			Platform: string(link.Platform),
		})
	}
	return payloads
}
