package client

import (
	"slices"
	"time"
)

// Client is a registered third-party application allowed to receive tokens.
type Client struct {
	ID             string    `json:"-"`
	PublicID       string    `json:"clientId"`
	Name           string    `json:"name"`
	Secret         string    `json:"-"`
	AllowedOrigins []string  `json:"allowedOrigins"`
	RedirectURLs   []string  `json:"redirectUrls"`
	CreatedAt      time.Time `json:"createdAt"`
}

// IsRedirectAllowed reports whether url is an exact member of the client's
// redirect set. No normalisation is applied.
func IsRedirectAllowed(c *Client, url string) bool {
	if c == nil || url == "" {
		return false
	}
	return slices.Contains(c.RedirectURLs, url)
}
