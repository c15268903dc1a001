package middleware

import "net/url"

// Notice is a one-shot message code carried in a redirect. The text shown to
// users comes from a fixed table, never from the request.
type Notice string

const (
	NoticeLoginRequired       Notice = "login_required"
	NoticeInvalidCredentials  Notice = "invalid_credentials"
	NoticeAlreadyExists       Notice = "already_exists"
	NoticeInvalidInput        Notice = "invalid_input"
	NoticeWeakPassword        Notice = "weak_password"
	NoticeClientInvalid       Notice = "client_invalid"
	NoticeProviderUnavailable Notice = "provider_unavailable"
	NoticeAuthFailed          Notice = "auth_failed"
	NoticeStateInvalid        Notice = "state_invalid"
	NoticeLinkRequired        Notice = "link_required"
	NoticeLoggedOut           Notice = "logged_out"
	NoticeRateLimited         Notice = "rate_limited"
	NoticeServerError         Notice = "server_error"
)

var noticeText = map[Notice]string{
	NoticeLoginRequired:       "Please sign in to continue.",
	NoticeInvalidCredentials:  "Invalid email or password.",
	NoticeAlreadyExists:       "An account with that email or username already exists.",
	NoticeInvalidInput:        "Please check the details you entered.",
	NoticeWeakPassword:        "Passwords must be between 8 and 72 characters.",
	NoticeClientInvalid:       "We cannot complete sign-in for this application.",
	NoticeProviderUnavailable: "That sign-in method is not available.",
	NoticeAuthFailed:          "Sign-in with the external provider failed.",
	NoticeStateInvalid:        "You are signed in, but we could not return you to the application.",
	NoticeLinkRequired:        "An account with this email already exists. Sign in with your password first.",
	NoticeLoggedOut:           "You have been signed out.",
	NoticeRateLimited:         "Too many attempts. Please wait a minute and try again.",
	NoticeServerError:         "Something went wrong. Please try again.",
}

// ParseNotice returns the notice for code, or "" if code is not known.
func ParseNotice(code string) Notice {
	n := Notice(code)
	if _, ok := noticeText[n]; !ok {
		return ""
	}
	return n
}

func (n Notice) Text() string {
	return noticeText[n]
}

// WithNotice appends notice=n to path, keeping any existing query.
func WithNotice(path string, n Notice) string {
	u, err := url.Parse(path)
	if err != nil {
		return path
	}
	q := u.Query()
	q.Set("notice", string(n))
	u.RawQuery = q.Encode()
	return u.String()
}
