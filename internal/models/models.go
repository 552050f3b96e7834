package models

import "time"

// Link is a stored short code to destination mapping.
type Link struct {
	CreatedAt      time.Time
	ID             string
	ShortCode      string
	DestinationURL string
	// OwnerID is empty for guest links.
	OwnerID string
	// GuestID is set only for links created without an account.
	GuestID    string
	ClickCount int64
}

// Owner identifies who is asking: an account or a guest session.
type Owner struct {
	UserID  string
	GuestID string
}

func (o Owner) IsGuest() bool {
	return o.UserID == "" && o.GuestID != ""
}

func (o Owner) IsZero() bool {
	return o.UserID == "" && o.GuestID == ""
}

// Owns reports whether o may list or delete l.
func (o Owner) Owns(l *Link) bool {
	if o.UserID != "" {
		return l.OwnerID == o.UserID
	}
	return o.GuestID != "" && l.OwnerID == "" && l.GuestID == o.GuestID
}

type User struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Verified  bool      `json:"verified"`
}

type LinkPage struct {
	Links      []Link
	TotalPages int
}

type Stats struct {
	URLs  int `json:"urls"`
	Users int `json:"users"`
}

type Response struct {
	Data       any `json:"data"`
	StatusCode int `json:"statusCode"`
}

type ErrorResponse struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

type ShortenedURL struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
	ShortCode string    `json:"shortCode"`
	LongURL   string    `json:"longUrl"`
	ShortURL  string    `json:"shortUrl"`
	Clicks    int64     `json:"clicks"`
}

type HistoryRes struct {
	URLs       []ShortenedURL `json:"urls"`
	TotalPages int            `json:"totalPages"`
}

type ShortenReq struct {
	URL string `json:"url"`
}

type AliasReq struct {
	URL                string `json:"url"`
	CustomizedEndpoint string `json:"customizedEndpoint"`
	// CustomizedEnpoint is the key older web clients send.
	CustomizedEnpoint string `json:"customizedEnpoint"`
}

func (r AliasReq) Alias() string {
	if r.CustomizedEndpoint != "" {
		return r.CustomizedEndpoint
	}
	return r.CustomizedEnpoint
}

type SignUpReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignInReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyCodeReq accepts the code as a JSON number or string.
type VerifyCodeReq struct {
	Email string    `json:"email"`
	Code  FlexiCode `json:"code"`
}

type ResendReq struct {
	Email string `json:"email"`
}

type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

type VerificationRes struct {
	Email     string `json:"email"`
	ExpiresIn int    `json:"expiresIn"`
}
