package model

// User is an account owned by the auth service; this service only reads it.
type User struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Department *string `json:"department"`
	Region     *string `json:"region"`
	Expertise  *string `json:"expertise"`
	Role       *string `json:"role"`
	IsReviewer bool    `json:"is_reviewer"`
}

// UserSummary is the public projection of a user in directory listings.
type UserSummary struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Department *string `json:"department"`
	Region     *string `json:"region"`
	Expertise  *string `json:"expertise"`
	Role       *string `json:"role"`
}

type LeaderboardEntry struct {
	UserSummary
	DocumentCount  int64 `json:"document_count"`
	TotalDownloads int64 `json:"total_downloads"`
}

type Expert struct {
	UserSummary
	DocumentCount int64 `json:"document_count"`
}

// UserStats summarizes a user's contributions. Rank is 1 plus the number of
// users with strictly more documents.
type UserStats struct {
	DocumentCount  int64 `json:"document_count"`
	TotalDownloads int64 `json:"total_downloads"`
	Rank           int64 `json:"rank"`
}
