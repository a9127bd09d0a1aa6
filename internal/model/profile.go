package model

type UserProfile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
	Phone     string `json:"phone"`
	Bio       string `json:"bio"`
}

// DefaultProfile is stored the first time a principal's profile is read.
func DefaultProfile(userID string) UserProfile {
	return UserProfile{ID: userID, AvatarURL: DefaultAvatarURL}
}

// Principal is an authenticated caller.
type Principal struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}
