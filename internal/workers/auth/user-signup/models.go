// internal/workers/auth/user-signup/models.go
package usersignup

type Input struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
}

type Output struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId,omitempty"`
	Next      string `json:"next"`
}

// Next steps after signup.
const (
	NextLogin       = "login"
	NextApplication = "application"
)
