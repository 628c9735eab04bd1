// internal/workers/auth/user-login/models.go
package userlogin

type Input struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Output struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	Next      string `json:"next"`
}
