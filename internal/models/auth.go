package models

// SignupRequest is forwarded to the backend's signup endpoint.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
}

// LoginRequest carries credentials; the backend owns verification.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is what the backend returns for signup and login.
type AuthResult struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}
