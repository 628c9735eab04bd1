// internal/workers/auth/user-logout/models.go
package userlogout

type Input struct {
	SessionID string `json:"sessionId"`
}

type Output struct {
	Success        bool `json:"success"`
	TrackersClosed int  `json:"trackersClosed"`
}
