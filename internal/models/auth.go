package models

// Login represents the credentials submitted for user login. Either the
// username or the email identifies the account.
type Login struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"new_password"`
}

// LogoutRequest optionally names the refresh token to revoke together with
// the access token presented in the Authorization header.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}
