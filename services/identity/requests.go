package identity

type signUpRequest struct {
	Name       string `json:"name" validate:"required,max=255"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe *bool  `json:"rememberMe"`
}

type signInRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe *bool  `json:"rememberMe"`
}

type sendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Type  string `json:"type" validate:"required,oneof=email-verification sign-in forget-password"`
}

type checkOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Type  string `json:"type" validate:"required,oneof=email-verification sign-in forget-password"`
	OTP   string `json:"otp" validate:"required,numeric"`
}

type otpRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,numeric"`
}

type forgetPasswordOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordOTPRequest struct {
	Email    string `json:"email" validate:"required,email"`
	OTP      string `json:"otp" validate:"required,numeric"`
	Password string `json:"password" validate:"required"`
}

type requestPasswordResetRequest struct {
	Email      string `json:"email" validate:"required,email"`
	RedirectTo string `json:"redirectTo" validate:"omitempty,url"`
}

type resetPasswordRequest struct {
	NewPassword string `json:"newPassword" validate:"required"`
	Token       string `json:"token" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword     string `json:"currentPassword" validate:"required"`
	NewPassword         string `json:"newPassword" validate:"required"`
	RevokeOtherSessions bool   `json:"revokeOtherSessions"`
}

type revokeSessionRequest struct {
	ID string `json:"id" validate:"required"`
}

type updateUserRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

type deleteUserRequest struct {
	Password string `json:"password" validate:"required"`
}
