package verification

type Purpose string

const (
	// link purposes carry a hex token in a URL
	PurposeVerifyEmail   Purpose = "verify-email"
	PurposeResetPassword Purpose = "reset-password"

	// OTP purposes carry a numeric code
	PurposeEmailVerification Purpose = "email-verification"
	PurposeSignIn            Purpose = "sign-in"
	PurposeForgetPassword    Purpose = "forget-password"
)

var otpPurposes = []Purpose{PurposeEmailVerification, PurposeSignIn, PurposeForgetPassword}

func (p Purpose) IsOTP() bool {
	for _, o := range otpPurposes {
		if p == o {
			return true
		}
	}
	return false
}

func (p Purpose) IsLink() bool {
	return p == PurposeVerifyEmail || p == PurposeResetPassword
}

func (p Purpose) Valid() bool {
	return p.IsOTP() || p.IsLink()
}

// ParseOTPPurpose maps the "type" field of OTP requests.
func ParseOTPPurpose(s string) (Purpose, bool) {
	p := Purpose(s)
	return p, p.IsOTP()
}

// Identifier returns the storage key for a purpose and a normalised email.
//
//	verify-email        -> <email>
//	reset-password      -> reset-password:<email>
//	OTP purposes        -> <purpose>-otp-<email>
//
// Identifiers are only unique together with the purpose.
func Identifier(purpose Purpose, email string) string {
	switch {
	case purpose == PurposeVerifyEmail:
		return email
	case purpose == PurposeResetPassword:
		return string(PurposeResetPassword) + ":" + email
	default:
		return string(purpose) + "-otp-" + email
	}
}
