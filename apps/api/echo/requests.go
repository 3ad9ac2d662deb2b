package echoapi

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Shyamyemuka/goldenspire-learn/core/gate"
)

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token    string    `json:"token"`
		Area     gate.Area `json:"area"`
		Redirect string    `json:"redirect"`
	}

	RefreshResponse struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}

	StatusResponse struct {
		Status string `json:"status"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(lr)
}
