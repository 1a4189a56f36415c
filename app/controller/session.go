package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-favorpay/app/factory"
	"github.com/vibast-solutions/ms-go-favorpay/app/mapper"
	"github.com/vibast-solutions/ms-go-favorpay/app/service"
	"github.com/vibast-solutions/ms-go-favorpay/app/types"
)

type SessionController struct {
	authService *service.AuthService
	logger      logrus.FieldLogger
}

func NewSessionController(authService *service.AuthService) *SessionController {
	return &SessionController{
		authService: authService,
		logger:      factory.NewModuleLogger("session-controller"),
	}
}

func (c *SessionController) Login(ctx echo.Context) error {
	req, err := types.NewLoginRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}

	user, err := c.authService.Login(ctx.Request().Context(), req)
	if err != nil {
		return respondError(ctx, c.logger, err, "Login")
	}
	return ctx.JSON(http.StatusOK, &types.SessionResponse{User: user})
}

func (c *SessionController) Logout(ctx echo.Context) error {
	if err := c.authService.Logout(ctx.Request().Context()); err != nil {
		return respondError(ctx, c.logger, err, "Logout")
	}
	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Logged out"})
}

func (c *SessionController) Me(ctx echo.Context) error {
	user, err := c.authService.RefreshCurrentUser(ctx.Request().Context())
	if err != nil {
		return respondError(ctx, c.logger, err, "Load current user")
	}
	return ctx.JSON(http.StatusOK, &types.SessionResponse{User: user})
}

func (c *SessionController) ValidatePassword(ctx echo.Context) error {
	var body struct {
		Password string `json:"password"`
	}
	if err := ctx.Bind(&body); err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}

	valid, err := c.authService.ValidatePassword(ctx.Request().Context(), body.Password)
	if err != nil {
		return respondError(ctx, c.logger, err, "Validate password")
	}
	return ctx.JSON(http.StatusOK, &types.ValidatePasswordResponse{Valid: valid})
}

func (c *SessionController) SavedCredentials(ctx echo.Context) error {
	items, err := c.authService.SavedCredentials(ctx.Request().Context())
	if err != nil {
		return respondError(ctx, c.logger, err, "List saved credentials")
	}
	return ctx.JSON(http.StatusOK, mapper.SavedCredentialsToResponse(items))
}

func (c *SessionController) Register(ctx echo.Context) error {
	req, err := types.NewSignupRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}

	user, err := c.authService.Signup(ctx.Request().Context(), req)
	if err != nil {
		return respondError(ctx, c.logger, err, "Register")
	}
	return ctx.JSON(http.StatusCreated, &types.SessionResponse{User: user})
}

func (c *SessionController) VerifyOTP(ctx echo.Context) error {
	req, err := types.NewVerifyOTPRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}

	user, err := c.authService.VerifyOTP(ctx.Request().Context(), req.Code)
	if err != nil {
		return respondError(ctx, c.logger, err, "Verify OTP")
	}
	return ctx.JSON(http.StatusOK, &types.SessionResponse{User: user})
}

func (c *SessionController) ResendOTP(ctx echo.Context) error {
	message, err := c.authService.ResendOTP(ctx.Request().Context())
	if err != nil {
		return respondError(ctx, c.logger, err, "Resend OTP")
	}
	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: message})
}

func (c *SessionController) ForgotPassword(ctx echo.Context) error {
	req, err := types.NewPasswordRecoveryRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}

	message, err := c.authService.ForgotPassword(ctx.Request().Context(), req.Email)
	if err != nil {
		return respondError(ctx, c.logger, err, "Forgot password")
	}
	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: message})
}

func (c *SessionController) VerifyResetCode(ctx echo.Context) error {
	req, err := types.NewPasswordRecoveryRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}

	resetToken, err := c.authService.VerifyResetCode(ctx.Request().Context(), req.Email, req.Code)
	if err != nil {
		return respondError(ctx, c.logger, err, "Verify reset code")
	}
	return ctx.JSON(http.StatusOK, &types.ResetTokenResponse{ResetToken: resetToken})
}

func (c *SessionController) ResetPassword(ctx echo.Context) error {
	req, err := types.NewResetPasswordRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}

	message, err := c.authService.ResetPassword(ctx.Request().Context(), req.ResetToken, &req.PasswordResetRequest)
	if err != nil {
		return respondError(ctx, c.logger, err, "Reset password")
	}
	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: message})
}

func (c *SessionController) ForgetCredential(ctx echo.Context) error {
	req, err := types.NewSavedCredentialRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid email")
	}

	if err := c.authService.ForgetCredential(ctx.Request().Context(), req.Email); err != nil {
		return respondError(ctx, c.logger, err, "Forget saved credential")
	}
	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Saved credential removed"})
}
