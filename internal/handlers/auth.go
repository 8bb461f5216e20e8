package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cashcraft/api/internal/middleware"
	"cashcraft/api/internal/models"
	"cashcraft/api/internal/repository"
	"cashcraft/api/internal/service"
	"cashcraft/api/internal/validation"
)

type accountResponse struct {
	ID           string `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	CreditScore  int    `json:"creditScore"`
	KYCStatus    string `json:"kycStatus"`
	Role         string `json:"role,omitempty"`
	ReferralCode string `json:"referralCode"`
}

type authResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Token   string          `json:"token"`
	User    accountResponse `json:"user"`
}

type referrerResponse struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type profileResponse struct {
	ID            string            `json:"id"`
	FirstName     string            `json:"firstName"`
	LastName      string            `json:"lastName"`
	Email         string            `json:"email"`
	Phone         string            `json:"phone"`
	CreditScore   int               `json:"creditScore"`
	KYCStatus     string            `json:"kycStatus"`
	AccountStatus string            `json:"accountStatus"`
	Role          string            `json:"role"`
	ReferralCode  string            `json:"referralCode"`
	ReferredBy    *referrerResponse `json:"referredBy"`
	ReferralCount int               `json:"referralCount"`
	LastLogin     *time.Time        `json:"lastLogin"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

func (h HandlerSet) RegisterAccount(c *gin.Context) {
	var req validation.Registration
	if !h.bind(c, validation.SchemaRegistration, &req) {
		return
	}

	result, err := h.accounts.Register(c.Request.Context(), service.RegisterInput{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Phone:        req.Phone,
		Password:     req.Password,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		if errors.Is(err, service.ErrAccountExists) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "User with this email or phone already exists",
			})
			return
		}
		h.serverError(c, err, "Server error during registration")
		return
	}

	c.JSON(http.StatusCreated, authResponse{
		Success: true,
		Message: "User registered successfully",
		Token:   result.Token,
		User:    toAccountResponse(result.Account, false),
	})
}

func (h HandlerSet) Login(c *gin.Context) {
	var req validation.Login
	if !h.bind(c, validation.SchemaLogin, &req) {
		return
	}

	result, err := h.accounts.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Invalid credentials",
			})
		case errors.Is(err, service.ErrAccountInactive):
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Account is suspended or closed",
			})
		default:
			h.serverError(c, err, "Server error during login")
		}
		return
	}

	c.JSON(http.StatusOK, authResponse{
		Success: true,
		Message: "Login successful",
		Token:   result.Token,
		User:    toAccountResponse(result.Account, true),
	})
}

func (h HandlerSet) Me(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid token"})
		return
	}

	profile, err := h.accounts.Me(c.Request.Context(), accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "User not found"})
			return
		}
		h.serverError(c, err, "Server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    toProfileResponse(profile),
	})
}

func (h HandlerSet) RefreshToken(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid token"})
		return
	}

	token, err := h.accounts.RefreshToken(c.Request.Context(), accountID)
	if err != nil {
		h.serverError(c, err, "Server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
	})
}

// bind decodes and validates the body. On failure it writes the 4xx response
// and returns false.
func (h HandlerSet) bind(c *gin.Context, schema validation.Schema, dst any) bool {
	body, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"success": false,
				"message": "Request body too large",
			})
			return false
		}
		h.validationFailed(c, validation.InvalidBody())
		return false
	}

	err = h.validator.Decode(schema, body, dst)
	if err == nil {
		return true
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		h.validationFailed(c, verrs)
		return false
	}

	h.serverError(c, err, "Server error")
	return false
}

func (h HandlerSet) validationFailed(c *gin.Context, verrs validation.Errors) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": "Validation error",
		"errors":  verrs,
	})
}

func (h HandlerSet) serverError(c *gin.Context, err error, message string) {
	_ = c.Error(err)
	h.log.Error().
		Err(err).
		Str("path", c.Request.URL.Path).
		Str("request_id", c.Writer.Header().Get("X-Request-Id")).
		Msg(message)

	body := gin.H{
		"success": false,
		"message": message,
	}
	if !h.cfg.IsProduction() {
		body["error"] = err.Error()
	}
	c.JSON(http.StatusInternalServerError, body)
}

func toAccountResponse(a models.Account, withRole bool) accountResponse {
	resp := accountResponse{
		ID:           a.ID,
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Email:        a.Email,
		Phone:        a.Phone,
		CreditScore:  a.CreditScore,
		KYCStatus:    string(a.KYCStatus),
		ReferralCode: a.ReferralCode,
	}
	if withRole {
		resp.Role = string(a.Role)
	}
	return resp
}

func toProfileResponse(p service.Profile) profileResponse {
	a := p.Account
	resp := profileResponse{
		ID:            a.ID,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		Email:         a.Email,
		Phone:         a.Phone,
		CreditScore:   a.CreditScore,
		KYCStatus:     string(a.KYCStatus),
		AccountStatus: string(a.Status),
		Role:          string(a.Role),
		ReferralCode:  a.ReferralCode,
		ReferralCount: a.ReferralCount,
		LastLogin:     a.LastLogin,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
	if p.Referrer != nil {
		resp.ReferredBy = &referrerResponse{
			ID:        p.Referrer.ID,
			FirstName: p.Referrer.FirstName,
			LastName:  p.Referrer.LastName,
		}
	}
	return resp
}
