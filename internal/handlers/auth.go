package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"catalogo/internal/auth"
	"catalogo/internal/middleware"
	"catalogo/internal/models"
)

var (
	errBadCredentials = &httpError{http.StatusUnauthorized, "invalid email or password"}
	errOTPRequired    = &httpError{http.StatusUnauthorized, "two-factor code required"}
	errOTPInvalid     = &httpError{http.StatusUnauthorized, "invalid two-factor code"}
	errRefreshUsed    = &httpError{http.StatusUnauthorized, "refresh token already used or revoked"}
)

// Auth groups all authentication-related HTTP handlers.
type Auth struct {
	users    UserRepo
	profiles ProfileRepo
	tokens   TokenStore
	issuer   *auth.Issuer
}

// NewAuth creates a new Auth handler group.
func NewAuth(users UserRepo, profiles ProfileRepo, tokens TokenStore, issuer *auth.Issuer) *Auth {
	return &Auth{
		users:    users,
		profiles: profiles,
		tokens:   tokens,
		issuer:   issuer,
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=256"`
	OTP      string `json:"otp" validate:"omitempty,len=6,numeric"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type verifyRequest struct {
	Token string `json:"token" validate:"required"`
}

type enableTOTPRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

type profileRequest struct {
	CompanyName *string `json:"company_name" validate:"omitempty,max=200"`
}

// Login handles POST /api/auth/login. Users with two-factor enabled must
// send a valid otp alongside the password.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := checkStruct(req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := a.users.FindByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil || !user.IsActive || !a.users.CheckPassword(user, req.Password) {
		slog.Info("login rejected", "email", req.Email)
		writeError(w, r, errBadCredentials)
		return
	}

	if user.TOTPEnabled {
		if req.OTP == "" {
			writeError(w, r, errOTPRequired)
			return
		}
		if user.TOTPSecret == nil || !auth.ValidateTOTP(req.OTP, *user.TOTPSecret) {
			slog.Info("login rejected: bad otp", "user", user.ID)
			writeError(w, r, errOTPInvalid)
			return
		}
	}

	a.issue(w, r, user, http.StatusOK)
}

// Refresh handles POST /api/auth/refresh. The presented refresh token is
// consumed and a new pair issued; replaying it fails.
func (a *Auth) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := checkStruct(req); err != nil {
		writeError(w, r, err)
		return
	}

	claims, err := a.issuer.Verify(req.Refresh, auth.KindRefresh)
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID, found, err := a.tokens.Consume(r.Context(), claims.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !found || claims.Subject != userID.String() {
		slog.Warn("refresh token replay rejected", "jti", claims.ID, "subject", claims.Subject)
		writeError(w, r, errRefreshUsed)
		return
	}

	user, err := a.users.FindByID(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil || !user.IsActive {
		writeError(w, r, errBadCredentials)
		return
	}
	a.issue(w, r, user, http.StatusOK)
}

// Verify handles POST /api/auth/verify. Either token kind is accepted.
func (a *Auth) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := checkStruct(req); err != nil {
		writeError(w, r, err)
		return
	}

	_, err := a.issuer.Verify(req.Token, auth.KindAccess)
	if errors.Is(err, auth.ErrWrongKind) {
		_, err = a.issuer.Verify(req.Token, auth.KindRefresh)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

// Logout handles POST /api/auth/logout by revoking the refresh token.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := checkStruct(req); err != nil {
		writeError(w, r, err)
		return
	}

	claims, err := a.issuer.Verify(req.Refresh, auth.KindRefresh)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.tokens.Revoke(r.Context(), claims.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TwoFASetup handles GET /api/auth/2fa/setup. It stores a fresh secret
// and returns its QR code as a PNG; the secret is also sent in the
// X-TOTP-Secret header for manual entry.
func (a *Auth) TwoFASetup(w http.ResponseWriter, r *http.Request) {
	user, err := a.currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user.TOTPEnabled {
		writeError(w, r, &httpError{http.StatusConflict, "two-factor authentication is already enabled"})
		return
	}

	setup, err := auth.NewTOTP(user.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.users.SetTOTPSecret(r.Context(), user.ID, setup.Secret); err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-TOTP-Secret", setup.Secret)
	w.WriteHeader(http.StatusOK)
	w.Write(setup.QRCode)
}

// TwoFAEnable handles POST /api/auth/2fa/enable. The code must match the
// secret stored by TwoFASetup.
func (a *Auth) TwoFAEnable(w http.ResponseWriter, r *http.Request) {
	user, err := a.currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req enableTOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := checkStruct(req); err != nil {
		writeError(w, r, err)
		return
	}

	if user.TOTPSecret == nil {
		writeError(w, r, &httpError{http.StatusBadRequest, "run two-factor setup first"})
		return
	}
	if !auth.ValidateTOTP(req.Code, *user.TOTPSecret) {
		writeError(w, r, newValidationError(map[string]string{"code": "invalid code"}))
		return
	}
	if err := a.users.EnableTOTP(r.Context(), user.ID); err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("two-factor enabled", "user", user.ID)
	writeJSON(w, http.StatusOK, map[string]bool{"totp_enabled": true})
}

// meView is the current user with their profile.
type meView struct {
	*models.User
	Role    string          `json:"role"`
	Profile *models.Profile `json:"profile"`
}

// Me handles GET /api/auth/me.
func (a *Auth) Me(w http.ResponseWriter, r *http.Request) {
	user, err := a.currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	profile, err := a.profiles.FindByUserID(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meView{User: user, Role: user.Role(), Profile: profile})
}

// UpdateMe handles PATCH /api/auth/me (profile fields only).
func (a *Auth) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, err := a.currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := checkStruct(req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.CompanyName != nil {
		company := strings.TrimSpace(*req.CompanyName)
		var value *string
		if company != "" {
			value = &company
		}
		if err := a.profiles.SetCompany(r.Context(), user.ID, value); err != nil {
			writeError(w, r, err)
			return
		}
	}
	a.Me(w, r)
}

// issue creates a token pair, records the refresh id and writes it.
func (a *Auth) issue(w http.ResponseWriter, r *http.Request, user *models.User, status int) {
	pair, err := a.issuer.Issue(user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.tokens.Save(r.Context(), pair.RefreshID, user.ID, a.issuer.RefreshTTL()); err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("tokens issued", "user", user.ID)
	writeJSON(w, status, pair)
}

// currentUser loads the account behind the request's access token.
func (a *Auth) currentUser(r *http.Request) (*models.User, error) {
	claims := middleware.ClaimsFromCtx(r.Context())
	if claims == nil {
		return nil, auth.ErrMissingToken
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, auth.ErrInvalidToken
	}
	user, err := a.users.FindByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, auth.ErrInvalidToken
	}
	return user, nil
}
