package services

import (
	cryptorand "crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"

	"github.com/yapcx/backoffice/internal/audit"
	"github.com/yapcx/backoffice/internal/config"
	"github.com/yapcx/backoffice/internal/models"
)

type UserService struct {
	db        *sql.DB
	redis     *redis.Client
	validator *ValidationHelper
	audit     *audit.AuditLogger
}

// LoginRequest represents the login request payload
// @Description Login request structure
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"teller@example.com"`
	Password string `json:"password" validate:"required,min=8" example:"password123"`
}

// RegisterRequest bootstraps the first manager account
// @Description Registration request structure
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email" example:"manager@example.com"`
	Password  string `json:"password" validate:"required,min=8" example:"password123"`
	FirstName string `json:"firstName" validate:"required,min=2" example:"Jane"`
	LastName  string `json:"lastName" validate:"required,min=2" example:"Doe"`
}

// AuthResponse represents the authentication response
// @Description Authentication response structure
type AuthResponse struct {
	Token string      `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	User  models.User `json:"user"`
}

func NewUserService(db *sql.DB, redisClient *redis.Client) *UserService {
	return &UserService{
		db:        db,
		redis:     redisClient,
		validator: NewValidationHelper(),
		audit:     audit.NewAuditLogger(),
	}
}

// Register bootstraps the first manager account. Once any user exists,
// all further accounts come through invitations.
// @Summary Register first manager
// @Description Create the initial manager account; disabled once a user exists
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration request"
// @Success 200 {object} AuthResponse "Registration successful"
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /auth/register [post]
func (s *UserService) Register(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Registration attempt from IP: %s", r.RemoteAddr)

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req RegisterRequest
	if err := dec.Decode(&req); err != nil {
		log.Printf("[AUTH] Registration failed - invalid request: %v", err)
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		log.Printf("[AUTH] Multiple JSON objects detected")
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		log.Printf("[AUTH] Registration validation failed: %v", err)
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	var userCount int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&userCount); err != nil {
		SendErrorResponse(w, "Failed to create user", http.StatusInternalServerError, nil)
		return
	}
	if userCount > 0 {
		SendErrorResponse(w, "Registration is closed; ask a manager for an invitation", http.StatusForbidden, nil)
		return
	}

	hashedPassword, err := hashPassword(req.Password)
	if err != nil {
		log.Printf("[AUTH] Password hashing failed for %s: %v", req.Email, err)
		SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return
	}

	var userID int
	err = s.db.QueryRow(`
		INSERT INTO users (email, password, first_name, last_name, is_manager, status, created_at)
		VALUES ($1, $2, $3, $4, true, 'active', NOW()) RETURNING id
	`, strings.ToLower(req.Email), hashedPassword, req.FirstName, req.LastName).Scan(&userID)
	if err != nil {
		log.Printf("[AUTH] User creation failed for %s: %v", req.Email, err)
		SendErrorResponse(w, "Email Already Exists", http.StatusConflict, nil)
		return
	}

	log.Printf("[AUTH] Bootstrap manager created - ID: %d, Email: %s", userID, req.Email)

	token, err := generateJWT(userID)
	if err != nil {
		log.Printf("[AUTH] JWT generation failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AuthResponse{
		Token: token,
		User: models.User{
			ID: userID, Email: strings.ToLower(req.Email),
			FirstName: req.FirstName, LastName: req.LastName,
			IsManager: true, Status: models.UserStatusActive,
		},
	})
}

// Login authenticates an operator
// @Summary Login user
// @Description Authenticate user with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} AuthResponse "Login successful"
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/login [post]
func (s *UserService) Login(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Login attempt from IP: %s", r.RemoteAddr)

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req LoginRequest
	if err := dec.Decode(&req); err != nil {
		log.Printf("[AUTH] Login failed - invalid request: %v", err)
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		log.Printf("[AUTH] Multiple JSON objects detected")
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		log.Printf("[AUTH] Login validation failed: %v", err)
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	var user models.User
	var hashedPassword string
	err := s.db.QueryRow(`
		SELECT id, email, first_name, last_name, password,
		       is_manager, is_compliance_officer, is_template, status
		FROM users WHERE email = $1
	`, strings.ToLower(req.Email)).Scan(
		&user.ID, &user.Email, &user.FirstName, &user.LastName, &hashedPassword,
		&user.IsManager, &user.IsComplianceOfficer, &user.IsTemplate, &user.Status)
	if err != nil {
		log.Printf("[AUTH] User not found: %s", req.Email)
		SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	if !verifyPassword(req.Password, hashedPassword) {
		log.Printf("[AUTH] Invalid password for user: %s", req.Email)
		SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}
	if user.IsTemplate {
		log.Printf("[AUTH] Template account login rejected: %s", req.Email)
		SendErrorResponse(w, "Template accounts cannot log in", http.StatusForbidden, nil)
		return
	}
	if user.Status != models.UserStatusActive {
		SendErrorResponse(w, "Account is not active", http.StatusForbidden, nil)
		return
	}

	token, err := generateJWT(user.ID)
	if err != nil {
		log.Printf("[AUTH] JWT generation failed for user %d: %v", user.ID, err)
		SendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] Login successful for user %d", user.ID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AuthResponse{Token: token, User: user})
}

// Logout blacklists the caller's token
// @Summary Logout user
// @Description Logout user and blacklist token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string "Logout successful"
// @Router /auth/logout [post]
func (s *UserService) Logout(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("Authorization")
	if token != "" && len(token) > 7 {
		token = token[7:] // Remove "Bearer " prefix

		if s.redis != nil {
			key := fmt.Sprintf("blacklist:%s", token)
			// Blacklist token until its expiration
			expiry := time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour
			if err := s.redis.Set(r.Context(), key, "1", expiry).Err(); err != nil {
				log.Printf("[AUTH] Failed to blacklist token: %v", err)
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Logout successful"})
}

// GetUserAccount returns the authenticated operator's own record
// @Summary Get user account details
// @Description Get authenticated user's account information
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User "User account details"
// @Failure 401 {object} ErrorResponse
// @Router /auth/account [get]
func (s *UserService) GetUserAccount(w http.ResponseWriter, r *http.Request) {
	user, err := LoadCaller(s.db, r)
	if err != nil {
		if err == errNoIdentity || err == sql.ErrNoRows {
			SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		} else {
			SendErrorResponse(w, "Failed to fetch user details", http.StatusInternalServerError, nil)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// ListUsers returns all operator accounts
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{users=[]models.User,count=int}
// @Failure 403 {object} ErrorResponse
// @Router /users [get]
func (s *UserService) ListUsers(w http.ResponseWriter, r *http.Request) {
	if RequireCapability(s.db, w, r, CapManageUsers) == nil {
		return
	}

	rows, err := s.db.Query(`
		SELECT id, email, first_name, last_name,
		       is_manager, is_compliance_officer, is_template,
		       can_modify_exchange_rates, can_edit_fees_commissions,
		       can_transfer_between_accounts, can_reconcile_accounts,
		       max_rate_modification_pct, max_fee_modification, status, created_at
		FROM users ORDER BY id
	`)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch users", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName,
			&u.IsManager, &u.IsComplianceOfficer, &u.IsTemplate,
			&u.CanModifyExchangeRates, &u.CanEditFeesCommissions,
			&u.CanTransferBetweenAccounts, &u.CanReconcileAccounts,
			&u.MaxRateModificationPct, &u.MaxFeeModification, &u.Status, &u.CreatedAt); err != nil {
			SendErrorResponse(w, "Failed to fetch users", http.StatusInternalServerError, nil)
			return
		}
		users = append(users, u)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"users": users,
		"count": len(users),
	})
}

// InviteUser issues an invitation token for a new operator
// @Summary Invite user
// @Description Issue an invitation token; the invitee accepts it to create their account
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param invitation body object{email=string,isManager=bool,isComplianceOfficer=bool} true "Invitation"
// @Success 201 {object} models.Invitation
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /users/invitations [post]
func (s *UserService) InviteUser(w http.ResponseWriter, r *http.Request) {
	caller := RequireCapability(s.db, w, r, CapManageUsers)
	if caller == nil {
		return
	}
	if s.redis == nil {
		SendErrorResponse(w, "Invitation store unavailable", http.StatusServiceUnavailable, nil)
		return
	}

	var req struct {
		Email               string `json:"email" validate:"required,email"`
		IsManager           bool   `json:"isManager"`
		IsComplianceOfficer bool   `json:"isComplianceOfficer"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	var exists bool
	if err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`,
		strings.ToLower(req.Email)).Scan(&exists); err != nil {
		SendErrorResponse(w, "Failed to create invitation", http.StatusInternalServerError, nil)
		return
	}
	if exists {
		SendErrorResponse(w, "A user with this email already exists", http.StatusConflict, nil)
		return
	}

	invitation := models.Invitation{
		Token:               generateInviteToken(),
		Email:               strings.ToLower(req.Email),
		IsManager:           req.IsManager,
		IsComplianceOfficer: req.IsComplianceOfficer,
		InvitedBy:           fmt.Sprintf("%d", caller.ID),
		ExpiresAt:           time.Now().Add(config.InvitationExpiry()),
	}

	data, _ := json.Marshal(invitation)
	key := fmt.Sprintf("invite:%s", invitation.Token)
	if err := s.redis.Set(r.Context(), key, data, config.InvitationExpiry()).Err(); err != nil {
		log.Printf("[AUTH] Failed to store invitation for %s: %v", req.Email, err)
		SendErrorResponse(w, "Failed to create invitation", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] Invitation issued for %s by user %d", invitation.Email, caller.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(invitation)
}

// AcceptInvitation consumes an invitation token and creates the account
// @Summary Accept invitation
// @Description Redeem an invitation token, setting name and password
// @Tags auth
// @Accept json
// @Produce json
// @Param acceptance body object{token=string,firstName=string,lastName=string,password=string} true "Acceptance"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/invitations/accept [post]
func (s *UserService) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	if s.redis == nil {
		SendErrorResponse(w, "Invitation store unavailable", http.StatusServiceUnavailable, nil)
		return
	}

	var req struct {
		Token     string `json:"token" validate:"required"`
		FirstName string `json:"firstName" validate:"required,min=2"`
		LastName  string `json:"lastName" validate:"required,min=2"`
		Password  string `json:"password" validate:"required,min=8"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	key := fmt.Sprintf("invite:%s", req.Token)
	data, err := s.redis.Get(r.Context(), key).Bytes()
	if err != nil {
		log.Printf("[AUTH] Invitation token not found or expired")
		SendErrorResponse(w, "Invalid or expired invitation", http.StatusUnauthorized, nil)
		return
	}

	var invitation models.Invitation
	if err := json.Unmarshal(data, &invitation); err != nil {
		SendErrorResponse(w, "Invalid or expired invitation", http.StatusUnauthorized, nil)
		return
	}

	hashedPassword, err := hashPassword(req.Password)
	if err != nil {
		SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return
	}

	var userID int
	err = s.db.QueryRow(`
		INSERT INTO users (email, password, first_name, last_name,
		                   is_manager, is_compliance_officer, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'active', NOW()) RETURNING id
	`, invitation.Email, hashedPassword, req.FirstName, req.LastName,
		invitation.IsManager, invitation.IsComplianceOfficer).Scan(&userID)
	if err != nil {
		log.Printf("[AUTH] Failed to create user from invitation: %v", err)
		SendErrorResponse(w, "Email Already Exists", http.StatusConflict, nil)
		return
	}

	// Token is single use
	s.redis.Del(r.Context(), key)

	token, err := generateJWT(userID)
	if err != nil {
		SendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] Invitation accepted - user %d (%s)", userID, invitation.Email)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AuthResponse{
		Token: token,
		User: models.User{
			ID: userID, Email: invitation.Email,
			FirstName: req.FirstName, LastName: req.LastName,
			IsManager: invitation.IsManager, IsComplianceOfficer: invitation.IsComplianceOfficer,
			Status: models.UserStatusActive,
		},
	})
}

// UpdateUserPermissions sets role flags and financial-control limits
// @Summary Update user permissions
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID"
// @Param permissions body object true "Permission flags"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /users/{userId}/permissions [put]
func (s *UserService) UpdateUserPermissions(w http.ResponseWriter, r *http.Request) {
	caller := RequireCapability(s.db, w, r, CapManageUsers)
	if caller == nil {
		return
	}

	userID := chi.URLParam(r, "userId")

	var req struct {
		IsManager                  *bool    `json:"isManager"`
		IsComplianceOfficer        *bool    `json:"isComplianceOfficer"`
		IsTemplate                 *bool    `json:"isTemplate"`
		CanModifyExchangeRates     *bool    `json:"canModifyExchangeRates"`
		CanEditFeesCommissions     *bool    `json:"canEditFeesCommissions"`
		CanTransferBetweenAccounts *bool    `json:"canTransferBetweenAccounts"`
		CanReconcileAccounts       *bool    `json:"canReconcileAccounts"`
		MaxRateModificationPct     *float64 `json:"maxRateModificationPct" validate:"omitempty,gte=0"`
		MaxFeeModification         *float64 `json:"maxFeeModification" validate:"omitempty,gte=0"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	setters := []string{}
	args := []any{}
	argIndex := 1
	add := func(column string, value any) {
		setters = append(setters, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}
	if req.IsManager != nil {
		add("is_manager", *req.IsManager)
	}
	if req.IsComplianceOfficer != nil {
		add("is_compliance_officer", *req.IsComplianceOfficer)
	}
	if req.IsTemplate != nil {
		add("is_template", *req.IsTemplate)
	}
	if req.CanModifyExchangeRates != nil {
		add("can_modify_exchange_rates", *req.CanModifyExchangeRates)
	}
	if req.CanEditFeesCommissions != nil {
		add("can_edit_fees_commissions", *req.CanEditFeesCommissions)
	}
	if req.CanTransferBetweenAccounts != nil {
		add("can_transfer_between_accounts", *req.CanTransferBetweenAccounts)
	}
	if req.CanReconcileAccounts != nil {
		add("can_reconcile_accounts", *req.CanReconcileAccounts)
	}
	if req.MaxRateModificationPct != nil {
		add("max_rate_modification_pct", *req.MaxRateModificationPct)
	}
	if req.MaxFeeModification != nil {
		add("max_fee_modification", *req.MaxFeeModification)
	}
	if len(setters) == 0 {
		SendErrorResponse(w, "No permission fields provided", http.StatusBadRequest, nil)
		return
	}

	args = append(args, userID)
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d::integer", strings.Join(setters, ", "), argIndex)

	result, err := s.db.Exec(query, args...)
	if err != nil {
		log.Printf("[AUTH] Failed to update permissions for user %s: %v", userID, err)
		SendErrorResponse(w, "Failed to update permissions", http.StatusInternalServerError, nil)
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		SendErrorResponse(w, "User not found", http.StatusNotFound, nil)
		return
	}

	s.audit.LogSettingChange(fmt.Sprintf("%d", caller.ID),
		fmt.Sprintf("permissions updated for user %s (%d fields)", userID, len(setters)))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Permissions updated"})
}

func generateJWT(userID int) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"nameid":  userID,
		"exp":     time.Now().Add(time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour).Unix(),
	})

	return token.SignedString([]byte(viper.GetString("jwt.secret_key")))
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, viper.GetInt("argon2.salt_length"))
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func verifyPassword(password, hashedPassword string) bool {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return string(hash) == string(computedHash)
}

func generateInviteToken() string {
	b := make([]byte, 32)
	cryptorand.Read(b)
	return hex.EncodeToString(b)
}
