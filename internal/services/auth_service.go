package services

import (
	"context"
	cryptorand "crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"
)

// AuthService authenticates bank staff. Tellers drive the counter channel
// and admins run the batch jobs; customers never log in here, they
// authenticate with a card at a machine.
type AuthService struct {
	db        *sql.DB
	redis     *redis.Client
	validator *ValidationHelper
}

// LoginRequest represents the staff login payload
// @Description Staff login request structure
type LoginRequest struct {
	StaffID  string `json:"staff_id" validate:"required" example:"T-1042"`              // Staff identifier
	Password string `json:"password" validate:"required,min=6" example:"password123"`   // Staff password
}

// AuthResponse represents the authentication response
// @Description Authentication response structure
type AuthResponse struct {
	Token string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."` // JWT token
	Staff Staff  `json:"staff"`                                                   // Staff information
}

// Staff represents a staff member
// @Description Staff structure
type Staff struct {
	ID      int    `json:"id" example:"1"`            // Row id
	StaffID string `json:"staff_id" example:"T-1042"` // Staff identifier
	Name    string `json:"name" example:"Jane Doe"`   // Display name
	Role    string `json:"role" example:"teller"`     // teller or admin
	Branch  string `json:"branch" example:"001"`      // Home branch
}

func NewAuthService(db *sql.DB, redisClient *redis.Client) *AuthService {
	return &AuthService{
		db:        db,
		redis:     redisClient,
		validator: NewValidationHelper(),
	}
}

// Login handles staff authentication
// @Summary Login staff
// @Description Authenticate a staff member with staff id and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} AuthResponse "Login successful"
// @Failure 400 {string} string "Invalid request"
// @Failure 401 {string} string "Invalid credentials"
// @Failure 500 {string} string "Internal server error"
// @Router /auth/login [post]
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Login attempt from IP: %s", r.RemoteAddr)

	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

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

	var staff Staff
	var hashedPassword string
	err := s.db.QueryRow("SELECT id, staff_id, name, role, branch, password FROM staff WHERE staff_id = $1",
		req.StaffID).Scan(&staff.ID, &staff.StaffID, &staff.Name, &staff.Role, &staff.Branch, &hashedPassword)
	if err != nil {
		log.Printf("[AUTH] Staff not found: %s", req.StaffID)
		SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	if !verifyPassword(req.Password, hashedPassword) {
		log.Printf("[AUTH] Invalid password for staff: %s", req.StaffID)
		SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	token, err := generateJWT(staff.StaffID, staff.Role)
	if err != nil {
		log.Printf("[AUTH] JWT generation failed for staff %s: %v", staff.StaffID, err)
		SendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] Login successful for staff %s", staff.StaffID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AuthResponse{Token: token, Staff: staff})
}

// Logout handles staff logout
// @Summary Logout staff
// @Description Logout the staff member and revoke the token
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string "Logout successful"
// @Router /auth/logout [post]
func (s *AuthService) Logout(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("Authorization")
	if token != "" && len(token) > 7 {
		token = token[7:] // Remove "Bearer " prefix

		if s.redis != nil {
			ctx := context.Background()
			key := fmt.Sprintf("auth:revoked:%s", token)
			// Revoke the token until it would have expired anyway
			expiry := time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour
			if err := s.redis.Set(ctx, key, "1", expiry).Err(); err != nil {
				log.Printf("[AUTH] Failed to revoke token: %v", err)
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Logout successful"})
}

// EnsureStaff creates the staff table and seeds the bootstrap admin when the
// table is empty, so a fresh deployment can log in.
func (s *AuthService) EnsureStaff() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS staff (
			id       SERIAL PRIMARY KEY,
			staff_id VARCHAR(16)  NOT NULL UNIQUE,
			name     VARCHAR(128) NOT NULL,
			role     VARCHAR(16)  NOT NULL,
			branch   VARCHAR(8)   NOT NULL,
			password VARCHAR(256) NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("error creating staff schema: %w", err)
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM staff").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	viper.SetDefault("bootstrap.admin_password", "changeme123")
	hashed, err := hashPassword(viper.GetString("bootstrap.admin_password"))
	if err != nil {
		return err
	}
	_, err = s.db.Exec("INSERT INTO staff (staff_id, name, role, branch, password) VALUES ($1, $2, $3, $4, $5)",
		"A-0001", "Bootstrap Admin", "admin", "001", hashed)
	if err != nil {
		return err
	}
	log.Printf("[AUTH] Seeded bootstrap admin staff A-0001")
	return nil
}

func generateJWT(staffID, role string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"staff_id": staffID,
		"role":     role,
		"exp":      time.Now().Add(time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour).Unix(),
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
