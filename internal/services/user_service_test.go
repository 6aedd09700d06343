package services

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func setAuthTestConfig() {
	viper.Set("argon2.salt_length", 16)
	viper.Set("argon2.time", 1)
	viper.Set("argon2.memory", 64*1024)
	viper.Set("argon2.threads", 4)
	viper.Set("argon2.key_length", 32)
	viper.Set("jwt.secret_key", "test-secret")
	viper.Set("jwt.expiry_hours", 24)
}

func TestUserService_Login(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	setAuthTestConfig()
	service := NewUserService(db, nil)

	userColumns := []string{"id", "email", "first_name", "last_name", "password",
		"is_manager", "is_compliance_officer", "is_template", "status"}

	t.Run("successful login", func(t *testing.T) {
		hashedPassword, _ := hashPassword("password123")

		mock.ExpectQuery("SELECT id, email, first_name, last_name, password").
			WithArgs("teller@example.com").
			WillReturnRows(sqlmock.NewRows(userColumns).
				AddRow(1, "teller@example.com", "Jane", "Doe", hashedPassword,
					false, false, false, "active"))

		body, _ := json.Marshal(LoginRequest{Email: "teller@example.com", Password: "password123"})
		r := httptest.NewRequest("POST", "/auth/login", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Login(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var response AuthResponse
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.NotEmpty(t, response.Token)
		assert.Equal(t, "teller@example.com", response.User.Email)
	})

	t.Run("user not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, email, first_name, last_name, password").
			WithArgs("nobody@example.com").
			WillReturnError(sql.ErrNoRows)

		body, _ := json.Marshal(LoginRequest{Email: "nobody@example.com", Password: "password123"})
		r := httptest.NewRequest("POST", "/auth/login", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Login(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		hashedPassword, _ := hashPassword("password123")

		mock.ExpectQuery("SELECT id, email, first_name, last_name, password").
			WithArgs("teller@example.com").
			WillReturnRows(sqlmock.NewRows(userColumns).
				AddRow(1, "teller@example.com", "Jane", "Doe", hashedPassword,
					false, false, false, "active"))

		body, _ := json.Marshal(LoginRequest{Email: "teller@example.com", Password: "wrongpass"})
		r := httptest.NewRequest("POST", "/auth/login", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Login(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("template accounts cannot log in", func(t *testing.T) {
		hashedPassword, _ := hashPassword("password123")

		mock.ExpectQuery("SELECT id, email, first_name, last_name, password").
			WithArgs("template@example.com").
			WillReturnRows(sqlmock.NewRows(userColumns).
				AddRow(2, "template@example.com", "Head", "Teller", hashedPassword,
					false, false, true, "active"))

		body, _ := json.Marshal(LoginRequest{Email: "template@example.com", Password: "password123"})
		r := httptest.NewRequest("POST", "/auth/login", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Login(w, r)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestUserService_Register(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	setAuthTestConfig()
	service := NewUserService(db, nil)

	t.Run("bootstrap manager on empty user table", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM users").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery("INSERT INTO users").
			WithArgs("manager@example.com", sqlmock.AnyArg(), "Jane", "Doe").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

		body, _ := json.Marshal(RegisterRequest{
			Email: "manager@example.com", Password: "password123",
			FirstName: "Jane", LastName: "Doe",
		})
		r := httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Register(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var response AuthResponse
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.NotEmpty(t, response.Token)
		assert.True(t, response.User.IsManager)
	})

	t.Run("registration closed once users exist", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM users").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

		body, _ := json.Marshal(RegisterRequest{
			Email: "late@example.com", Password: "password123",
			FirstName: "Late", LastName: "Comer",
		})
		r := httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Register(w, r)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestPasswordHashing(t *testing.T) {
	setAuthTestConfig()

	password := "testpassword"

	hashed, err := hashPassword(password)
	assert.NoError(t, err)
	assert.NotEmpty(t, hashed)

	assert.True(t, verifyPassword(password, hashed))
	assert.False(t, verifyPassword("wrongpassword", hashed))
}

func TestGenerateJWT(t *testing.T) {
	setAuthTestConfig()

	token, err := generateJWT(123)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestGenerateInviteToken(t *testing.T) {
	a := generateInviteToken()
	b := generateInviteToken()
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
