package middleware

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/config"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/models"
)

const testSecret = "test-secret"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return db
}

func sign(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func claimsFor(subject, role string) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role:  role,
		Email: subject + "@example.com",
		Name:  "Test Driver",
	}
}

// newApp mounts Auth in front of a route that echoes the locals it set.
func newApp(db *gorm.DB) *fiber.App {
	app := fiber.New()
	app.Use(Auth(&config.Config{JWTSecret: testSecret}, db))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		id, _ := c.Locals("userID").(string)
		role, _ := c.Locals("userRole").(string)
		return c.SendString(id + "|" + role)
	})
	app.Post("/leagues", RequireRole("admin", "manager"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})
	return app
}

func TestAuth_Rejects(t *testing.T) {
	db := newTestDB(t)
	app := newApp(db)

	expired := claimsFor("user_1", "")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	tests := []struct {
		name   string
		header string
	}{
		{name: "no header", header: ""},
		{name: "not bearer", header: "Basic abc"},
		{name: "garbage", header: "Bearer not-a-jwt"},
		{name: "wrong secret", header: "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), claimsFor("user_1", ""))},
		{name: "wrong algorithm", header: "Bearer " + sign(t, jwt.SigningMethodHS512, []byte(testSecret), claimsFor("user_1", ""))},
		{name: "expired", header: "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), expired)},
		{name: "no subject", header: "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor("", ""))},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/whoami", nil)
			if test.header != "" {
				req.Header.Set("Authorization", test.header)
			}
			resp, err := app.Test(req, -1)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			if resp.StatusCode != fiber.StatusUnauthorized {
				t.Errorf("Expected 401, got %d", resp.StatusCode)
			}
		})
	}

	var count int64
	db.Model(&models.User{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected no users to be created, got %d", count)
	}
}

func TestAuth_SyncsUser(t *testing.T) {
	db := newTestDB(t)
	app := newApp(db)

	call := func(role string) string {
		req := httptest.NewRequest("GET", "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+sign(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor("user_42", role)))
		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("Expected 200, got %d", resp.StatusCode)
		}
		body, _ := io.ReadAll(resp.Body)
		return string(body)
	}

	first := call("")
	var user models.User
	if err := db.Where("external_id = ?", "user_42").First(&user).Error; err != nil {
		t.Fatalf("Expected the user to be created: %v", err)
	}
	if first != user.ID.String()+"|user" {
		t.Errorf("Expected %s|user, got %s", user.ID, first)
	}
	if user.Email != "user_42@example.com" {
		t.Errorf("Expected the email claim to be stored, got %s", user.Email)
	}

	second := call("manager")
	if second != user.ID.String()+"|manager" {
		t.Errorf("Expected the role to sync to manager, got %s", second)
	}

	// An empty role claim leaves the stored role alone.
	if third := call(""); third != user.ID.String()+"|manager" {
		t.Errorf("Expected the manager role to stick, got %s", third)
	}

	var count int64
	db.Model(&models.User{}).Count(&count)
	if count != 1 {
		t.Errorf("Expected exactly one user, got %d", count)
	}
}

func TestRequireRole(t *testing.T) {
	db := newTestDB(t)
	app := newApp(db)

	tests := []struct {
		role     string
		expected int
	}{
		{role: "admin", expected: fiber.StatusCreated},
		{role: "manager", expected: fiber.StatusCreated},
		{role: "user", expected: fiber.StatusForbidden},
	}

	for _, test := range tests {
		t.Run(test.role, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/leagues", nil)
			req.Header.Set("Authorization", "Bearer "+sign(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor("user_"+test.role, test.role)))
			resp, err := app.Test(req, -1)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			if resp.StatusCode != test.expected {
				t.Errorf("Expected %d, got %d", test.expected, resp.StatusCode)
			}
		})
	}
}
