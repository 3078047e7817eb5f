package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/inkpress/internal/auth"
	"github.com/hugh/inkpress/internal/database"
	"github.com/hugh/inkpress/internal/database/models"
	"github.com/hugh/inkpress/internal/roles"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const TestPassword = "testpassword123"

// SetupTestDB creates an in-memory SQLite database with the schema migrated
// and the roles seeded. It is closed when the test ends.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Every pooled connection would get its own empty :memory: database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	if err := database.EnsureRoles(context.Background(), db); err != nil {
		t.Fatalf("failed to seed roles: %v", err)
	}

	return db
}

// FindRole loads a seeded role.
func FindRole(t *testing.T, db *gorm.DB, kind roles.Kind) *models.Role {
	t.Helper()

	var role models.Role
	if err := db.Where("name = ?", kind.Name()).First(&role).Error; err != nil {
		t.Fatalf("failed to load role %s: %v", kind, err)
	}
	return &role
}

// CreateTestUser creates a confirmed local user with TestPassword. A zero
// kind creates a user without a role.
func CreateTestUser(t *testing.T, db *gorm.DB, username string, kind roles.Kind) *models.User {
	t.Helper()

	hash, err := auth.HashPassword(TestPassword)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Username:     username,
		UsernameKey:  models.UsernameKeyOf(username),
		Email:        models.NormalizeEmail(username + "@example.com"),
		PasswordHash: hash,
		Provider:     models.ProviderLocal,
		Confirmed:    true,
	}
	if kind != roles.Unknown {
		role := FindRole(t, db, kind)
		user.RoleID = &role.ID
		user.Role = role
	}

	if err := db.Omit("Role", "Tenants").Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// CreateTestTenant creates a tenant owned by owner, or with no members when
// owner is nil.
func CreateTestTenant(t *testing.T, db *gorm.DB, slug string, owner *models.User) *models.Tenant {
	t.Helper()

	tenant := &models.Tenant{
		Name:          strings.ToUpper(slug[:1]) + slug[1:],
		Slug:          slug,
		ThemeSettings: models.DefaultThemeSettings(),
	}
	if err := db.Omit("Users").Create(tenant).Error; err != nil {
		t.Fatalf("failed to create test tenant: %v", err)
	}

	if owner != nil {
		AddMember(t, db, tenant, owner)
	}
	return tenant
}

func AddMember(t *testing.T, db *gorm.DB, tenant *models.Tenant, user *models.User) {
	t.Helper()

	if err := db.Create(&models.TenantMember{TenantID: tenant.ID, UserID: user.ID}).Error; err != nil {
		t.Fatalf("failed to add membership: %v", err)
	}
	user.Tenants = append(user.Tenants, *tenant)
}

// FailCreatesOn makes every insert into table fail with the returned error.
func FailCreatesOn(t *testing.T, db *gorm.DB, table string) error {
	t.Helper()

	injected := errors.New("injected insert failure on " + table)
	err := db.Callback().Create().Before("gorm:create").
		Register("testutil:fail_create_"+table, func(tx *gorm.DB) {
			if tx.Statement.Schema != nil && tx.Statement.Schema.Table == table {
				_ = tx.AddError(injected)
			}
		})
	if err != nil {
		t.Fatalf("failed to register create callback: %v", err)
	}
	return injected
}

// FailDeletesOn makes every delete from table fail with the returned error.
func FailDeletesOn(t *testing.T, db *gorm.DB, table string) error {
	t.Helper()

	injected := errors.New("injected delete failure on " + table)
	err := db.Callback().Delete().Before("gorm:delete").
		Register("testutil:fail_delete_"+table, func(tx *gorm.DB) {
			if tx.Statement.Schema != nil && tx.Statement.Schema.Table == table {
				_ = tx.AddError(injected)
			}
		})
	if err != nil {
		t.Fatalf("failed to register delete callback: %v", err)
	}
	return injected
}

// CreateTestJWTService creates a JWT service for testing
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 24*time.Hour)
}

// GenerateTestToken generates a valid JWT token for the given user
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	token, err := jwtService.GenerateToken(user.ID)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}

	return token
}

// AuthenticatedRequest creates an HTTP request with authentication
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// ErrorBody mirrors the JSON error envelope.
type ErrorBody struct {
	Error struct {
		Status  int               `json:"status"`
		Name    string            `json:"name"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

// ParseError decodes the error envelope of a failed response.
func ParseError(t *testing.T, rr *httptest.ResponseRecorder) ErrorBody {
	t.Helper()

	var body ErrorBody
	ParseJSONResponse(t, rr, &body)
	return body
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestSetup holds all the common test dependencies
type TestSetup struct {
	DB         *gorm.DB
	JWTService *auth.JWTService
	Tenant     *models.Tenant
	Admin      *models.User
	Token      string
}

// NewTestContext creates a DB holding one Tenant Admin who owns one tenant,
// plus a token for that admin.
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	jwtService := CreateTestJWTService()
	admin := CreateTestUser(t, db, "admin-"+uuid.NewString()[:8], roles.TenantAdmin)
	tenant := CreateTestTenant(t, db, "tenant-"+uuid.NewString()[:8], admin)
	token := GenerateTestToken(t, jwtService, admin)

	return &TestSetup{
		DB:         db,
		JWTService: jwtService,
		Tenant:     tenant,
		Admin:      admin,
		Token:      token,
	}
}
