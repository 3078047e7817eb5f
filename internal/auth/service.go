package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hugh/inkpress/internal/apperr"
	"github.com/hugh/inkpress/internal/database"
	"github.com/hugh/inkpress/internal/database/models"
	"github.com/hugh/inkpress/internal/metrics"
	"github.com/hugh/inkpress/internal/saga"
	"github.com/hugh/inkpress/internal/tenant"
)

const (
	stepCreateUser   = "create_user"
	stepCreateTenant = "create_tenant"
	stepIssueToken   = "issue_token"

	MessageUserAndTenantCreated = "User and tenant organization created successfully"
	MessageUserCreated          = "User created successfully"
)

// CompensationEnqueuer schedules a retry of a user deletion that failed
// while unwinding a registration.
type CompensationEnqueuer interface {
	EnqueueCompensateUser(ctx context.Context, userID uint, reason string) error
}

type Service struct {
	store    *Store
	tenants  *tenant.Store
	jwt      TokenService
	enqueuer CompensationEnqueuer
	logger   *slog.Logger
}

// NewService wires the identity service. enqueuer may be nil, in which case a
// failed compensation is only logged.
func NewService(store *Store, tenants *tenant.Store, jwt TokenService, enqueuer CompensationEnqueuer, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		tenants:  tenants,
		jwt:      jwt,
		enqueuer: enqueuer,
		logger:   logger,
	}
}

type RegisterInput struct {
	Username   string
	Email      string
	Password   string
	Role       string
	TenantName string // Optional: only used for Tenant Admins
}

type LoginInput struct {
	Identifier string
	Password   string
}

type RegisterResult struct {
	Token   string
	User    *models.User
	Tenant  *models.Tenant
	Message string
}

type LoginResult struct {
	Token string
	User  *models.User
}

func (s *Service) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	username := strings.TrimSpace(input.Username)
	email := models.NormalizeEmail(input.Email)
	roleName := strings.TrimSpace(input.Role)

	if username == "" || email == "" || strings.TrimSpace(input.Password) == "" || roleName == "" {
		metrics.RegistrationCounter.WithLabelValues("rejected").Inc()
		return nil, apperr.Validation("All fields are required", nil)
	}

	// Login accepts either an email or a username, so a username must never
	// look like an email.
	if strings.Contains(username, "@") {
		metrics.RegistrationCounter.WithLabelValues("rejected").Inc()
		return nil, apperr.Validation("Invalid registration data",
			map[string]string{"username": "Must not contain @"})
	}
	if len(input.Password) > MaxPasswordBytes {
		metrics.RegistrationCounter.WithLabelValues("rejected").Inc()
		return nil, apperr.Validation("Invalid registration data",
			map[string]string{"password": "Password must be at most 72 bytes"})
	}

	// Everything that can be rejected is checked before the first write.
	role, err := s.store.FindRoleByName(ctx, roleName)
	if err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			metrics.RegistrationCounter.WithLabelValues("rejected").Inc()
			return nil, apperr.Newf(apperr.KindInvalidRole,
				"Invalid role: %s. Please ensure the role exists in the system.", roleName)
		}
		return nil, fmt.Errorf("resolving role: %w", err)
	}

	if err := s.checkAvailable(ctx, email, username); err != nil {
		metrics.RegistrationCounter.WithLabelValues("rejected").Inc()
		return nil, err
	}

	ownsTenant := role.Kind().OwnsTenant()
	var slug string
	if ownsTenant {
		slug = Slugify(username)
		if slug == "" {
			metrics.RegistrationCounter.WithLabelValues("rejected").Inc()
			return nil, apperr.Validation("Username cannot be turned into an organization slug",
				map[string]string{"username": "Must contain at least one letter or digit"})
		}
		taken, err := s.tenants.SlugTaken(ctx, slug)
		if err != nil {
			return nil, err
		}
		if taken {
			metrics.RegistrationCounter.WithLabelValues("rejected").Inc()
			return nil, apperr.New(apperr.KindSlugConflict, "Organization slug already taken")
		}
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &models.User{
		Username:     username,
		UsernameKey:  models.UsernameKeyOf(username),
		Email:        email,
		PasswordHash: hash,
		Provider:     models.ProviderLocal,
		Confirmed:    true,
		RoleID:       &role.ID,
	}

	var (
		org   *models.Tenant
		token string
	)

	steps := saga.New(s.logger).Add(saga.Step{
		Name: stepCreateUser,
		Do: func(ctx context.Context) error {
			return s.store.CreateUser(ctx, user)
		},
		Undo: func(ctx context.Context) error {
			return s.store.HardDeleteUser(ctx, user.ID)
		},
	})

	if ownsTenant {
		steps.Add(saga.Step{
			Name: stepCreateTenant,
			Do: func(ctx context.Context) error {
				name := strings.TrimSpace(input.TenantName)
				if name == "" {
					name = username + "'s Organization"
				}
				org = &models.Tenant{
					Name:          name,
					Slug:          slug,
					Description:   "Organization for " + username,
					ThemeSettings: models.DefaultThemeSettings(),
				}
				return s.tenants.CreateWithOwner(ctx, org, user.ID)
			},
			Undo: func(ctx context.Context) error {
				return s.tenants.HardDelete(ctx, org.ID)
			},
		})
	}

	steps.Add(saga.Step{
		Name: stepIssueToken,
		Do: func(ctx context.Context) error {
			var err error
			token, err = s.jwt.GenerateToken(user.ID)
			return err
		},
	})

	if err := steps.Run(ctx); err != nil {
		return nil, s.registrationFailed(ctx, user, username, err)
	}

	user.Role = role
	result := &RegisterResult{
		Token:   token,
		User:    user,
		Message: MessageUserCreated,
	}
	if org != nil {
		user.Tenants = []models.Tenant{*org}
		result.Tenant = org
		result.Message = MessageUserAndTenantCreated
		metrics.TenantsCreatedCounter.Inc()
	}

	metrics.RegistrationCounter.WithLabelValues("success").Inc()
	s.logger.Info("user registered",
		"user_id", user.ID,
		"role", role.Name,
		"tenant_created", org != nil,
	)

	return result, nil
}

func (s *Service) checkAvailable(ctx context.Context, email, username string) error {
	taken, err := s.store.EmailTaken(ctx, email)
	if err != nil {
		return err
	}
	if taken {
		return apperr.New(apperr.KindDuplicateEmail, "Email already taken")
	}

	taken, err = s.store.UsernameTaken(ctx, username)
	if err != nil {
		return err
	}
	if taken {
		return apperr.New(apperr.KindDuplicateUsername, "Username already taken")
	}
	return nil
}

// registrationFailed turns a saga failure into the client-facing error and
// schedules a retry when the user row could not be rolled back.
func (s *Service) registrationFailed(ctx context.Context, user *models.User, username string, err error) error {
	metrics.RegistrationCounter.WithLabelValues("failed").Inc()

	f, ok := saga.AsFailure(err)
	if !ok {
		return err
	}

	if f.Step != stepCreateUser {
		if f.Clean() {
			metrics.CompensationCounter.WithLabelValues("clean").Inc()
		} else {
			metrics.CompensationCounter.WithLabelValues("failed").Inc()
		}
		if undoErr, ok := f.Compensations[stepCreateTenant]; ok {
			s.logger.Error("registration rollback incomplete, tenant row left behind",
				"user_id", user.ID,
				"failed_step", f.Step,
				"error", undoErr,
			)
		}
		if _, ok := f.Compensations[stepCreateUser]; ok {
			s.scheduleCompensation(ctx, user.ID, f)
		}
	}

	switch f.Step {
	case stepCreateUser:
		if database.IsUniqueViolation(f.Err) {
			// Lost a race with a concurrent registration.
			if taken, _ := s.store.UsernameTaken(ctx, username); taken {
				return apperr.Wrap(apperr.KindDuplicateUsername, "Username already taken", f.Err)
			}
			return apperr.Wrap(apperr.KindDuplicateEmail, "Email already taken", f.Err)
		}
		return fmt.Errorf("creating user: %w", f.Err)
	case stepCreateTenant:
		if database.IsUniqueViolation(f.Err) {
			return apperr.Wrap(apperr.KindSlugConflict, "Organization slug already taken", f.Err)
		}
		s.logger.Error("tenant creation failed", "user_id", user.ID, "error", f.Err)
		return apperr.Wrap(apperr.KindTenantCreation, "Failed to create tenant organization", f.Err)
	default:
		return fmt.Errorf("%s: %w", f.Step, f.Err)
	}
}

func (s *Service) scheduleCompensation(ctx context.Context, userID uint, f *saga.Failure) {
	s.logger.Error("registration rollback incomplete, user row left behind",
		"user_id", userID,
		"failed_step", f.Step,
		"error", f.Compensations[stepCreateUser],
	)
	if s.enqueuer == nil {
		return
	}

	reason := fmt.Sprintf("%s failed: %v", f.Step, f.Err)
	if err := s.enqueuer.EnqueueCompensateUser(context.WithoutCancel(ctx), userID, reason); err != nil {
		s.logger.Error("failed to enqueue compensation", "user_id", userID, "error", err)
		return
	}
	metrics.CompensationCounter.WithLabelValues("retried").Inc()
}

func (s *Service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	identifier := strings.TrimSpace(input.Identifier)
	if identifier == "" || input.Password == "" {
		metrics.LoginCounter.WithLabelValues("rejected").Inc()
		return nil, apperr.Validation("Identifier and password are required", nil)
	}

	user, err := s.store.FindByIdentifier(ctx, identifier, WithAll)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("finding user: %w", err)
	}

	if user == nil || user.Provider != models.ProviderLocal {
		burnPasswordCheck(input.Password)
		metrics.LoginCounter.WithLabelValues("invalid_credentials").Inc()
		return nil, apperr.New(apperr.KindInvalidCredentials, "Invalid credentials")
	}

	if !CheckPassword(input.Password, user.PasswordHash) {
		metrics.LoginCounter.WithLabelValues("invalid_credentials").Inc()
		return nil, apperr.New(apperr.KindInvalidCredentials, "Invalid credentials")
	}

	if !user.Confirmed {
		metrics.LoginCounter.WithLabelValues("forbidden").Inc()
		return nil, apperr.Forbidden("Your account email is not confirmed")
	}
	if user.Blocked {
		metrics.LoginCounter.WithLabelValues("forbidden").Inc()
		return nil, apperr.Forbidden("Your account has been blocked by an administrator")
	}

	token, err := s.jwt.GenerateToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}

	metrics.LoginCounter.WithLabelValues("success").Inc()
	return &LoginResult{Token: token, User: user}, nil
}

// GetUser loads a user with role and tenants, whatever the role.
func (s *Service) GetUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.store.FindByID(ctx, id, WithAll)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, err
	}
	return user, nil
}
