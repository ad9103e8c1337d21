package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperrors "github.com/emilythestrangee/hasker/backend/internal/errors"
	"github.com/emilythestrangee/hasker/backend/internal/models"
)

// Profile is the public view of a user.
type Profile struct {
	models.UserSummary
	QuestionCount int64     `json:"question_count"`
	AnswerCount   int64     `json:"answer_count"`
	CreatedAt     time.Time `json:"created_at"`
}

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// Register creates a user with a bcrypt hashed password.
func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if username == "" {
		return nil, apperrors.ValidationError("Invalid registration.").
			WithField("username", "This field may not be blank.")
	}

	db := s.db.WithContext(ctx)

	var existing models.User
	err := db.Where("username = ? OR email = ?", username, email).Take(&existing).Error
	if err == nil {
		return nil, duplicateUserError(existing, username, email)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.InternalError("Failed to hash password", err)
	}

	user := models.User{
		Username: username,
		Email:    email,
		Password: string(hashedPassword),
		Phone:    strings.TrimSpace(req.Phone),
		Photo:    strings.TrimSpace(req.Photo),
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ValidationError("Username or email already exists.").
				WithField("non_field_errors", "Username or email already exists.")
		}
		return nil, err
	}
	return &user, nil
}

func duplicateUserError(existing models.User, username, email string) error {
	verr := apperrors.ValidationError("Username or email already exists.")
	if existing.Username == username {
		verr.WithField("username", "A user with that username already exists.")
	}
	if existing.Email == email {
		verr.WithField("email", "A user with that email already exists.")
	}
	return verr
}

// Authenticate checks an email and password pair.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.UnauthorizedError("Invalid credentials")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperrors.UnauthorizedError("Invalid credentials")
	}
	return &user, nil
}

func (s *UserService) Get(ctx context.Context, userID int) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Take(&user, userID).Error; err != nil {
		return nil, notFoundOr(err, "User not found.")
	}
	return &user, nil
}

// Profile returns the public profile with question and answer counts.
func (s *UserService) Profile(ctx context.Context, userID int) (*Profile, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	profile := &Profile{UserSummary: user.Summary(), CreatedAt: user.CreatedAt}
	if err := db.Model(&models.Question{}).Where("author_id = ?", userID).Count(&profile.QuestionCount).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Answer{}).Where("author_id = ?", userID).Count(&profile.AnswerCount).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

// UpdateProfile changes the settings of userID. Only the user may do so.
func (s *UserService) UpdateProfile(ctx context.Context, userID, actorID int, req models.UpdateProfileRequest) (*models.User, error) {
	if userID != actorID {
		return nil, apperrors.ForbiddenError("You can only update your own profile").
			WithContext("user_id", userID)
	}

	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email == "" {
			return nil, apperrors.ValidationError("Invalid settings.").
				WithField("email", "This field may not be blank.")
		}
		if email != user.Email {
			var n int64
			if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ? AND id <> ?", email, userID).Count(&n).Error; err != nil {
				return nil, err
			}
			if n > 0 {
				return nil, apperrors.ValidationError("Invalid settings.").
					WithField("email", "A user with that email already exists.")
			}
		}
		updates["email"] = email
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.Photo != nil {
		updates["photo"] = strings.TrimSpace(*req.Photo)
	}
	if req.Thumb != nil {
		updates["thumb"] = strings.TrimSpace(*req.Thumb)
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, userID)
}
