package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	appErrors "github.com/unclebandit/moderated-board/internal/errors"
	"github.com/unclebandit/moderated-board/internal/model"
	"github.com/unclebandit/moderated-board/internal/monitoring"
	"github.com/unclebandit/moderated-board/internal/repository"
)

type SignupForm struct {
	Username        string `form:"username" validate:"required,max=150,username"`
	Email           string `form:"email" validate:"required,email,max=254"`
	Password        string `form:"password1" validate:"required,min=8,max=72,maxbytes=72"`
	PasswordConfirm string `form:"password2" validate:"required,eqfield=Password"`
}

type AccountService struct {
	UserRepo repository.UserRepositoryInterface
	Log      logrus.FieldLogger
}

// Signup registers a regular user.
func (s *AccountService) Signup(form SignupForm) (*model.User, FieldErrors, error) {
	form.Username = strings.TrimSpace(form.Username)
	form.Email = strings.TrimSpace(form.Email)
	if errs := validateForm(form); errs.Any() {
		return nil, errs, nil
	}

	user, err := s.CreateUser(form.Username, form.Email, form.Password, false)
	if errors.Is(err, appErrors.ErrUsernameTaken) {
		errs := FieldErrors{}
		errs.Add("username", "A user with that username already exists.")
		return nil, errs, nil
	}
	if err != nil {
		return nil, nil, err
	}

	monitoring.Signups.Inc()
	s.Log.WithField("username", user.Username).Info("User registered")
	return user, nil, nil
}

// Authenticate checks a username and password pair.
func (s *AccountService) Authenticate(username, password string) (*model.User, error) {
	user, err := s.UserRepo.GetByUsername(strings.TrimSpace(username))
	if err != nil {
		if appErrors.IsNotFound(err) {
			monitoring.LoginFailure.WithLabelValues("unknown_user").Inc()
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		monitoring.LoginFailure.WithLabelValues("wrong_password").Inc()
		return nil, appErrors.ErrInvalidCredentials
	}
	return user, nil
}

func (s *AccountService) GetUser(id int) (*model.User, error) {
	return s.UserRepo.GetByID(id)
}

// EnsureAdmin creates an administrator, or promotes an existing user and resets their password.
func (s *AccountService) EnsureAdmin(username, email, password string) (*model.User, error) {
	if len(password) < 8 {
		return nil, fmt.Errorf("password must have at least 8 characters")
	}

	existing, err := s.UserRepo.GetByUsername(username)
	if err != nil && !appErrors.IsNotFound(err) {
		return nil, err
	}
	if existing == nil {
		return s.CreateUser(username, email, password, true)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	if err := s.UserRepo.SetPassword(existing.ID, hash); err != nil {
		return nil, err
	}
	if err := s.UserRepo.SetStaff(existing.ID, true); err != nil {
		return nil, err
	}
	existing.IsStaff = true
	return existing, nil
}

// CreateUser stores an account without form validation. Used by Signup and the command line tools.
func (s *AccountService) CreateUser(username, email, password string, staff bool) (*model.User, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsStaff:      staff,
	}
	if err := s.UserRepo.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing failed: %w", err)
	}
	return string(hash), nil
}
