package service

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	argon2 "github.com/mdouchement/simple-argon2"
	"github.com/mdouchement/sharelist/internal/database"
	"github.com/mdouchement/sharelist/internal/model"
	"github.com/mdouchement/sharelist/internal/slerror"
	"github.com/pkg/errors"
)

type (
	// RegisterParams are used to register a user.
	RegisterParams struct {
		Params
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	// LoginParams are used to login a user.
	LoginParams struct {
		Params
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	// A UserService handles registration and authentication.
	UserService struct {
		db         database.Client
		signingKey []byte
		tokenTTL   time.Duration
	}
)

// NewUser returns a new UserService.
func NewUser(db database.Client, signingKey []byte, tokenTTL time.Duration) *UserService {
	return &UserService{
		db:         db,
		signingKey: signingKey,
		tokenTTL:   tokenTTL,
	}
}

// Register creates the user and returns it with its first token.
func (s *UserService) Register(params RegisterParams) (Render, error) {
	// Check if the email is free to use.
	u, err := s.db.FindUserByEmail(params.Email)
	if err != nil && !s.db.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not get access to database")
	}
	if u != nil {
		return nil, slerror.NewWithTagCode(http.StatusConflict, "", "This email is already registered.")
	}

	user := &model.User{Email: params.Email}
	user.Password, err = argon2.GenerateFromPasswordString(params.Password, argon2.Default)
	if err != nil {
		return nil, errors.Wrap(err, "could not store user password safe")
	}

	if err := s.db.Save(user); err != nil {
		return nil, errors.Wrap(err, "could not persist user")
	}

	return s.successfulAuthentication(user)
}

// Login authenticates a user and returns a fresh token.
func (s *UserService) Login(params LoginParams) (Render, error) {
	user, err := s.db.FindUserByEmail(params.Email)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, slerror.NewWithTagCode(http.StatusUnauthorized, "", "Invalid email or password.")
		}
		return nil, errors.Wrap(err, "could not get user")
	}

	if err = argon2.CompareHashAndPasswordString(user.Password, params.Password); err != nil {
		if err == argon2.ErrMismatchedHashAndPassword {
			return nil, slerror.NewWithTagCode(http.StatusUnauthorized, "", "Invalid email or password.")
		}
		return nil, errors.Wrap(err, "could not validate password")
	}

	return s.successfulAuthentication(user)
}

func (s *UserService) successfulAuthentication(u *model.User) (Render, error) {
	token, err := s.CreateJWT(u)
	if err != nil {
		return nil, err
	}

	return M{
		"user": M{
			"uuid":  u.ID,
			"email": u.Email,
		},
		"token": token,
	}, nil
}

// CreateJWT generates the authentication token of the given user.
func (s *UserService) CreateJWT(u *model.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_uuid": u.ID,
		"iss":       "github.com/mdouchement/sharelist",
		"iat":       now.Unix(),
		"exp":       now.Add(s.tokenTTL).Unix(),
	})

	t, err := token.SignedString(s.signingKey)
	return t, errors.Wrap(err, "could not generate token")
}
