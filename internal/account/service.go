// Package account registers users and exchanges credentials for bearer tokens.
package account

import (
	"context"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-shop-orders/internal/auth"
	"github.com/ariefcatur/go-shop-orders/internal/orders"
	"github.com/go-playground/validator/v10"
	"strings"
)

var validate = validator.New()

var (
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidUsername    = errors.New("username is required")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

type Service struct {
	Store  orders.Store
	Tokens *auth.TokenMaker
}

func New(store orders.Store, tokens *auth.TokenMaker) *Service {
	return &Service{Store: store, Tokens: tokens}
}

type Registration struct {
	Email    string
	Username string
	Password string
	Role     string // empty means buyer
}

type Session struct {
	Token  string
	Claims *auth.Claims
	User   orders.User
}

func (s *Service) Register(ctx context.Context, in Registration) (orders.User, error) {
	role := auth.RoleBuyer
	if in.Role != "" {
		r, err := auth.ParseRole(in.Role)
		if err != nil {
			return orders.User{}, fmt.Errorf("%w: %v", orders.ErrForbidden, err)
		}
		role = r
	}
	if !auth.CanSelfRegister(role) {
		return orders.User{}, fmt.Errorf("%w: role %s cannot be self-assigned", orders.ErrForbidden, role)
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := validate.Var(email, "required,email"); err != nil {
		return orders.User{}, ErrInvalidEmail
	}
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return orders.User{}, ErrInvalidUsername
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return orders.User{}, err
	}

	u := orders.User{Email: email, Username: username, PasswordHash: hash, Role: role}
	err = s.Store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		return tx.CreateUser(ctx, &u)
	})
	if err != nil {
		return orders.User{}, err
	}
	return u, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	var u orders.User
	err := s.Store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		var err error
		u, err = tx.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
		return err
	})
	if errors.Is(err, orders.ErrUserNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if !auth.VerifyPassword(password, u.PasswordHash) {
		return Session{}, ErrInvalidCredentials
	}
	token, claims, err := s.Tokens.IssueToken(u.ID, u.Email, u.Username, u.Role)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, Claims: claims, User: u}, nil
}
