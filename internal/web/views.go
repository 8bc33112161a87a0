package web

import (
	"errors"
	"time"

	"github.com/wkoster/smhconnect/internal/auth"
	"github.com/wkoster/smhconnect/internal/email"
	"github.com/wkoster/smhconnect/internal/errorz"
)

// The field names in the types below are part of the public wire
// format. Existing clients depend on their exact casing, so they are
// not normalized.

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// registration validates the request and converts it to a registration.
func (req createUserRequest) registration() (auth.Registration, error) {
	var invalid errorz.InvalidInput

	if req.Username == "" {
		invalid = append(invalid, errorz.Keyed{Key: "username", Err: errors.New("is required")})
	}
	if req.Email == "" {
		invalid = append(invalid, errorz.Keyed{Key: "email", Err: errors.New("is required")})
	}
	if req.Password == "" {
		invalid = append(invalid, errorz.Keyed{Key: "password", Err: errors.New("is required")})
	}

	if len(invalid) > 0 {
		return auth.Registration{}, invalid
	}

	addr, err := email.ParseAddress(req.Email)
	if err != nil {
		return auth.Registration{}, errorz.InvalidInput{errorz.Keyed{Key: "email", Err: err}}
	}

	pwd, err := auth.ParsePassword(req.Password)
	if err != nil {
		return auth.Registration{}, errorz.InvalidInput{errorz.Keyed{Key: "password", Err: err}}
	}

	return auth.Registration{
		Name:     req.Username,
		Email:    addr,
		Password: pwd,
	}, nil
}

type updateUserRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// patch validates the request and converts it to a user patch.
func (req updateUserRequest) patch() (auth.UserPatch, error) {
	var patch auth.UserPatch

	if req.Username != nil {
		if *req.Username == "" {
			return patch, errorz.InvalidInput{errorz.Keyed{Key: "username", Err: errors.New("cannot be empty")}}
		}
		patch.Name = req.Username
	}

	if req.Email != nil {
		addr, err := email.ParseAddress(*req.Email)
		if err != nil {
			return patch, errorz.InvalidInput{errorz.Keyed{Key: "email", Err: err}}
		}
		patch.Email = &addr
	}

	if req.Password != nil {
		pwd, err := auth.ParsePassword(*req.Password)
		if err != nil {
			return patch, errorz.InvalidInput{errorz.Keyed{Key: "password", Err: err}}
		}
		patch.Password = &pwd
	}

	return patch, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// credentials validates the request and converts it to credentials.
func (req loginRequest) credentials() (auth.Credentials, error) {
	var invalid errorz.InvalidInput

	if req.Email == "" {
		invalid = append(invalid, errorz.Keyed{Key: "email", Err: errors.New("is required")})
	}
	if req.Password == "" {
		invalid = append(invalid, errorz.Keyed{Key: "password", Err: errors.New("is required")})
	}

	if len(invalid) > 0 {
		return auth.Credentials{}, invalid
	}

	addr, err := email.ParseAddress(req.Email)
	if err != nil {
		// A malformed email can never belong to a user, the login path
		// reports it the same way as an unknown address.
		return auth.Credentials{}, auth.ErrNoSuchUser
	}

	c := auth.Credentials{Email: addr}

	// An out-of-range password can never match a stored hash. The zero
	// Password keeps the lookup and comparison on the same code path, so
	// unknown emails and wrong passwords are still reported distinctly.
	if pwd, err := auth.ParsePassword(req.Password); err == nil {
		c.Password = pwd
	}

	return c, nil
}

// loginResult pairs the authenticated user with their session token.
type loginResult struct {
	user  auth.User
	token string
}

type userView struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func userViewFrom(u auth.User) userView {
	return userView{
		ID:        u.ID.String(),
		Username:  u.Name,
		Email:     string(u.Email),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func userViewsFrom(users []auth.User) []userView {
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, userViewFrom(u))
	}
	return out
}

type createUserResponse struct {
	Message string   `json:"Message"`
	User    userView `json:"user"`
}

type listUsersResponse struct {
	Message string     `json:"Message"`
	Users   []userView `json:"Users"`
}

type deleteUserResponse struct {
	Msg  string   `json:"msg"`
	User userView `json:"user"`
}

type updateUserResponse struct {
	Msg     string   `json:"msg"`
	NewUser userView `json:"NewUser"`
}

type loginResponse struct {
	Msg       string   `json:"msg"`
	LoginUser userView `json:"LoginUser"`
	UserToken string   `json:"User_Token"`
}

type tokenUserView struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	UserName string `json:"userName"`
}

type whoAmIResponse struct {
	Message string        `json:"message"`
	User    tokenUserView `json:"user"`
}

// errorBody is the union of the error shapes used across the API.
// Only the fields that are set are serialized.
type errorBody struct {
	Warning string `json:"warning,omitempty"`
	Msg     string `json:"msg,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
