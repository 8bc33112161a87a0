package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/wkoster/smhconnect/internal/auth"
	"github.com/wkoster/smhconnect/internal/errorz"
)

// ServerDeps are the dependencies for the server.
type ServerDeps struct {
	Logger *slog.Logger
	Auth   *auth.Service
	Tokens *auth.Tokens
}

type Server struct {
	deps    *ServerDeps
	mux     *http.ServeMux
	handler http.Handler
}

func NewServer(deps *ServerDeps) *Server {
	s := &Server{
		deps: deps,
		mux:  http.NewServeMux(),
	}

	// Most endpoints below are created using the map functions from
	// handlers.go. These return handlers that automatically map between
	// JSON requests, target functions and JSON responses. The request
	// mapping and response writing is customizable per route.

	// Create user endpoint.
	{
		h := mapBoth(s, deps.Auth.RegisterUser)
		h.request(func(r *http.Request) (auth.Registration, error) {
			var req createUserRequest
			if err := decodeJSON(r, &req); err != nil {
				return auth.Registration{}, err
			}

			return req.registration()
		})
		h.response(func(res result[auth.Registration, auth.User]) error {
			return writeJSON(res.w, http.StatusOK, createUserResponse{
				Message: "User created successfully",
				User:    userViewFrom(res.out),
			})
		})

		s.mux.Handle("POST /app/postUser", h)
	}

	// List users endpoint.
	{
		h := mapResponse(s, func(ctx context.Context) ([]auth.User, error) {
			users, err := deps.Auth.ListUsers(ctx)
			if err != nil {
				return nil, err
			}

			if len(users) == 0 {
				return nil, errNoUsers
			}

			return users, nil
		})
		h.response(func(res result[struct{}, []auth.User]) error {
			return writeJSON(res.w, http.StatusOK, listUsersResponse{
				Message: "Users found",
				Users:   userViewsFrom(res.out),
			})
		})

		s.mux.Handle("GET /app/getUser", h)
	}

	// Single user, update and delete endpoints share the {id} path value.
	s.mux.HandleFunc("GET /app/getSpecificData/{id}", s.getUser)
	s.mux.HandleFunc("PUT /app/updateUser/{id}", s.updateUser)
	s.mux.HandleFunc("DELETE /app/deleteUser/{id}", s.deleteUser)

	// Login endpoint, registered on both prefixes for compatibility with
	// older clients.
	{
		h := mapBoth(s, func(ctx context.Context, c auth.Credentials) (loginResult, error) {
			user, token, err := deps.Auth.Login(ctx, c)
			if err != nil {
				return loginResult{}, err
			}

			return loginResult{user: user, token: token}, nil
		})
		h.request(func(r *http.Request) (auth.Credentials, error) {
			var req loginRequest
			if err := decodeJSON(r, &req); err != nil {
				return auth.Credentials{}, err
			}

			return req.credentials()
		})
		h.response(func(res result[auth.Credentials, loginResult]) error {
			return writeJSON(res.w, http.StatusOK, loginResponse{
				Msg:       "Login successful",
				LoginUser: userViewFrom(res.out.user),
				UserToken: res.out.token,
			})
		})

		s.mux.Handle("POST /app/login", h)
		s.mux.Handle("POST /auth/login", h)
	}

	// Protected endpoint, admits only requests with a valid bearer token.
	s.mux.Handle("GET /authmiddleware", s.bearerOnly(http.HandlerFunc(s.whoAmI)))

	s.mux.HandleFunc("GET /api-info", s.apiInfo)

	s.handler = s.logRequests(s.mux)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := s.userIDParam(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	user, err := s.deps.Auth.GetUser(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	err = writeJSON(w, http.StatusOK, updateUserResponse{
		Msg:     "User found",
		NewUser: userViewFrom(user),
	})
	if err != nil {
		s.handleError(w, r, err)
	}
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := s.userIDParam(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}

	patch, err := req.patch()
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	user, err := s.deps.Auth.UpdateUser(r.Context(), id, patch)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	err = writeJSON(w, http.StatusOK, updateUserResponse{
		Msg:     "User updated successfully",
		NewUser: userViewFrom(user),
	})
	if err != nil {
		s.handleError(w, r, err)
	}
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := s.userIDParam(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	user, err := s.deps.Auth.DeleteUser(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	err = writeJSON(w, http.StatusOK, deleteUserResponse{
		Msg:  "User deleted successfully",
		User: userViewFrom(user),
	})
	if err != nil {
		s.handleError(w, r, err)
	}
}

func (s *Server) whoAmI(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		s.handleError(w, r, errors.New("no claims on admitted request"))
		return
	}

	err := writeJSON(w, http.StatusOK, whoAmIResponse{
		Message: "Access authorized",
		User: tokenUserView{
			UserID:   claims.Subject,
			Email:    claims.Email,
			UserName: claims.Name,
		},
	})
	if err != nil {
		s.handleError(w, r, err)
	}
}

func (s *Server) apiInfo(w http.ResponseWriter, r *http.Request) {
	err := writeJSON(w, http.StatusOK, map[string]any{
		"message": "Welcome to the SMH-Connect API!",
		"endpoints": map[string]string{
			"users":     "/app",
			"auth":      "/auth",
			"protected": "/authmiddleware",
		},
	})
	if err != nil {
		s.handleError(w, r, err)
	}
}

// userIDParam parses the {id} path value. An unparseable ID can never
// match a stored user, so it reports not found rather than bad input.
func (s *Server) userIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user id: %w", errorz.ErrNotFound)
	}

	return id, nil
}

// errNoUsers makes an empty user list an error, the listing endpoint
// responds with a 400 in that case.
var errNoUsers = errors.New("no users found")

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var invalidInput errorz.InvalidInput
	switch {
	case errors.As(err, &invalidInput):
		s.writeError(w, http.StatusBadRequest, errorBody{Warning: "all fields are required"})
	case errors.Is(err, errNoUsers):
		s.writeError(w, http.StatusBadRequest, errorBody{Warning: "no users found"})
	case errors.Is(err, auth.ErrDuplicateUser):
		s.writeError(w, http.StatusBadRequest, errorBody{Warning: "user already exists"})
	case errors.Is(err, errorz.ErrNotFound):
		s.writeError(w, http.StatusNotFound, errorBody{Msg: "User not found"})
	case errors.Is(err, auth.ErrNoSuchUser):
		s.writeError(w, http.StatusUnauthorized, errorBody{Msg: "Invalid email or user not found"})
	case errors.Is(err, auth.ErrWrongPassword):
		s.writeError(w, http.StatusPaymentRequired, errorBody{Msg: "Incorrect password"})
	default:
		s.deps.Logger.Error("internal server error", "url", r.URL.String(), "error", err)
		s.writeError(w, http.StatusInternalServerError, errorBody{
			Error:   "Internal Server Error",
			Message: "something went wrong",
		})
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, body errorBody) {
	if err := writeJSON(w, status, body); err != nil {
		s.deps.Logger.Error("failed to write error response", "error", err)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.deps.Logger.Info("request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"duration", time.Since(start),
		)
	})
}
