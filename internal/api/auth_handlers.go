package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/readingnook/readingnook-server/internal/service"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/login",
		Summary:     "Curator login",
		Description: "Exchanges the curator password for a bearer token",
		Tags:        []string{"Auth"},
	}, s.handleLogin)

	huma.Register(s.api, huma.Operation{
		OperationID:   "logout",
		Method:        http.MethodPost,
		Path:          "/api/v1/auth/logout",
		Summary:       "Curator logout",
		Description:   "Revokes the bearer token used for this request",
		Tags:          []string{"Auth"},
		DefaultStatus: http.StatusNoContent,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleLogout)

	huma.Register(s.api, huma.Operation{
		OperationID: "authStatus",
		Method:      http.MethodGet,
		Path:        "/api/v1/auth/status",
		Summary:     "Curator grant status",
		Description: "Reports whether the request carries a valid curator token",
		Tags:        []string{"Auth"},
	}, s.handleAuthStatus)
}

// LoginInput wraps the login request for Huma.
type LoginInput struct {
	Body service.LoginRequest
}

// LoginOutput wraps the login response for Huma.
type LoginOutput struct {
	Body *service.LoginResponse
}

// AuthStatusOutput wraps the grant status for Huma.
type AuthStatusOutput struct {
	Body *service.AuthStatus
}

func (s *Server) handleLogin(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
	resp, err := s.services.Auth.Login(ctx, input.Body, clientIP(ctx))
	if err != nil {
		return nil, err
	}
	return &LoginOutput{Body: resp}, nil
}

func (s *Server) handleLogout(ctx context.Context, _ *struct{}) (*struct{}, error) {
	claims, err := requireCurator(ctx)
	if err != nil {
		return nil, err
	}
	return nil, s.services.Auth.Logout(ctx, claims)
}

func (s *Server) handleAuthStatus(ctx context.Context, _ *struct{}) (*AuthStatusOutput, error) {
	claims, _ := claimsFrom(ctx)
	return &AuthStatusOutput{Body: s.services.Auth.Status(claims)}, nil
}
