package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/readingnook/readingnook-server/internal/service"
)

func (s *Server) registerSettingsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getSyncConfig",
		Method:      http.MethodGet,
		Path:        "/api/v1/sync/config",
		Summary:     "Get sync config",
		Description: "Returns the stored Notion credentials with the secret masked",
		Tags:        []string{"Settings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetSyncConfig)

	huma.Register(s.api, huma.Operation{
		OperationID: "saveSyncConfig",
		Method:      http.MethodPut,
		Path:        "/api/v1/sync/config",
		Summary:     "Save sync config",
		Description: "Stores Notion credentials",
		Tags:        []string{"Settings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSaveSyncConfig)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteSyncConfig",
		Method:        http.MethodDelete,
		Path:          "/api/v1/sync/config",
		Summary:       "Delete sync config",
		Description:   "Forgets the stored Notion credentials",
		Tags:          []string{"Settings"},
		DefaultStatus: http.StatusNoContent,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteSyncConfig)

	huma.Register(s.api, huma.Operation{
		OperationID: "getShareToken",
		Method:      http.MethodGet,
		Path:        "/api/v1/sync/token",
		Summary:     "Get share token",
		Description: "Encodes the stored credentials into a share token. The token reveals the secret to anyone holding it.",
		Tags:        []string{"Settings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetShareToken)

	huma.Register(s.api, huma.Operation{
		OperationID: "importShareToken",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync/token",
		Summary:     "Import share token",
		Description: "Decodes a share token and stores the credentials it carries",
		Tags:        []string{"Settings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleImportShareToken)
}

// SaveSyncConfigInput wraps new credentials for Huma.
type SaveSyncConfigInput struct {
	Body service.SyncConfigRequest
}

// SyncConfigOutput wraps the masked config for Huma.
type SyncConfigOutput struct {
	Body *service.SyncConfigView
}

// ShareTokenOutput wraps a share token for Huma.
type ShareTokenOutput struct {
	Body *service.ShareToken
}

// ImportShareTokenInput wraps a share token for Huma.
type ImportShareTokenInput struct {
	Body service.ShareToken
}

func (s *Server) handleGetSyncConfig(ctx context.Context, _ *struct{}) (*SyncConfigOutput, error) {
	if _, err := requireCurator(ctx); err != nil {
		return nil, err
	}

	view, err := s.services.Settings.GetSyncConfig(ctx)
	if err != nil {
		return nil, err
	}
	return &SyncConfigOutput{Body: view}, nil
}

func (s *Server) handleSaveSyncConfig(ctx context.Context, input *SaveSyncConfigInput) (*SyncConfigOutput, error) {
	if _, err := requireCurator(ctx); err != nil {
		return nil, err
	}

	view, err := s.services.Settings.SaveSyncConfig(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return &SyncConfigOutput{Body: view}, nil
}

func (s *Server) handleDeleteSyncConfig(ctx context.Context, _ *struct{}) (*struct{}, error) {
	if _, err := requireCurator(ctx); err != nil {
		return nil, err
	}
	return nil, s.services.Settings.DeleteSyncConfig(ctx)
}

func (s *Server) handleGetShareToken(ctx context.Context, _ *struct{}) (*ShareTokenOutput, error) {
	if _, err := requireCurator(ctx); err != nil {
		return nil, err
	}

	token, err := s.services.Settings.ShareToken(ctx)
	if err != nil {
		return nil, err
	}
	return &ShareTokenOutput{Body: token}, nil
}

func (s *Server) handleImportShareToken(ctx context.Context, input *ImportShareTokenInput) (*SyncConfigOutput, error) {
	if _, err := requireCurator(ctx); err != nil {
		return nil, err
	}

	view, err := s.services.Settings.ImportShareToken(ctx, input.Body.Token)
	if err != nil {
		return nil, err
	}
	return &SyncConfigOutput{Body: view}, nil
}
