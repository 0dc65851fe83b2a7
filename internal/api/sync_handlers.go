package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/readingnook/readingnook-server/internal/domain"
	"github.com/readingnook/readingnook-server/internal/service"
)

func (s *Server) registerSyncRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "runSync",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync",
		Summary:     "Run sync",
		Description: "Replaces the library with the Notion database. Uses the stored config when no credentials are given.",
		Tags:        []string{"Sync"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRunSync)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSyncStatus",
		Method:      http.MethodGet,
		Path:        "/api/v1/sync/status",
		Summary:     "Sync status",
		Description: "Returns the syncing indicator and the last successful sync",
		Tags:        []string{"Sync"},
	}, s.handleSyncStatus)
}

// RunSyncInput carries optional credentials.
type RunSyncInput struct {
	Body *service.SyncRequest `required:"false"`
}

// SyncResultOutput wraps the sync result for Huma.
type SyncResultOutput struct {
	Body *domain.SyncResult
}

// SyncStatusOutput wraps the sync status for Huma.
type SyncStatusOutput struct {
	Body *service.SyncStatus
}

func (s *Server) handleRunSync(ctx context.Context, input *RunSyncInput) (*SyncResultOutput, error) {
	if _, err := requireCurator(ctx); err != nil {
		return nil, err
	}

	var req service.SyncRequest
	if input.Body != nil {
		req = *input.Body
	}

	result, err := s.services.Sync.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return &SyncResultOutput{Body: result}, nil
}

func (s *Server) handleSyncStatus(ctx context.Context, _ *struct{}) (*SyncStatusOutput, error) {
	status, err := s.services.Sync.Status(ctx)
	if err != nil {
		return nil, err
	}
	return &SyncStatusOutput{Body: status}, nil
}
