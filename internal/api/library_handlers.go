package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/readingnook/readingnook-server/internal/domain"
)

func (s *Server) registerLibraryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getLibraryStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/library/stats",
		Summary:     "Library statistics",
		Description: "Returns per-status counts and whether a sync is running",
		Tags:        []string{"Library"},
	}, s.handleLibraryStats)
}

// LibraryStatsResponse contains the library counts.
type LibraryStatsResponse struct {
	domain.Stats
	Syncing  bool               `json:"syncing" doc:"Whether a sync is in progress"`
	LastSync *domain.SyncResult `json:"last_sync,omitempty" doc:"Most recent successful sync"`
}

// LibraryStatsOutput wraps the stats for Huma.
type LibraryStatsOutput struct {
	Body LibraryStatsResponse
}

func (s *Server) handleLibraryStats(ctx context.Context, _ *struct{}) (*LibraryStatsOutput, error) {
	status, err := s.services.Sync.Status(ctx)
	if err != nil {
		return nil, err
	}

	return &LibraryStatsOutput{
		Body: LibraryStatsResponse{
			Stats:    s.services.Book.Stats(ctx),
			Syncing:  status.Syncing,
			LastSync: status.LastSync,
		},
	}, nil
}
