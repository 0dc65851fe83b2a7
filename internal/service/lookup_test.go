package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readingnook/readingnook-server/internal/ai"
	domainerrors "github.com/readingnook/readingnook-server/internal/errors"
	"github.com/readingnook/readingnook-server/internal/googlebooks"
)

type fakeVolumes struct {
	items []googlebooks.Volume
}

func (f *fakeVolumes) Search(_ context.Context, _ string) []googlebooks.Volume {
	return f.items
}

type fakeSuggester struct {
	enabled bool
	result  ai.Suggestion
}

func (f *fakeSuggester) Enabled() bool { return f.enabled }

func (f *fakeSuggester) Suggest(_ context.Context, _, _ string) ai.Suggestion {
	return f.result
}

func TestAssistService_Lookup(t *testing.T) {
	env := newTestEnv(t)
	volumes := &fakeVolumes{items: []googlebooks.Volume{{Title: "Dune", Author: "Frank Herbert"}}}
	svc := NewAssistService(volumes, &fakeSuggester{}, env.books, env.metrics, testLogger())
	ctx := context.Background()

	res, err := svc.Lookup(ctx, "dune")
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
	assert.Empty(t, res.Notice)

	volumes.items = []googlebooks.Volume{}
	res, err = svc.Lookup(ctx, "zzzz")
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, NoticeNoLookupResults, res.Notice)

	_, err = svc.Lookup(ctx, "  ")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestAssistService_Suggest(t *testing.T) {
	env := newTestEnv(t)
	suggester := &fakeSuggester{enabled: true, result: ai.Suggestion{
		Summary:       "沙漠星球上的權力鬥爭。",
		SuggestedTags: []string{"科幻", "史詩"},
	}}
	svc := NewAssistService(&fakeVolumes{}, suggester, env.books, env.metrics, testLogger())

	res, err := svc.Suggest(context.Background(), SuggestRequest{Title: "Dune", Author: "Frank Herbert", ExistingTags: []string{"經典", "科幻"}})
	require.NoError(t, err)

	assert.Equal(t, "沙漠星球上的權力鬥爭。", res.Summary)
	assert.Equal(t, []string{"科幻", "史詩"}, res.SuggestedTags)
	assert.Equal(t, []string{"經典", "科幻", "史詩"}, res.MergedTags)
	assert.Empty(t, res.Notice)
}

func TestAssistService_SuggestDegrades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	disabled := NewAssistService(&fakeVolumes{}, &fakeSuggester{}, env.books, env.metrics, testLogger())
	res, err := disabled.Suggest(ctx, SuggestRequest{Title: "Dune"})
	require.NoError(t, err)
	assert.Equal(t, NoticeAIDisabled, res.Notice)
	assert.Equal(t, []string{}, res.SuggestedTags)
	assert.Equal(t, []string{}, res.MergedTags)

	empty := NewAssistService(&fakeVolumes{}, &fakeSuggester{enabled: true, result: ai.Suggestion{SuggestedTags: []string{}}}, env.books, env.metrics, testLogger())
	res, err = empty.Suggest(ctx, SuggestRequest{Title: "Dune", ExistingTags: []string{"科幻"}})
	require.NoError(t, err)
	assert.Equal(t, NoticeNoSuggestion, res.Notice)
	assert.Equal(t, []string{"科幻"}, res.MergedTags)

	_, err = empty.Suggest(ctx, SuggestRequest{})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}
