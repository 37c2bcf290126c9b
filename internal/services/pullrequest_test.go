package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/Giuseph66/neurelix-nexus/internal/apierr"
	"github.com/Giuseph66/neurelix-nexus/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prJSON = `{"number":%d,"title":%q,"body":"Implements TSK-9","state":%q,"merged":%t,
	"head":{"ref":"feature/TSK-9","sha":"h1"},"base":{"ref":"main"},"user":{"login":"ana"},
	"html_url":"https://github.com/octocat/hello/pull/%d"}`

func TestPullRequestList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	repo := env.repository(t, env.connectOAuth(t, "gho"), 10)
	tarefa := env.tarefa(t, "TSK-9")

	env.mux.HandleFunc("GET /api/repos/octocat/hello/pulls", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "all", r.URL.Query().Get("state"))
		fmt.Fprintf(w, "[%s,%s]",
			fmt.Sprintf(prJSON, 2, "Search", "open", false, 2),
			fmt.Sprintf(prJSON, 1, "Old", "closed", true, 1))
	})

	prs, err := env.pulls.List(ctx, env.projectID, "viewer", repo.ID, "all")
	require.NoError(t, err)
	require.Len(t, prs, 2)
	assert.Equal(t, models.PullRequestOpen, prs[0].State)
	assert.Equal(t, models.PullRequestMerged, prs[1].State)
	assert.Equal(t, "feature/TSK-9", prs[0].HeadBranch)

	links, err := env.store.ListLinksByTarefa(ctx, tarefa.ID)
	require.NoError(t, err)
	assert.Len(t, links, 2, "one link per pull request")

	_, err = env.pulls.List(ctx, env.projectID, "viewer", repo.ID, "draft")
	_, ok := apierr.As(err)
	assert.True(t, ok)
}

func TestPullRequestCreate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	repo := env.repository(t, env.connectOAuth(t, "gho"), 10)
	tarefa := env.tarefa(t, "TSK-9")
	other := env.tarefa(t, "TSK-20")

	env.mux.HandleFunc("POST /api/repos/octocat/hello/pulls", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "feature/TSK-9", body["head"])
		assert.Equal(t, "main", body["base"])
		assert.Equal(t, true, body["draft"])
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, prJSON, 5, body["title"], "open", false, 5)
	})

	pr, err := env.pulls.Create(ctx, env.projectID, "dev", repo.ID, CreatePullRequestInput{
		Title:    "Add search",
		Head:     "feature/TSK-9",
		Base:     "main",
		Draft:    true,
		TarefaID: other.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, pr.Number)
	assert.Equal(t, "Add search", pr.Title)

	stored, err := env.store.GetPullRequest(ctx, repo.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, pr.ID, stored.ID)

	auto, err := env.store.ListLinksByTarefa(ctx, tarefa.ID)
	require.NoError(t, err)
	require.Len(t, auto, 1)
	assert.Equal(t, models.LinkSourceAuto, auto[0].Source)

	manual, err := env.store.ListLinksByTarefa(ctx, other.ID)
	require.NoError(t, err)
	require.Len(t, manual, 1)
	assert.Equal(t, models.LinkSourceManual, manual[0].Source)
	assert.Equal(t, 5, *manual[0].PRNumber)

	env.flushAudit(t)
	assert.Len(t, env.auditEvents(t, models.EventPRCreated), 1)
}

func TestPullRequestCreate_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	repo := env.repository(t, env.connectOAuth(t, "gho"), 10)

	for name, in := range map[string]CreatePullRequestInput{
		"missing title": {Head: "a", Base: "main"},
		"missing head":  {Title: "x", Base: "main"},
		"missing base":  {Title: "x", Head: "a"},
		"same branches": {Title: "x", Head: "main", Base: "main"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := env.pulls.Create(ctx, env.projectID, "dev", repo.ID, in)
			apiErr, ok := apierr.As(err)
			require.True(t, ok)
			assert.Equal(t, http.StatusBadRequest, apiErr.Status)
		})
	}

	_, err := env.pulls.Create(ctx, env.projectID, "viewer", repo.ID, CreatePullRequestInput{
		Title: "x", Head: "a", Base: "main",
	})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.pulls.Create(ctx, env.projectID, "dev", repo.ID, CreatePullRequestInput{
		Title: "x", Head: "a", Base: "main", TarefaID: "missing",
	})
	assert.ErrorIs(t, err, ErrTarefaNotFound)
}

func TestPullRequestReview(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	repo := env.repository(t, env.connectOAuth(t, "gho"), 10)
	require.NoError(t, env.store.UpsertPullRequest(ctx, &models.PullRequest{
		RepositoryID: repo.ID, Number: 3, Title: "t", State: models.PullRequestOpen,
	}))

	env.mux.HandleFunc("POST /api/repos/octocat/hello/pulls/3/reviews", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		text, _ := body["body"].(string)
		fmt.Fprintf(w, `{"id":77,"user":{"login":"ana"},"state":"APPROVED","body":%q,"submitted_at":"2024-05-01T10:00:00Z"}`, text)
	})

	review, err := env.pulls.Review(ctx, env.projectID, "dev", repo.ID, 3, ReviewInput{Event: "approve"})
	require.NoError(t, err)
	assert.Equal(t, int64(77), review.ExternalID)
	assert.Equal(t, "APPROVED", review.State)
	assert.Equal(t, "dev", review.ReviewerID)
	assert.NotEmpty(t, review.PullRequestID)

	_, err = env.pulls.Review(ctx, env.projectID, "dev", repo.ID, 3, ReviewInput{Event: models.ReviewRequestChanges})
	_, ok := apierr.As(err)
	assert.True(t, ok, "request changes needs a body")

	_, err = env.pulls.Review(ctx, env.projectID, "dev", repo.ID, 3, ReviewInput{Event: "LGTM"})
	_, ok = apierr.As(err)
	assert.True(t, ok)

	_, err = env.pulls.Review(ctx, env.projectID, "viewer", repo.ID, 3, ReviewInput{Event: models.ReviewApprove})
	assert.ErrorIs(t, err, ErrForbidden)

	env.flushAudit(t)
	assert.Len(t, env.auditEvents(t, models.EventPRReviewed), 1)
}

func TestPullRequestMerge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	repo := env.repository(t, env.connectOAuth(t, "gho"), 10)
	require.NoError(t, env.store.UpsertPullRequest(ctx, &models.PullRequest{
		RepositoryID: repo.ID, Number: 4, Title: "t", State: models.PullRequestOpen,
	}))

	env.mux.HandleFunc("PUT /api/repos/octocat/hello/pulls/4/merge", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "squash", body["merge_method"])
		fmt.Fprint(w, `{"sha":"m1","merged":true,"message":"Pull Request successfully merged"}`)
	})
	env.mux.HandleFunc("PUT /api/repos/octocat/hello/pulls/5/merge", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
		fmt.Fprint(w, `{"message":"Pull Request is not mergeable"}`)
	})

	_, err := env.pulls.Merge(ctx, env.projectID, "dev", repo.ID, 4, MergeInput{Method: "squash"})
	assert.ErrorIs(t, err, ErrForbidden)

	res, err := env.pulls.Merge(ctx, env.projectID, "lead", repo.ID, 4, MergeInput{Method: "squash"})
	require.NoError(t, err)
	assert.True(t, res.Merged)
	assert.Equal(t, "m1", res.SHA)

	pr, err := env.store.GetPullRequest(ctx, repo.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, models.PullRequestMerged, pr.State)
	assert.NotNil(t, pr.MergedAt)

	_, err = env.pulls.Merge(ctx, env.projectID, "lead", repo.ID, 5, MergeInput{})
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)

	_, err = env.pulls.Merge(ctx, env.projectID, "lead", repo.ID, 4, MergeInput{Method: "octopus"})
	_, ok = apierr.As(err)
	assert.True(t, ok)

	env.flushAudit(t)
	assert.Len(t, env.auditEvents(t, models.EventPRMerged), 1)
}
