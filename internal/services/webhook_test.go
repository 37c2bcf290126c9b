package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/Giuseph66/neurelix-nexus/internal/github"
	"github.com/Giuseph66/neurelix-nexus/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedDelivery(event, body string) github.Delivery {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write([]byte(body))
	return github.Delivery{
		Event:       event,
		ID:          "delivery-1",
		Signature:   "sha256=" + hex.EncodeToString(mac.Sum(nil)),
		ContentType: "application/json",
		Body:        []byte(body),
	}
}

func TestWebhook_RejectsBadSignature(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	d := signedDelivery("push", `{"ref":"refs/heads/main"}`)
	d.Body = []byte(`{"ref":"refs/heads/evil"}`)
	result, err := env.webhook.Handle(ctx, d)
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Equal(t, WebhookRejected, result)

	d.Signature = ""
	_, err = env.webhook.Handle(ctx, d)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestWebhook_UnconfiguredSecretRejectsEverything(t *testing.T) {
	env := newTestEnv(t)
	env.webhook.secret = nil

	_, err := env.webhook.Handle(context.Background(), signedDelivery("ping", `{}`))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestWebhook_IgnoresUnknownEvents(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.webhook.Handle(context.Background(), signedDelivery("ping", `{"zen":"Keep it logically awesome."}`))
	require.NoError(t, err)
	assert.Equal(t, WebhookIgnored, result)

	result, err = env.webhook.Handle(context.Background(), signedDelivery("push", `{"ref":"refs/heads/main","repository":{"id":404}}`))
	require.NoError(t, err)
	assert.Equal(t, WebhookIgnored, result, "no project mirrors that repository")
}

func TestWebhook_MalformedPayload(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.webhook.Handle(context.Background(), signedDelivery("push", `{"ref":`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestWebhook_Push(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	repo := env.repository(t, env.connectOAuth(t, "gho"), 10)
	tarefa := env.tarefa(t, "TSK-4")

	result, err := env.webhook.Handle(ctx, signedDelivery("push", `{
		"ref":"refs/heads/feature/x",
		"repository":{"id":10},
		"commits":[
			{"id":"p1","message":"TSK-4 first","timestamp":"2024-05-01T10:00:00Z","author":{"name":"Ana","email":"ana@example.com","username":"ana"}},
			{"id":"p2","message":"no key","timestamp":"2024-05-01T11:00:00Z"}
		]}`))
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, result)

	commits, err := env.store.ListCommitsBySHA(ctx, repo.ID, []string{"p1", "p2"})
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, "p2", commits[0].SHA)

	links, err := env.store.ListLinksByTarefa(ctx, tarefa.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "p1", *links[0].CommitSHA)
	assert.Equal(t, "feature/x", *links[0].BranchName)
	assert.Empty(t, links[0].CreatedBy)
}

func TestWebhook_CreateBranch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	repo := env.repository(t, env.connectOAuth(t, "gho"), 10)
	tarefa := env.tarefa(t, "TSK-4")

	result, err := env.webhook.Handle(ctx, signedDelivery("create",
		`{"ref":"TSK-4-fix","ref_type":"branch","repository":{"id":10}}`))
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, result)

	branches, err := env.store.ListBranches(ctx, repo.ID)
	require.NoError(t, err)
	require.Len(t, branches, 1)
	assert.Equal(t, "TSK-4-fix", branches[0].Name)

	links, err := env.store.ListLinksByTarefa(ctx, tarefa.ID)
	require.NoError(t, err)
	assert.Len(t, links, 1)

	result, err = env.webhook.Handle(ctx, signedDelivery("create",
		`{"ref":"v1.0.0","ref_type":"tag","repository":{"id":10}}`))
	require.NoError(t, err)
	assert.Equal(t, WebhookIgnored, result)
}

func TestWebhook_CreateKeepsMirroredBranchState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	repo := env.repository(t, env.connectOAuth(t, "gho"), 10)

	require.NoError(t, env.store.UpsertBranch(ctx, &models.Branch{
		RepositoryID: repo.ID, Name: "release", HeadSHA: "abc123", Protected: true,
	}))

	result, err := env.webhook.Handle(ctx, signedDelivery("create",
		`{"ref":"release","ref_type":"branch","repository":{"id":10}}`))
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, result)

	branches, err := env.store.ListBranches(ctx, repo.ID)
	require.NoError(t, err)
	require.Len(t, branches, 1)
	assert.Equal(t, "abc123", branches[0].HeadSHA)
	assert.True(t, branches[0].Protected)
}

func TestWebhook_PullRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	repo := env.repository(t, env.connectOAuth(t, "gho"), 10)
	tarefa := env.tarefa(t, "TSK-4")

	result, err := env.webhook.Handle(ctx, signedDelivery("pull_request", `{
		"action":"closed",
		"repository":{"id":10},
		"pull_request":{"number":8,"title":"Ship TSK-4","state":"closed","merged":true,
			"merged_at":"2024-05-01T12:00:00Z","head":{"ref":"f","sha":"h"},"base":{"ref":"main"}}}`))
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, result)

	pr, err := env.store.GetPullRequest(ctx, repo.ID, 8)
	require.NoError(t, err)
	assert.Equal(t, models.PullRequestMerged, pr.State)

	links, err := env.store.ListLinksByTarefa(ctx, tarefa.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, 8, *links[0].PRNumber)
}

func TestWebhook_InstallationDeleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	instID := int64(321)
	require.NoError(t, env.store.SaveConnection(ctx, &models.GitConnection{
		ProjectID:      env.projectID,
		Provider:       models.ProviderGitHub,
		AuthType:       models.AuthTypeApp,
		InstallationID: &instID,
		Status:         models.ConnectionActive,
	}))

	result, err := env.webhook.Handle(ctx, signedDelivery("installation",
		`{"action":"suspend","installation":{"id":321}}`))
	require.NoError(t, err)
	assert.Equal(t, WebhookIgnored, result)

	result, err = env.webhook.Handle(ctx, signedDelivery("installation",
		`{"action":"deleted","installation":{"id":321}}`))
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, result)

	conn, err := env.store.GetConnection(ctx, env.projectID, models.ProviderGitHub)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionRevoked, conn.Status)
}
