package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/de-tools/review-gate/pkg/models/domain"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(DefaultSettings())
	require.NoError(t, err)
	return r
}

func sampleState() domain.DerivedState {
	return domain.DerivedState{
		Approved:    true,
		OverallRisk: domain.RiskLow,
		Headline:    "Traefik minor bump.",
		Summary:     "Traefik minor bump.\nNo breaking changes in the changelog.",
		Blocking:    1,
		Findings: []domain.Finding{
			{
				Type:    domain.FindingTypeVersion,
				Title:   "traefik 24.0.0 -> 25.0.0",
				Summary: "Chart version bump.",
				Risk:    domain.RiskLow,
				Tags:    []string{"update:helm"},
				Subject: &domain.Subject{Kind: "helm", Name: "traefik", From: "24.0.0", To: "25.0.0"},
			},
		},
	}
}

func TestRender(t *testing.T) {
	r := newTestRenderer(t)
	decision := domain.Merge("enabled for all PRs")

	t.Run("is deterministic", func(t *testing.T) {
		state := sampleState()

		first, err := r.Render(state, decision)
		require.NoError(t, err)
		second, err := r.Render(state, decision)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("marker is the first line", func(t *testing.T) {
		body, err := r.Render(sampleState(), decision)

		require.NoError(t, err)
		lines := strings.Split(body, "\n")
		assert.Equal(t, domain.CommentMarker, lines[0])
		assert.Equal(t, 1, strings.Count(body, domain.CommentMarker))
	})

	t.Run("includes verdict, risk, summary and findings", func(t *testing.T) {
		body, err := r.Render(sampleState(), decision)

		require.NoError(t, err)
		assert.Contains(t, body, "## Traefik minor bump.")
		assert.Contains(t, body, "**Verdict:** Approved")
		assert.Contains(t, body, "`LOW`")
		assert.Contains(t, body, "No breaking changes in the changelog.")
		assert.Contains(t, body, "traefik 24.0.0 -> 25.0.0")
		assert.Contains(t, body, "**Auto-merge:** will merge (enabled for all PRs)")
	})

	t.Run("hold decision renders as held", func(t *testing.T) {
		body, err := r.Render(sampleState(), domain.Hold("disabled in repo config"))

		require.NoError(t, err)
		assert.Contains(t, body, "**Auto-merge:** held (disabled in repo config)")
	})

	t.Run("unapproved review needs manual review", func(t *testing.T) {
		state := sampleState()
		state.Approved = false

		body, err := r.Render(state, domain.Hold("review not approved"))

		require.NoError(t, err)
		assert.Contains(t, body, "**Verdict:** Needs manual review")
	})

	t.Run("severe findings render expanded, mild ones collapsed", func(t *testing.T) {
		state := sampleState()
		state.Findings = []domain.Finding{
			{Type: domain.FindingTypeFinding, Title: "bad", Summary: "s", Risk: domain.RiskHigh},
			{Type: domain.FindingTypeFinding, Title: "meh", Summary: "s", Risk: domain.RiskNegligible},
		}

		body, err := r.Render(state, decision)

		require.NoError(t, err)
		assert.Contains(t, body, "<details open>\n<summary>:orange_circle: HIGH")
		assert.Contains(t, body, "<details>\n<summary>:white_circle: NEGLIGIBLE")
	})

	t.Run("duplicate titles get distinct anchors", func(t *testing.T) {
		state := sampleState()
		state.Findings = []domain.Finding{
			{Type: domain.FindingTypeFinding, Title: "Same Title", Summary: "a", Risk: domain.RiskLow},
			{Type: domain.FindingTypeFinding, Title: "Same Title", Summary: "b", Risk: domain.RiskLow},
		}

		body, err := r.Render(state, decision)

		require.NoError(t, err)
		assert.Contains(t, body, `<a id="finding-same-title"></a>`)
		assert.Contains(t, body, `<a id="finding-same-title-1"></a>`)
	})

	t.Run("empty finding summary renders as n/a", func(t *testing.T) {
		state := sampleState()
		state.Findings[0].Summary = ""

		body, err := r.Render(state, decision)

		require.NoError(t, err)
		assert.Contains(t, body, "n/a")
	})

	t.Run("cosmetic findings are flagged", func(t *testing.T) {
		state := sampleState()
		state.Findings[0].Cosmetic = true

		body, err := r.Render(state, decision)

		require.NoError(t, err)
		assert.Contains(t, body, "_(cosmetic)_")
	})
}

func TestRenderTruncation(t *testing.T) {
	decision := domain.Merge("enabled for all PRs")

	t.Run("long finding summaries are truncated", func(t *testing.T) {
		r := newTestRenderer(t)
		state := sampleState()
		state.Findings[0].Summary = strings.Repeat("x", 500)

		body, err := r.Render(state, decision)

		require.NoError(t, err)
		assert.Contains(t, body, strings.Repeat("x", 277)+"...")
		assert.NotContains(t, body, strings.Repeat("x", 278))
	})

	t.Run("long reference notes are truncated", func(t *testing.T) {
		r := newTestRenderer(t)
		state := sampleState()
		state.Findings[0].References = []domain.Reference{
			{URL: "https://example.com", Note: strings.Repeat("y", 400)},
		}

		body, err := r.Render(state, decision)

		require.NoError(t, err)
		assert.Contains(t, body, strings.Repeat("y", 237)+"...")
		assert.NotContains(t, body, strings.Repeat("y", 238))
	})

	t.Run("body is capped with an explicit notice", func(t *testing.T) {
		r, err := NewRenderer(Settings{
			FindingSummaryLimit: 280,
			ReferenceNoteLimit:  240,
			BodyLimit:           400,
		})
		require.NoError(t, err)

		state := sampleState()
		state.Summary = strings.Repeat("z", 1000)

		body, err := r.Render(state, domain.Hold("disabled in repo config"))

		require.NoError(t, err)
		assert.LessOrEqual(t, len([]rune(body)), 400)
		assert.True(t, strings.HasSuffix(body, "... (truncated due to length)"))
	})
}

func TestRenderEvidence(t *testing.T) {
	r := newTestRenderer(t)
	decision := domain.Hold("disabled in repo config")

	t.Run("parseable diff gets a stat line", func(t *testing.T) {
		state := sampleState()
		state.Findings[0].Evidence = &domain.Evidence{
			Diff: "diff --git a/app.yaml b/app.yaml\n" +
				"--- a/app.yaml\n" +
				"+++ b/app.yaml\n" +
				"@@ -1,2 +1,3 @@\n" +
				" line1\n" +
				"+added\n" +
				" line2\n",
		}

		body, err := r.Render(state, decision)

		require.NoError(t, err)
		assert.Contains(t, body, "```diff")
		assert.Contains(t, body, "_1 file changed, +1 -0_")
	})

	t.Run("bare fragment renders without stats", func(t *testing.T) {
		state := sampleState()
		state.Findings[0].Evidence = &domain.Evidence{Diff: "+foo\n-bar"}

		body, err := r.Render(state, decision)

		require.NoError(t, err)
		assert.Contains(t, body, "```diff")
		assert.NotContains(t, body, "file changed")
	})

	t.Run("snippet fence language is inferred from path", func(t *testing.T) {
		state := sampleState()
		state.Findings[0].Location = &domain.Location{Path: "deploy/values.yaml", Line: 12}
		state.Findings[0].Evidence = &domain.Evidence{Snippet: "replicas: 3"}

		body, err := r.Render(state, decision)

		require.NoError(t, err)
		assert.Contains(t, body, "```yaml\nreplicas: 3\n```")
		assert.Contains(t, body, "`deploy/values.yaml:12`")
	})

	t.Run("yaml evidence renders in a yaml fence", func(t *testing.T) {
		state := sampleState()
		state.Findings[0].Evidence = &domain.Evidence{YAML: "kind: Deployment"}

		body, err := r.Render(state, decision)

		require.NoError(t, err)
		assert.Contains(t, body, "```yaml\nkind: Deployment\n```")
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exact", truncate("exact", 5))
	assert.Equal(t, "ab...", truncate("abcdefgh", 5))
	assert.Equal(t, "trimmed", truncate("  trimmed  ", 10))
}

func TestMakeAnchor(t *testing.T) {
	counter := map[string]int{}

	assert.Equal(t, "finding-traefik-bump", makeAnchor(counter, "finding", "Traefik Bump!"))
	assert.Equal(t, "finding-traefik-bump-1", makeAnchor(counter, "finding", "Traefik bump"))
	assert.Equal(t, "finding-traefik-bump-2", makeAnchor(counter, "finding", "traefik  bump"))
	assert.Equal(t, "finding-finding", makeAnchor(counter, "finding", "!!!"))
}
