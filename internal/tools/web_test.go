package tools_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpilot/taskpilot/internal/agent"
	"github.com/taskpilot/taskpilot/internal/auth"
	"github.com/taskpilot/taskpilot/internal/tools"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head><title>Watering Guide</title></head>
<body>
  <nav><a href="/">Home</a><a href="/about">About</a></nav>
  <script>console.log("tracking")</script>
  <article>
    <h1>How to water houseplants</h1>
    <p>Most houseplants prefer to dry out slightly between waterings.
    Check the top inch of soil before reaching for the watering can.</p>
    <p>Overwatering is the most common cause of root rot.</p>
  </article>
</body>
</html>`

func setupWebTool(t *testing.T) *agent.Executor {
	t.Helper()
	registry := agent.NewRegistry()
	require.NoError(t, tools.NewWebTools(nil, nil).Register(registry))
	return agent.NewExecutor(registry, nil)
}

func TestExtractPageText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/article":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(articleHTML))
		case "/missing":
			http.NotFound(w, r)
		default:
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html><head><title>Empty</title></head><body></body></html>"))
		}
	}))
	defer srv.Close()

	exec := setupWebTool(t)
	ctx := context.Background()
	caller := auth.Caller{UserID: "alice"}

	t.Run("extracts readable text", func(t *testing.T) {
		result := exec.Execute(ctx, caller, tools.ExtractPageTextName, map[string]any{
			"url": srv.URL + "/article",
		})
		require.Equal(t, agent.StatusOK, result.Status, result.Error)

		data := result.Data.(map[string]any)
		text := data["text"].(string)
		assert.Contains(t, text, "dry out slightly between waterings")
		assert.NotContains(t, text, "console.log")
		assert.Equal(t, false, data["truncated"])
	})

	t.Run("selector narrows extraction", func(t *testing.T) {
		result := exec.Execute(ctx, caller, tools.ExtractPageTextName, map[string]any{
			"url":      srv.URL + "/article",
			"selector": "article h1",
		})
		require.Equal(t, agent.StatusOK, result.Status, result.Error)

		data := result.Data.(map[string]any)
		assert.Equal(t, "How to water houseplants", data["text"])
		assert.Equal(t, "Watering Guide", data["title"])
	})

	t.Run("selector with no matches is a tool failure", func(t *testing.T) {
		result := exec.Execute(ctx, caller, tools.ExtractPageTextName, map[string]any{
			"url":      srv.URL + "/article",
			"selector": "table.results",
		})
		assert.Equal(t, agent.StatusError, result.Status)
		assert.Contains(t, result.Error, "no elements match")
	})

	t.Run("non-2xx is a tool failure", func(t *testing.T) {
		result := exec.Execute(ctx, caller, tools.ExtractPageTextName, map[string]any{
			"url": srv.URL + "/missing",
		})
		assert.Equal(t, agent.StatusError, result.Status)
		assert.Contains(t, result.Error, "status 404")
	})

	t.Run("empty page is a tool failure", func(t *testing.T) {
		result := exec.Execute(ctx, caller, tools.ExtractPageTextName, map[string]any{
			"url": srv.URL + "/empty",
		})
		assert.Equal(t, agent.StatusError, result.Status)
		assert.Contains(t, result.Error, "no readable text")
	})

	t.Run("rejects non-http schemes", func(t *testing.T) {
		for _, u := range []string{"file:///etc/passwd", "ftp://example.com/x", "javascript:alert(1)"} {
			result := exec.Execute(ctx, caller, tools.ExtractPageTextName, map[string]any{"url": u})
			assert.Equal(t, agent.StatusError, result.Status, u)
			assert.Contains(t, result.Error, "scheme", u)
		}
	})
}
