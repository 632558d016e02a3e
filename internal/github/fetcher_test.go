package github_test

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ghclient "github.com/spigell/gh-screener/internal/github"
)

func TestFetchHistory_SortsAndCapsPatches(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var patchCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/alice/repos", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			writeJSON(t, w, []repoJSON{})
			return
		}
		writeJSON(t, w, []repoJSON{
			{Name: "old", Owner: userJSON{Login: "alice"}},
			{Name: "new", Owner: userJSON{Login: "alice"}},
		})
	})
	mux.HandleFunc("GET /repos/alice/{repo}/commits", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			writeJSON(t, w, []commitJSON{})
			return
		}
		// "old" holds 40 commits on even days, "new" 30 on odd days.
		n, offset := 40, 0
		if r.PathValue("repo") == "new" {
			n, offset = 30, 1
		}
		page := make([]commitJSON, n)
		for i := range page {
			date := base.Add(time.Duration(2*i+offset) * 24 * time.Hour)
			page[i] = commitJSON{
				SHA:    fmt.Sprintf("%s-%02d", r.PathValue("repo"), i),
				Commit: commitBodyJSON{Message: "msg", Author: authorJSON{Date: date.Format(time.RFC3339)}},
			}
		}
		writeJSON(t, w, page)
	})
	mux.HandleFunc("GET /repos/alice/{repo}/commits/{sha}", func(w http.ResponseWriter, r *http.Request) {
		patchCalls.Add(1)
		_, _ = w.Write([]byte("patch " + r.PathValue("sha")))
	})

	client, _ := newTestClient(t, mux)

	history, err := client.FetchHistory(t.Context(), "alice")
	require.NoError(t, err)

	require.Len(t, history.Commits, 70)
	assert.Len(t, history.Repositories, 2)
	assert.Equal(t, ghclient.DefaultPatchLimit, history.Patches)
	assert.Equal(t, int32(ghclient.DefaultPatchLimit), patchCalls.Load())

	for i := 1; i < len(history.Commits); i++ {
		assert.False(t, history.Commits[i].Date.After(history.Commits[i-1].Date), "commit %d is newer than its predecessor", i)
	}

	for i, c := range history.Commits {
		if i < ghclient.DefaultPatchLimit {
			assert.Equal(t, "patch "+c.SHA, c.Patch)
		} else {
			assert.Empty(t, c.Patch)
		}
	}
}

func TestFetchHistory_PatchLimitOverride(t *testing.T) {
	var patchCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/bob/repos", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			writeJSON(t, w, []repoJSON{})
			return
		}
		writeJSON(t, w, []repoJSON{{Name: "r", Owner: userJSON{Login: "bob"}}})
	})
	mux.HandleFunc("GET /repos/bob/r/commits", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			writeJSON(t, w, []commitJSON{})
			return
		}
		writeJSON(t, w, []commitJSON{
			{SHA: "a", Commit: commitBodyJSON{Author: authorJSON{Date: "2024-01-01T00:00:00Z"}}},
			{SHA: "b", Commit: commitBodyJSON{Author: authorJSON{Date: "2024-01-02T00:00:00Z"}}},
			{SHA: "c", Commit: commitBodyJSON{Author: authorJSON{Date: "2024-01-03T00:00:00Z"}}},
		})
	})
	mux.HandleFunc("GET /repos/bob/r/commits/{sha}", func(w http.ResponseWriter, _ *http.Request) {
		patchCalls.Add(1)
		_, _ = w.Write([]byte("diff"))
	})

	client, _ := newTestClient(t, mux)
	client.PatchLimit = 2

	history, err := client.FetchHistory(t.Context(), "bob")
	require.NoError(t, err)
	require.Len(t, history.Commits, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{history.Commits[0].SHA, history.Commits[1].SHA, history.Commits[2].SHA})
	assert.Equal(t, int32(2), patchCalls.Load())
	assert.Empty(t, history.Commits[2].Patch)
}

func TestSortCommitsIsStable(t *testing.T) {
	t.Parallel()

	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	commits := []ghclient.Commit{
		{SHA: "a", Date: day(1)},
		{SHA: "b", Date: day(3)},
		{SHA: "c", Date: day(1)},
		{SHA: "d", Date: day(3)},
		{SHA: "e", Date: day(2)},
	}

	ghclient.SortCommits(commits)

	got := make([]string, len(commits))
	for i, c := range commits {
		got[i] = c.SHA
	}
	assert.Equal(t, []string{"b", "d", "e", "a", "c"}, got)
}
