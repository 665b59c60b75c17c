package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/joestump/folio/internal/store"
)

func TestJobs_CreatePublishAndSearch(t *testing.T) {
	env := newHandlerTestEnv(t)
	acme := env.user(t, "Acme", store.AccountCompany)
	company := env.login(t, acme.ID)
	creative := env.login(t, env.user(t, "Ada", store.AccountCreative).ID)

	rec := env.do(t, http.MethodPost, "/dashboard/jobs", company, url.Values{
		"title": {"Brand Designer"}, "description": {"Design things"}, "location": {"Berlin"},
		"employment_type": {"contract"},
	}, false)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("create draft = %d", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/dashboard/jobs", company, url.Values{
		"title": {"Photographer"}, "description": {"Take photos"}, "remote": {"on"}, "publish": {"1"},
	}, false)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("create published = %d", rec.Code)
	}

	body := env.do(t, http.MethodGet, "/jobs", creative, nil, false).Body.String()
	if !strings.Contains(body, "Photographer") || strings.Contains(body, "Brand Designer") {
		t.Errorf("creative search shows wrong jobs")
	}
	body = env.do(t, http.MethodGet, "/jobs", company, nil, false).Body.String()
	if !strings.Contains(body, "Brand Designer") {
		t.Errorf("company does not see its own draft")
	}
	body = env.do(t, http.MethodGet, "/jobs?remote=1", creative, nil, false).Body.String()
	if !strings.Contains(body, "Photographer") {
		t.Errorf("remote filter dropped the remote job")
	}

	drafts, err := env.jobs.Search(context.Background(), store.JobFilter{Query: "brand", ViewerID: acme.ID})
	if err != nil || len(drafts) != 1 {
		t.Fatalf("Search = %v, %v", drafts, err)
	}
	if rec := env.do(t, http.MethodGet, "/jobs/"+drafts[0].ID, creative, nil, false); rec.Code != http.StatusNotFound {
		t.Errorf("draft detail for outsider = %d, want 404", rec.Code)
	}

	rec = env.do(t, http.MethodPut, "/dashboard/jobs/"+drafts[0].ID, company, url.Values{
		"title": {"Brand Designer"}, "description": {"Design things"}, "employment_type": {"contract"}, "publish": {"1"},
	}, true)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("publish = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/jobs/"+drafts[0].ID, creative, nil, false); rec.Code != http.StatusOK {
		t.Errorf("published detail = %d, want 200", rec.Code)
	}
}

func TestJobs_ToggleFavorite(t *testing.T) {
	env := newHandlerTestEnv(t)
	acme := env.user(t, "Acme", store.AccountCompany)
	ctx := context.Background()
	job, err := env.jobs.Create(ctx, acme.ID, store.JobFields{Title: "Illustrator", Description: "Draw"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := env.jobs.Publish(ctx, job.ID); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	cookie := env.login(t, env.user(t, "Ada", store.AccountCreative).ID)

	rec := env.do(t, http.MethodPost, "/jobs/"+job.ID+"/favorite", cookie, url.Values{}, true)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Saved") {
		t.Fatalf("favorite = %d %q", rec.Code, rec.Body)
	}
	rec = env.do(t, http.MethodPost, "/jobs/"+job.ID+"/favorite", cookie, url.Values{}, true)
	if rec.Code != http.StatusOK || strings.Contains(rec.Body.String(), "Saved") {
		t.Errorf("unfavorite = %d %q", rec.Code, rec.Body)
	}
}
