package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/joestump/folio/internal/auth"
	"github.com/joestump/folio/internal/store"
)

type jobsAPIHandler struct {
	jobs      *store.JobStore
	favorites *store.FavoriteStore
}

// Search handles GET /api/jobs?q=&location=&type=&remote=.
//
// @Summary      Search jobs
// @Description  Returns published jobs, plus the caller's own drafts, oldest first.
// @Tags         Jobs
// @Produce      json
// @Param        q         query     string  false  "Text in title or description"
// @Param        location  query     string  false  "Text in location"
// @Param        type      query     string  false  "Employment type"
// @Param        remote    query     bool    false  "Remote jobs only"
// @Success      200       {object}  JobListResponse
// @Failure      401       {object}  ErrorResponse
// @Security     BearerToken
// @Router       /jobs [get]
func (h *jobsAPIHandler) Search(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	q := r.URL.Query()
	remote, _ := strconv.ParseBool(q.Get("remote"))

	jobs, err := h.jobs.Search(r.Context(), store.JobFilter{
		Query:          q.Get("q"),
		Location:       q.Get("location"),
		EmploymentType: q.Get("type"),
		RemoteOnly:     remote,
		ViewerID:       user.ID,
	})
	if err != nil {
		log.Printf("api: search jobs: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
		return
	}
	favs, err := h.favorites.ListJobIDs(r.Context(), user.ID)
	if err != nil {
		log.Printf("api: list favorites of %s: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
		return
	}
	writeJSON(w, http.StatusOK, jobList(jobs, favs))
}

// ListFavorites handles GET /api/favorites.
//
// @Summary      List favorite jobs
// @Tags         Favorites
// @Produce      json
// @Success      200  {object}  JobListResponse
// @Failure      401  {object}  ErrorResponse
// @Security     BearerToken
// @Router       /favorites [get]
func (h *jobsAPIHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	jobs, err := h.favorites.ListJobs(r.Context(), user.ID)
	if err != nil {
		log.Printf("api: list favorite jobs of %s: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
		return
	}
	all := make(map[string]bool, len(jobs))
	for _, j := range jobs {
		all[j.ID] = true
	}
	writeJSON(w, http.StatusOK, jobList(jobs, all))
}

// AddFavorite handles PUT /api/favorites/{jobID}. Adding twice is not an error.
//
// @Summary      Favorite a job
// @Tags         Favorites
// @Param        jobID  path  string  true  "Job ID"
// @Success      204
// @Failure      401    {object}  ErrorResponse
// @Failure      404    {object}  ErrorResponse
// @Security     BearerToken
// @Router       /favorites/{jobID} [put]
func (h *jobsAPIHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	job, ok := h.visibleJob(w, r, user)
	if !ok {
		return
	}
	if err := h.favorites.Add(r.Context(), user.ID, job.ID); err != nil {
		log.Printf("api: add favorite: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveFavorite handles DELETE /api/favorites/{jobID}. Removing a job that
// is not a favorite is not an error.
//
// @Summary      Unfavorite a job
// @Tags         Favorites
// @Param        jobID  path  string  true  "Job ID"
// @Success      204
// @Failure      401    {object}  ErrorResponse
// @Security     BearerToken
// @Router       /favorites/{jobID} [delete]
func (h *jobsAPIHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if err := h.favorites.Remove(r.Context(), user.ID, chi.URLParam(r, "jobID")); err != nil {
		log.Printf("api: remove favorite: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// visibleJob loads {jobID}. Drafts are only visible to the company that owns
// them; anyone else gets a 404.
func (h *jobsAPIHandler) visibleJob(w http.ResponseWriter, r *http.Request, user *store.User) (*store.Job, bool) {
	job, err := h.jobs.GetByID(r.Context(), chi.URLParam(r, "jobID"))
	if errors.Is(err, store.ErrNotFound) || (err == nil && !job.IsPublished() && job.CompanyID != user.ID) {
		writeError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
		return nil, false
	}
	if err != nil {
		log.Printf("api: get job: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
		return nil, false
	}
	return job, true
}

func jobList(jobs []*store.Job, favorites map[string]bool) JobListResponse {
	out := make([]JobResponse, len(jobs))
	for i, j := range jobs {
		resp := JobResponse{
			ID:             j.ID,
			CompanyID:      j.CompanyID,
			Title:          j.Title,
			Description:    j.Description,
			Location:       j.Location,
			EmploymentType: j.EmploymentType,
			Remote:         j.Remote,
			Status:         j.Status,
			Favorite:       favorites[j.ID],
			CreatedAt:      j.CreatedAt,
		}
		if j.PublishedAt.Valid {
			t := j.PublishedAt.Time
			resp.PublishedAt = &t
		}
		out[i] = resp
	}
	return JobListResponse{Jobs: out}
}
