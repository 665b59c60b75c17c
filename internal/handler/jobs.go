package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joestump/folio/internal/auth"
	"github.com/joestump/folio/internal/metrics"
	"github.com/joestump/folio/internal/store"
)

// JobCard is the data for the job_card fragment.
type JobCard struct {
	Job      *store.Job
	Favorite bool
	SignedIn bool
}

// JobsPage is the template data for the job search page.
type JobsPage struct {
	BasePage
	Filter          store.JobFilter
	Cards           []JobCard
	EmploymentTypes []string
}

// JobDetailPage is the template data for a single job.
type JobDetailPage struct {
	BasePage
	Card    JobCard
	IsOwner bool
}

// JobFormPage is the template data for the new/edit job forms.
type JobFormPage struct {
	BasePage
	Job             *store.Job // nil when creating
	Form            store.JobFields
	EmploymentTypes []string
	Error           string
}

// CompanyJobsPage lists a company's own jobs, drafts included.
type CompanyJobsPage struct {
	BasePage
	Jobs []*store.Job
}

// JobsHandler serves job search, favorites and company job management.
type JobsHandler struct {
	jobs      *store.JobStore
	favorites *store.FavoriteStore
	scope     *sessionScope
}

// Search renders GET /jobs?q=&location=&type=&remote=.
func (h *JobsHandler) Search(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	q := r.URL.Query()
	filter := store.JobFilter{
		Query:          q.Get("q"),
		Location:       q.Get("location"),
		EmploymentType: q.Get("type"),
		RemoteOnly:     q.Get("remote") == "1" || q.Get("remote") == "true",
	}
	var favs map[string]bool
	if user != nil {
		filter.ViewerID = user.ID
		var err error
		if favs, err = h.favorites.ListJobIDs(r.Context(), user.ID); err != nil {
			log.Printf("handler: list favorites of %s: %v", user.ID, err)
		}
	}

	jobs, err := h.jobs.Search(r.Context(), filter)
	if err != nil {
		log.Printf("handler: search jobs: %v", err)
		http.Error(w, "could not search jobs", http.StatusInternalServerError)
		return
	}
	cards := make([]JobCard, len(jobs))
	for i, j := range jobs {
		cards[i] = JobCard{Job: j, Favorite: favs[j.ID], SignedIn: user != nil}
	}

	renderPage(w, r, "jobs/index.html", JobsPage{
		BasePage:        newBasePage(user),
		Filter:          filter,
		Cards:           cards,
		EmploymentTypes: store.EmploymentTypes,
	})
}

// Detail renders GET /jobs/{id}. Drafts are visible only to their company.
func (h *JobsHandler) Detail(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	job, ok := h.visibleJob(w, r, user)
	if !ok {
		return
	}
	card := JobCard{Job: job, SignedIn: user != nil}
	if user != nil {
		card.Favorite, _ = h.favorites.Has(r.Context(), user.ID, job.ID)
	}
	renderPage(w, r, "jobs/detail.html", JobDetailPage{
		BasePage: newBasePage(user),
		Card:     card,
		IsOwner:  user != nil && user.ID == job.CompanyID,
	})
}

// ToggleFavorite handles POST /jobs/{id}/favorite and returns the updated card.
func (h *JobsHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	job, ok := h.visibleJob(w, r, user)
	if !ok {
		return
	}
	has, err := h.favorites.Has(r.Context(), user.ID, job.ID)
	if err == nil {
		if has {
			err = h.favorites.Remove(r.Context(), user.ID, job.ID)
		} else {
			err = h.favorites.Add(r.Context(), user.ID, job.ID)
		}
	}
	if err != nil {
		log.Printf("handler: toggle favorite %s for %s: %v", job.ID, user.ID, err)
		http.Error(w, "could not update favorites", http.StatusInternalServerError)
		return
	}
	card := JobCard{Job: job, Favorite: !has, SignedIn: true}
	if isHTMX(r) {
		renderFragment(w, "job_card", card)
		return
	}
	http.Redirect(w, r, "/jobs/"+job.ID, http.StatusSeeOther)
}

// Mine renders GET /dashboard/jobs for a company.
func (h *JobsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	jobs, err := h.jobs.ListByCompany(r.Context(), user.ID)
	if err != nil {
		http.Error(w, "could not load jobs", http.StatusInternalServerError)
		return
	}
	renderPage(w, r, "jobs/mine.html", CompanyJobsPage{BasePage: newBasePage(user), Jobs: jobs})
}

// New renders the create-job form.
func (h *JobsHandler) New(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	renderPage(w, r, "jobs/form.html", JobFormPage{
		BasePage:        newBasePage(user),
		EmploymentTypes: store.EmploymentTypes,
	})
}

// Create handles POST /dashboard/jobs. Jobs start as drafts; publish=1
// publishes immediately ("Save and Publish").
func (h *JobsHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	form := jobFormFromRequest(r)
	job, err := h.jobs.Create(r.Context(), user.ID, form)
	if err != nil {
		h.formError(w, r, user, nil, form, err)
		return
	}
	if r.FormValue("publish") == "1" {
		if job, err = h.publish(r, job); err != nil {
			log.Printf("handler: publish job %s: %v", job.ID, err)
		}
	}
	h.scope.inbox(r, user).Success("Job saved successfully!")
	redirect(w, r, "/dashboard/jobs")
}

// Edit renders the edit form for one of the company's jobs.
func (h *JobsHandler) Edit(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	job, ok := h.ownedJob(w, r, user)
	if !ok {
		return
	}
	renderPage(w, r, "jobs/form.html", JobFormPage{
		BasePage: newBasePage(user),
		Job:      job,
		Form: store.JobFields{
			Title:          job.Title,
			Description:    job.Description,
			Location:       job.Location,
			EmploymentType: job.EmploymentType,
			Remote:         job.Remote,
		},
		EmploymentTypes: store.EmploymentTypes,
	})
}

// Update handles PUT /dashboard/jobs/{id}. publish=1 publishes the job and
// unpublish=1 returns it to draft.
func (h *JobsHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	job, ok := h.ownedJob(w, r, user)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	form := jobFormFromRequest(r)
	updated, err := h.jobs.Update(r.Context(), job.ID, form)
	if err != nil {
		h.formError(w, r, user, job, form, err)
		return
	}
	switch {
	case r.FormValue("publish") == "1":
		_, err = h.publish(r, updated)
	case r.FormValue("unpublish") == "1":
		_, err = h.jobs.Unpublish(r.Context(), updated.ID)
	}
	if err != nil {
		log.Printf("handler: change status of job %s: %v", job.ID, err)
		h.scope.inbox(r, user).Error("Failed to change the job status")
	} else {
		h.scope.inbox(r, user).Success("Job updated successfully!")
	}
	redirect(w, r, "/dashboard/jobs")
}

// Delete handles DELETE /dashboard/jobs/{id}.
func (h *JobsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	job, ok := h.ownedJob(w, r, user)
	if !ok {
		return
	}
	if err := h.jobs.Delete(r.Context(), job.ID); err != nil {
		log.Printf("handler: delete job %s: %v", job.ID, err)
		h.scope.inbox(r, user).Error("Failed to delete job")
	} else {
		h.scope.inbox(r, user).Success("Job deleted successfully!")
	}
	redirect(w, r, "/dashboard/jobs")
}

func (h *JobsHandler) publish(r *http.Request, job *store.Job) (*store.Job, error) {
	if job.IsPublished() {
		return job, nil
	}
	published, err := h.jobs.Publish(r.Context(), job.ID)
	if err != nil {
		return job, err
	}
	metrics.JobsPublishedTotal.Inc()
	return published, nil
}

func jobFormFromRequest(r *http.Request) store.JobFields {
	return store.JobFields{
		Title:          r.FormValue("title"),
		Description:    r.FormValue("description"),
		Location:       r.FormValue("location"),
		EmploymentType: r.FormValue("employment_type"),
		Remote:         r.FormValue("remote") == "on" || r.FormValue("remote") == "1",
	}
}

// visibleJob loads {id}, answering 404 for drafts of other companies.
func (h *JobsHandler) visibleJob(w http.ResponseWriter, r *http.Request, user *store.User) (*store.Job, bool) {
	job, err := h.jobs.GetByID(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) || (err == nil && !job.IsPublished() && (user == nil || job.CompanyID != user.ID)) {
		notFound(w, r, user, "job")
		return nil, false
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	return job, true
}

func (h *JobsHandler) ownedJob(w http.ResponseWriter, r *http.Request, user *store.User) (*store.Job, bool) {
	job, err := h.jobs.GetByID(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		notFound(w, r, user, "job")
		return nil, false
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	if job.CompanyID != user.ID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return nil, false
	}
	return job, true
}

func (h *JobsHandler) formError(w http.ResponseWriter, r *http.Request, user *store.User, job *store.Job, form store.JobFields, err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, store.ErrMissingField), errors.Is(err, store.ErrInvalidEmploymentType):
		w.WriteHeader(http.StatusUnprocessableEntity)
	default:
		log.Printf("handler: save job for %s: %v", user.ID, err)
		msg = "Failed to save job"
		w.WriteHeader(http.StatusInternalServerError)
	}
	renderPage(w, r, "jobs/form.html", JobFormPage{
		BasePage:        newBasePage(user),
		Job:             job,
		Form:            form,
		EmploymentTypes: store.EmploymentTypes,
		Error:           msg,
	})
}
