package handler

import (
	"errors"
	"net/http"

	"github.com/joestump/folio/internal/auth"
	"github.com/joestump/folio/internal/profilecache"
	"github.com/joestump/folio/internal/store"
)

// OnboardingPage asks a new user whether they are a company or a creative.
type OnboardingPage struct {
	BasePage
	Error string
}

// AccountHandler serves onboarding and profile editing.
type AccountHandler struct {
	users    *store.UserStore
	profiles *profilecache.Cache
	scope    *sessionScope
}

// Onboarding renders GET /onboarding. Users who already chose are sent on.
func (h *AccountHandler) Onboarding(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if !user.NeedsOnboarding() {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	renderPage(w, r, "onboarding.html", OnboardingPage{BasePage: newBasePage(user)})
}

// CompleteOnboarding handles POST /onboarding with form field account_type.
func (h *AccountHandler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if !user.NeedsOnboarding() {
		redirect(w, r, "/dashboard")
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	updated, err := h.users.SetAccountType(r.Context(), user.ID, r.FormValue("account_type"))
	if errors.Is(err, store.ErrAccountTypeSet) {
		h.profiles.Invalidate(user.ID)
		redirect(w, r, "/dashboard")
		return
	}
	if errors.Is(err, store.ErrInvalidAccountType) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		renderPage(w, r, "onboarding.html", OnboardingPage{BasePage: newBasePage(user), Error: "Choose company or creative."})
		return
	}
	if err != nil {
		http.Error(w, "could not save account type", http.StatusInternalServerError)
		return
	}
	h.profiles.Invalidate(user.ID)
	h.scope.inbox(r, updated).Success("Welcome to folio!")
	redirect(w, r, "/u/"+updated.Slug)
}

// ProfileEditPage is the template data for the profile edit form.
type ProfileEditPage struct {
	BasePage
	Form  store.ProfileUpdate
	Error string
}

// EditProfile renders GET /dashboard/profile.
func (h *AccountHandler) EditProfile(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	renderPage(w, r, "profile_edit.html", ProfileEditPage{
		BasePage: newBasePage(user),
		Form: store.ProfileUpdate{
			DisplayName: user.DisplayName,
			Bio:         user.Bio,
			Website:     user.Website,
			Location:    user.Location,
		},
	})
}

// UpdateProfile handles POST /dashboard/profile. The slug never changes.
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	form := store.ProfileUpdate{
		DisplayName: r.FormValue("display_name"),
		Bio:         r.FormValue("bio"),
		Website:     r.FormValue("website"),
		Location:    r.FormValue("location"),
	}
	updated, err := h.users.UpdateProfile(r.Context(), user.ID, form)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		renderPage(w, r, "profile_edit.html", ProfileEditPage{BasePage: newBasePage(user), Form: form, Error: "Failed to update profile"})
		return
	}
	h.profiles.Put(updated)
	h.scope.inbox(r, updated).Success("Profile updated successfully!")
	redirect(w, r, "/u/"+updated.Slug)
}
