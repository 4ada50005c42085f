package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"tasklane.org/internal/audit"
	"tasklane.org/internal/auth"
	"tasklane.org/internal/project"
)

// imagePayload mirrors the client-facing image shape.
type imagePayload struct {
	URL     string `json:"imageUrl"`
	FullURL string `json:"imageFullUrl"`
}

func (p imagePayload) toImage() project.Image {
	return project.Image{URL: p.URL, FullURL: p.FullURL}
}

func (a *API) handleCreateOrg(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var req struct {
		Title       string       `json:"title"`
		Description string       `json:"description"`
		Color       string       `json:"color"`
		Image       imagePayload `json:"image"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	org, err := a.projects.CreateOrganization(r.Context(), id.UserID, project.CreateOrganizationInput{
		Title:       req.Title,
		Description: req.Description,
		Color:       req.Color,
		Image:       req.Image.toImage(),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "org.created", map[string]any{
		"organization_id": org.ID,
		"slug":            org.Slug,
	})
	writeJSON(w, http.StatusCreated, org)
}

func (a *API) handleListOrgs(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	orgs, err := a.projects.ListOrganizations(r.Context(), id.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if orgs == nil {
		orgs = []project.OrganizationSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"organizations": orgs})
}

func (a *API) handleSearchOrgs(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	orgs, err := a.projects.SearchOrganizations(r.Context(), id.UserID, r.URL.Query().Get("title"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if orgs == nil {
		orgs = []*project.Organization{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"organizations": orgs})
}

func (a *API) handleGetOrg(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	org, err := a.projects.GetOrganization(r.Context(), id.UserID, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (a *API) handleGetOrgBySlug(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	org, err := a.projects.GetOrganizationBySlug(r.Context(), id.UserID, mux.Vars(r)["slug"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (a *API) handleUpdateOrg(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var req struct {
		Title       *string       `json:"title"`
		Slug        *string       `json:"slug"`
		Description *string       `json:"description"`
		Color       *string       `json:"color"`
		Image       *imagePayload `json:"image"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	upd := project.OrganizationUpdate{
		Title:       req.Title,
		Slug:        req.Slug,
		Description: req.Description,
		Color:       req.Color,
	}
	if req.Image != nil {
		img := req.Image.toImage()
		upd.Image = &img
	}
	org, err := a.projects.UpdateOrganization(r.Context(), id.UserID, mux.Vars(r)["id"], upd)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (a *API) handleDeleteOrg(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	orgID := mux.Vars(r)["id"]
	if err := a.projects.DeleteOrganization(r.Context(), id.UserID, orgID); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "org.deleted", map[string]any{"organization_id": orgID})
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

func (a *API) handleInviteToOrg(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var req struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	role := auth.OrgRoleMember
	if req.Role != "" {
		parsed, err := auth.ParseOrgRole(req.Role)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		role = parsed
	}
	orgID := mux.Vars(r)["id"]
	if err := a.projects.InviteToOrganization(r.Context(), id.UserID, orgID, req.UserID, role); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "org.member_invited", map[string]any{
		"organization_id": orgID,
		"invitee_id":      req.UserID,
		"role":            string(role),
	})
	writeJSON(w, http.StatusCreated, map[string]any{"status": "invited"})
}

func (a *API) handleUpdateOrgRole(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var req struct {
		Role string `json:"role"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	role, err := auth.ParseOrgRole(req.Role)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	vars := mux.Vars(r)
	if err := a.projects.UpdateOrganizationRole(r.Context(), id.UserID, vars["id"], vars["userID"], role); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "org.role_changed", map[string]any{
		"organization_id": vars["id"],
		"member_id":       vars["userID"],
		"role":            string(role),
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "updated"})
}

func (a *API) handleRemoveFromOrg(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	if err := a.projects.RemoveFromOrganization(r.Context(), id.UserID, vars["id"], vars["userID"]); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "org.member_removed", map[string]any{
		"organization_id": vars["id"],
		"member_id":       vars["userID"],
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "removed"})
}
