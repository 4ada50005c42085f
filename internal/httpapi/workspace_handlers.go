package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"tasklane.org/internal/audit"
	"tasklane.org/internal/auth"
	"tasklane.org/internal/project"
)

func (a *API) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var req struct {
		Title       string       `json:"title"`
		Description string       `json:"description"`
		Image       imagePayload `json:"image"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	orgID := mux.Vars(r)["id"]
	ws, err := a.projects.CreateWorkspace(r.Context(), id.UserID, orgID, project.CreateWorkspaceInput{
		Title:       req.Title,
		Description: req.Description,
		Image:       req.Image.toImage(),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "workspace.created", map[string]any{
		"organization_id": orgID,
		"workspace_id":    ws.ID,
		"slug":            ws.Slug,
	})
	writeJSON(w, http.StatusCreated, ws)
}

func (a *API) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	workspaces, err := a.projects.ListWorkspaces(r.Context(), id.UserID, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if workspaces == nil {
		workspaces = []project.WorkspaceSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"workspaces": workspaces})
}

func (a *API) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	ws, err := a.projects.GetWorkspace(r.Context(), id.UserID, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (a *API) handleGetWorkspaceBySlug(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	ws, err := a.projects.GetWorkspaceBySlug(r.Context(), id.UserID, mux.Vars(r)["slug"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (a *API) handleUpdateWorkspace(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var req struct {
		Title       *string       `json:"title"`
		Description *string       `json:"description"`
		Image       *imagePayload `json:"image"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	upd := project.WorkspaceUpdate{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.Image != nil {
		img := req.Image.toImage()
		upd.Image = &img
	}
	ws, err := a.projects.UpdateWorkspace(r.Context(), id.UserID, mux.Vars(r)["id"], upd)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (a *API) handleDeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	wsID := mux.Vars(r)["id"]
	if err := a.projects.DeleteWorkspace(r.Context(), id.UserID, wsID); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "workspace.deleted", map[string]any{"workspace_id": wsID})
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

func (a *API) handleInviteToWorkspace(w http.ResponseWriter, r *http.Request) {
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
	role := auth.WorkspaceRoleDeveloper
	if req.Role != "" {
		parsed, err := auth.ParseWorkspaceRole(req.Role)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		role = parsed
	}
	wsID := mux.Vars(r)["id"]
	if err := a.projects.InviteToWorkspace(r.Context(), id.UserID, wsID, req.UserID, role); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "workspace.member_invited", map[string]any{
		"workspace_id": wsID,
		"invitee_id":   req.UserID,
		"role":         string(role),
	})
	writeJSON(w, http.StatusCreated, map[string]any{"status": "invited"})
}

func (a *API) handleUpdateWorkspaceRole(w http.ResponseWriter, r *http.Request) {
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
	role, err := auth.ParseWorkspaceRole(req.Role)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	vars := mux.Vars(r)
	if err := a.projects.UpdateWorkspaceRole(r.Context(), id.UserID, vars["id"], vars["userID"], role); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "workspace.role_changed", map[string]any{
		"workspace_id": vars["id"],
		"member_id":    vars["userID"],
		"role":         string(role),
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "updated"})
}

func (a *API) handleRemoveFromWorkspace(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	if err := a.projects.RemoveFromWorkspace(r.Context(), id.UserID, vars["id"], vars["userID"]); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "workspace.member_removed", map[string]any{
		"workspace_id": vars["id"],
		"member_id":    vars["userID"],
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "removed"})
}
