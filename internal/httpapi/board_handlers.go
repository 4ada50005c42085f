package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"tasklane.org/internal/audit"
	"tasklane.org/internal/project"
)

const boardDateLayout = "2006-01-02"

// parseBoardDate accepts a YYYY-MM-DD date; empty means absent.
func parseBoardDate(w http.ResponseWriter, field, raw string) (*time.Time, bool) {
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(boardDateLayout, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", field+" must be a YYYY-MM-DD date")
		return nil, false
	}
	return &t, true
}

func (a *API) handleCreateBoard(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var req struct {
		Title     string       `json:"title"`
		Type      string       `json:"type"`
		Image     imagePayload `json:"image"`
		StartDate string       `json:"start_date"`
		EndDate   string       `json:"end_date"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	start, ok := parseBoardDate(w, "start_date", req.StartDate)
	if !ok {
		return
	}
	end, ok := parseBoardDate(w, "end_date", req.EndDate)
	if !ok {
		return
	}
	wsID := mux.Vars(r)["id"]
	board, err := a.projects.CreateBoard(r.Context(), id.UserID, wsID, project.CreateBoardInput{
		Title:     req.Title,
		Type:      project.BoardType(req.Type),
		Image:     req.Image.toImage(),
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "board.created", map[string]any{
		"workspace_id": wsID,
		"board_id":     board.ID,
		"type":         string(board.Type),
	})
	writeJSON(w, http.StatusCreated, board)
}

func (a *API) handleListBoards(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	boards, err := a.projects.ListBoards(r.Context(), id.UserID, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if boards == nil {
		boards = []*project.Board{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"boards": boards})
}

func (a *API) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	board, err := a.projects.GetBoard(r.Context(), id.UserID, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (a *API) handleUpdateBoard(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var req struct {
		Title     *string       `json:"title"`
		Status    *string       `json:"status"`
		Image     *imagePayload `json:"image"`
		StartDate *string       `json:"start_date"`
		EndDate   *string       `json:"end_date"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	upd := project.BoardUpdate{Title: req.Title}
	if req.Status != nil {
		status := project.BoardStatus(*req.Status)
		if status != project.BoardUncompleted && status != project.BoardCompleted {
			writeError(w, http.StatusBadRequest, "invalid_input", "status must be uncompleted or completed")
			return
		}
		upd.Status = &status
	}
	if req.Image != nil {
		img := req.Image.toImage()
		upd.Image = &img
	}
	if req.StartDate != nil {
		start, ok := parseBoardDate(w, "start_date", *req.StartDate)
		if !ok {
			return
		}
		upd.StartDate = start
	}
	if req.EndDate != nil {
		end, ok := parseBoardDate(w, "end_date", *req.EndDate)
		if !ok {
			return
		}
		upd.EndDate = end
	}
	board, err := a.projects.UpdateBoard(r.Context(), id.UserID, mux.Vars(r)["id"], upd)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (a *API) handleDeleteBoard(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	boardID := mux.Vars(r)["id"]
	if err := a.projects.DeleteBoard(r.Context(), id.UserID, boardID); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "board.deleted", map[string]any{"board_id": boardID})
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}
