package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"bodycheck/internal/models"
)

type RecordsResponse struct {
	Items []models.MemberRecord `json:"items"`
}

func (s *Server) ListRecords(w http.ResponseWriter, r *http.Request) {
	items := s.History.Search(r.Context(), r.URL.Query().Get("q"))
	WriteJSON(w, http.StatusOK, RecordsResponse{Items: items})
}

func (s *Server) GetRecord(w http.ResponseWriter, r *http.Request) {
	record, err := s.History.Get(r.Context(), chi.URLParam(r, "recordId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, record)
}

// DeleteRecord requires ?confirm=true, mirroring the confirmation dialog.
func (s *Server) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	confirmed := r.URL.Query().Get("confirm") == "true"
	if err := s.History.Delete(r.Context(), chi.URLParam(r, "recordId"), confirmed); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
