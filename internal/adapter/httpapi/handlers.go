package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tejashwikalptaru/archiveplayer/internal/domain"
)

// maxBodySize bounds request bodies; the API only accepts tiny JSON objects.
const maxBodySize = 4 << 10

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	c, _ := s.catalogs.Catalog()
	writeJSON(w, http.StatusOK, newCatalogDTO(c))
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newSessionDTO(s.player.Snapshot()))
}

func (s *Server) handleDispose(w http.ResponseWriter, r *http.Request) {
	_ = s.player.Dispose()
	writeJSON(w, http.StatusOK, newSessionDTO(s.player.Snapshot()))
}

func (s *Server) handlePlayTrack(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorDTO{Error: "track index must be an integer"})
		return
	}
	s.respond(w, s.player.PlayTrack(index))
}

func (s *Server) handleTransport(w http.ResponseWriter, r *http.Request) {
	var err error
	switch chi.URLParam(r, "action") {
	case "toggle":
		err = s.player.TogglePlay()
	case "next":
		err = s.player.PlayNext()
	case "previous":
		err = s.player.PlayPrevious()
	default:
		writeJSON(w, http.StatusNotFound, errorDTO{Error: "unknown transport action"})
		return
	}
	s.respond(w, err)
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.respond(w, s.player.Seek(*req.Fraction))
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.respond(w, s.player.SetVolume(*req.Level))
}

// respond writes the session snapshot on success, or maps err to a status.
func (s *Server) respond(w http.ResponseWriter, err error) {
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionDTO(s.player.Snapshot()))
}

// decode reads and validates a JSON body, answering 400 itself on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorDTO{Error: "invalid JSON body: " + err.Error()})
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		resp := errorDTO{Error: "validation failed", Fields: map[string]string{}}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				resp.Fields[jsonName(fe.Field())] = fe.Tag()
			}
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var perr *domain.PlaybackError
	switch {
	case errors.Is(err, domain.ErrInvalidIndex):
		writeJSON(w, http.StatusNotFound, errorDTO{Error: err.Error()})
	case errors.Is(err, domain.ErrNoCatalog):
		writeNotice(w, err)
	case errors.Is(err, domain.ErrSessionClosed):
		writeJSON(w, http.StatusServiceUnavailable, errorDTO{Error: err.Error()})
	case errors.As(err, &perr):
		writeJSON(w, http.StatusBadGateway, errorDTO{Error: err.Error()})
	default:
		s.logger.Error("request failed", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, errorDTO{Error: "internal error"})
	}
}

// jsonName maps request struct field names to their JSON keys.
func jsonName(field string) string {
	switch field {
	case "Fraction":
		return "fraction"
	case "Level":
		return "level"
	}
	return field
}

func writeNotice(w http.ResponseWriter, err error) {
	n := domain.DefaultAccessNotice
	writeJSON(w, http.StatusServiceUnavailable, noticeDTO{
		Error:  err.Error(),
		Notice: linkDTO{Text: n.Message, LinkText: n.LinkText, LinkURL: n.LinkURL},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
