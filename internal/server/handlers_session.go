package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/DFN-master/izing-main/internal/accounts"
	"github.com/DFN-master/izing-main/internal/wbot"
	"github.com/DFN-master/izing-main/pkg/types"
)

// startSessionTimeout bounds how long a re-pairing attempt may wait for a
// terminal lifecycle event before the attempt is abandoned.
const startSessionTimeout = 3 * time.Minute

// SessionStatus combines the durable record with the live-handle view.
type SessionStatus struct {
	Account *types.Account `json:"account"`
	// Live reports whether a handle exists in the registry right now.
	Live bool `json:"live"`
	// LiveStatus is the handle's last observed lifecycle status; a handle
	// can be live but still pairing.
	LiveStatus string `json:"liveStatus,omitempty"`
}

func (s *Server) sessionID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "sessionID"))
	if err != nil {
		return 0, false
	}
	return id, true
}

func (s *Server) statusFor(acc *types.Account) SessionStatus {
	st := SessionStatus{Account: acc}
	if sess, err := s.store.Lookup(acc.ID); err == nil {
		st.Live = true
		st.LiveStatus = sess.Status()
	}
	return st
}

// listSessions returns every account record with its live-handle state.
func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	list, err := s.accounts.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	out := make([]SessionStatus, 0, len(list))
	for _, acc := range list {
		out = append(out, s.statusFor(acc))
	}
	writeJSON(w, http.StatusOK, out)
}

// getSession returns one account record with its live-handle state.
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "sessionID must be an integer")
		return
	}

	acc, err := s.accounts.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "no such session")
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, s.statusFor(acc))
}

// deleteSession is the administrative teardown: the live handle is removed
// from the registry, the auth cache purged so the next start re-pairs from
// scratch, and the record marked disconnected.
func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "sessionID must be an integer")
		return
	}

	acc, err := s.accounts.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "no such session")
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	s.store.Remove(id)
	s.fs.PurgeAuthCache(id)

	err = s.accounts.Update(r.Context(), acc, types.AccountUpdate{
		Status:  types.Ptr(types.StatusDisconnected),
		QRCode:  types.Ptr(""),
		Session: types.Ptr(""),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	s.bus.Emit(acc.TenantID, types.ActionUpdate, acc)

	s.log.Info().Int("sessionId", id).Msg("session removed by administrative request")
	writeSuccess(w)
}

// startSession kicks off a (re-)pairing attempt in the background and
// returns immediately; progress is observable through the event stream.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "sessionID must be an integer")
		return
	}

	acc, err := s.accounts.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "no such session")
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), startSessionTimeout)
		defer cancel()

		if _, err := s.manager.StartSession(ctx, acc); err != nil {
			if errors.Is(err, wbot.ErrAuthFailure) {
				s.log.Warn().Int("sessionId", id).Msg("session start rejected: authentication failure")
				return
			}
			s.log.Error().Err(err).Int("sessionId", id).Msg("session start failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]bool{"starting": true})
}

// healthz reports process liveness.
func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
