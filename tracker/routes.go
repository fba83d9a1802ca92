package tracker

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/aescarias/apricot/internal/trackerstats"
)

func (s *Server) serveAnnounce(w http.ResponseWriter, r *http.Request, _ httprouter.Params) (int, error) {
	if s.Stats != nil {
		s.Stats.RecordEvent(trackerstats.Announce)
	}

	query, err := ParseQuery(r.URL.RawQuery)
	if err != nil {
		if s.Stats != nil {
			s.Stats.RecordEvent(trackerstats.ClientError)
		}
		WriteFailure(w, err.Error())
		return http.StatusOK, nil
	}

	remoteIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		remoteIP = r.RemoteAddr
	}

	result, err := Handle(s.Registry, remoteIP, query, s.Config, time.Now())
	if err != nil {
		if s.Stats != nil {
			s.Stats.RecordEvent(trackerstats.ClientError)
		}
		WriteFailure(w, err.Error())
		return http.StatusOK, nil
	}

	if s.Stats != nil {
		switch {
		case query.Event == EventStopped:
			s.Stats.RecordEvent(trackerstats.RemovedPeer)
		case query.Left == 0:
			s.Stats.RecordEvent(trackerstats.NewSeeder)
		default:
			s.Stats.RecordEvent(trackerstats.NewLeecher)
		}
	}

	if err := WriteSuccess(w, result, query.Compact, !query.NoPeerId); err != nil {
		return http.StatusInternalServerError, err
	}
	return http.StatusOK, nil
}

func (s *Server) serveStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) (int, error) {
	if s.Stats == nil {
		w.WriteHeader(http.StatusNotFound)
		return http.StatusNotFound, nil
	}

	w.Header().Set("Content-Type", "application/json; charset=UTF-8")

	query := r.URL.Query()
	var val any
	if _, flatten := query["flatten"]; flatten {
		val = s.Stats.Flattened()
	} else {
		val = s.Stats
	}

	if err := json.NewEncoder(w).Encode(val); err != nil {
		return http.StatusInternalServerError, err
	}
	return http.StatusOK, nil
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request, _ httprouter.Params) (int, error) {
	_, err := io.WriteString(w, fmt.Sprintf("bittorrent tracker announce url: http://%s/announce\n", s.Addr))
	return http.StatusOK, err
}
