package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/krantius/elkd/raft"
	log "github.com/sirupsen/logrus"
)

// KeyValues is the read side of the store committed commands are applied to
type KeyValues interface {
	Get(key string) ([]byte, bool)
	Len() int
}

type api struct {
	raft Coordinator
	kv   KeyValues
}

type statusResponse struct {
	raft.Status
	Keys int `json:"keys"`
}

// Router builds the HTTP status API. A nil kv leaves out the key routes.
func Router(c Coordinator, kv KeyValues) *mux.Router {
	a := &api{raft: c, kv: kv}

	r := mux.NewRouter()
	sr := r.PathPrefix("/api").Subrouter()
	sr.Path("/status").Methods(http.MethodGet).HandlerFunc(a.status)
	sr.Path("/health").Methods(http.MethodGet).HandlerFunc(a.health)

	if kv != nil {
		sr.Path("/keys/{key}").Methods(http.MethodGet).HandlerFunc(a.get)
	}

	return r
}

func (a *api) status(w http.ResponseWriter, r *http.Request) {
	res := statusResponse{Status: a.raft.Status()}
	if a.kv != nil {
		res.Keys = a.kv.Len()
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(res); err != nil {
		log.Errorf("Failed to write status: %v", err)
	}
}

func (a *api) get(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	val, ok := a.kv.Get(key)
	if !ok {
		http.Error(w, "key not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(val)
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
}
