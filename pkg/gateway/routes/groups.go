package routes

import (
	"context"
	"net/http"

	"github.com/careconnect-ai/insights/pkg/groups"
	"github.com/careconnect-ai/insights/pkg/remote"
	"github.com/gorilla/mux"
)

type GroupLister interface {
	List(ctx context.Context) ([]groups.Group, error)
}

type groupsResponse struct {
	Groups []groups.Group `json:"groups"`
	Error  string         `json:"error,omitempty"`
}

func RegisterGroupRoutes(router *mux.Router, lister GroupLister) {
	router.HandleFunc("/groups", func(w http.ResponseWriter, r *http.Request) {
		list, err := lister.List(r.Context())
		if err != nil {
			writeJSONStatus(w, http.StatusBadGateway, groupsResponse{Groups: list, Error: remote.Message(err)})
			return
		}
		writeJSON(w, groupsResponse{Groups: list})
	}).Methods(http.MethodGet)
}
