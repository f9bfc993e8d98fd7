package routes

import (
	"context"
	"errors"
	"net/http"

	"github.com/careconnect-ai/insights/pkg/codesearch"
	"github.com/careconnect-ai/insights/pkg/common/logger"
	"github.com/careconnect-ai/insights/pkg/remote"
	"github.com/gorilla/mux"
)

const searchFailedMessage = "An error occurred while searching GitHub."

type Searcher interface {
	Search(ctx context.Context, term, repository string) (codesearch.Results, error)
}

func RegisterCodeSearchRoutes(router *mux.Router, searcher Searcher) {
	router.HandleFunc("/code-search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		results, err := searcher.Search(r.Context(), q.Get("q"), q.Get("repo"))
		if err != nil {
			if errors.Is(err, codesearch.ErrMissingInput) {
				writeError(w, http.StatusBadRequest, codesearch.MissingInputMessage)
				return
			}
			logger.Log.WithError(err).Warn("code search failed")
			msg := searchFailedMessage
			var remoteErr *remote.Error
			if errors.As(err, &remoteErr) && remoteErr.Message != "" {
				msg = remoteErr.Message
			}
			writeError(w, http.StatusBadGateway, msg)
			return
		}
		writeJSON(w, results)
	}).Methods(http.MethodGet)
}
