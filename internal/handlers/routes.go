package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// RegisterRoutes registers the search routes.
func RegisterRoutes(api huma.API, searchHandler *SearchHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodGet,
		Path:        "/api/search",
		Summary:     "Prefix search",
		Description: "Returns up to 80 known terms starting with the query, from the selected term index.",
		Tags:        []string{"Search"},
		Errors: []int{
			http.StatusBadRequest,
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
		},
	}, searchHandler.Search)
}
