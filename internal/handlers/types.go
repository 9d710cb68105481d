package handlers

// SearchRequest is the query for a prefix search.
type SearchRequest struct {
	Query  string `doc:"Prefix to complete; case and surrounding whitespace are ignored" example:"cat"   query:"q"`
	Engine string `doc:"Term index backend: redis or postgresql; empty uses the default" example:"redis" query:"engine"`
}

// SearchResponse is the response for a successful prefix search.
type SearchResponse struct {
	RateLimitLimit     string `doc:"Requests allowed per window"          header:"X-RateLimit-Limit"`
	RateLimitRemaining string `doc:"Requests left in the current window" header:"X-RateLimit-Remaining"`
	Body               struct {
		Results  []string `doc:"Complete terms sharing the prefix, in lexicographic order" example:"[\"CAT\",\"CATALOG\"]" json:"results"`
		Duration float64  `doc:"Time spent in the term index, in milliseconds"            example:"0.42"                  json:"duration"`
	}
}
