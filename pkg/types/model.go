package types

// Message is one mail search hit as returned by the executor.
type Message struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	From    string `json:"from"`
	Date    string `json:"date,omitempty"`
}

type InputValue struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// RunResult maps node ids to whatever the executor produced for them.
type RunResult map[string]any

type SearchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type SearchResponse struct {
	Messages []Message `json:"messages"`
}

type SendRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type AuthURLResponse struct {
	URL string `json:"url"`
}

// ErrorBody is the {"detail": ...} shape used by the executor on failures.
type ErrorBody struct {
	Detail string `json:"detail"`
}
