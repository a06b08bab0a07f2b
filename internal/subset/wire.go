package subset

// Wire types for the subset API envelope. Field casing follows the upstream
// protocol exactly, including the capitalised Status.

type rpcRequest struct {
	MethodName string `json:"methodname"`
	Type       string `json:"type"`
	Version    string `json:"version"`
	Args       any    `json:"args"`
}

type rpcResponse struct {
	Type       string    `json:"type"`
	MethodName string    `json:"methodname"`
	Result     jobResult `json:"result"`
}

// jobResult is the union of the result shapes the API returns: submit and
// status calls fill JobID/Status, result calls fill the pagination fields,
// faults fill Message.
type jobResult struct {
	JobID        string       `json:"jobId"`
	Status       string       `json:"Status"`
	Code         int          `json:"code"`
	Message      string       `json:"message"`
	PercentDone  float64      `json:"PercentCompleted"`
	Items        []resultItem `json:"items"`
	ItemsPerPage int          `json:"itemsPerPage"`
	TotalResults int          `json:"totalResults"`
	StartIndex   int          `json:"startIndex"`
}

type resultItem struct {
	Label string `json:"label"`
	Link  string `json:"link"`
}

type subsetVariable struct {
	DatasetID string `json:"datasetId"`
	Variable  string `json:"variable"`
}

type subsetArgs struct {
	Role  string    `json:"role"`
	Start string    `json:"start"`
	End   string    `json:"end"`
	Box   []float64 `json:"box"` // west, south, east, north
	Crop  bool      `json:"crop"`

	Data []subsetVariable `json:"data"`

	// Grid names the spatial interpolation target ("lat,lon" cell size);
	// DiurnalAggregation selects the server-side daily reduction mode.
	Grid               string `json:"grid,omitempty"`
	DiurnalAggregation string `json:"diurnalAggregation,omitempty"`
}

type statusArgs struct {
	JobID string `json:"jobId"`
}

type resultArgs struct {
	JobID      string `json:"jobId"`
	Count      int    `json:"count"`
	StartIndex int    `json:"startIndex"`
}
