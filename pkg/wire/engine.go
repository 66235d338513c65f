package wire

// EngineRequest is the body of every engine API call. Action uses the line form, e.g.
// "move P b2 b3" or "drop B 0 c2"; Depth is only read by search.
type EngineRequest struct {
	Board    string `json:"board"`
	Reserve0 string `json:"reserve0"`
	Reserve1 string `json:"reserve1"`
	Player   int    `json:"player"`
	Action   string `json:"action,omitempty"`
	Depth    int    `json:"depth,omitempty"`
}

type ValidResponse struct {
	Legal bool `json:"legal"`
}

// PositionResponse answers play and search. Moved is false when search found nothing.
type PositionResponse struct {
	Board    string `json:"board"`
	Reserve0 string `json:"reserve0"`
	Reserve1 string `json:"reserve1"`
	Moved    bool   `json:"moved"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Engine string `json:"engine"`
}
