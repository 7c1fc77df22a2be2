package domain

// PlaybackState is the authoritative playback snapshot for a room. Clients
// reproduce the same extrapolation between updates: while playing, the
// current position is Position + Rate * (now - UpdatedAt).
type PlaybackState struct {
	Position  float64 `json:"position"`
	Playing   bool    `json:"playing"`
	Rate      float64 `json:"rate"`
	UpdatedAt int64   `json:"updated_at"`
	Revision  int64   `json:"revision"`
}
