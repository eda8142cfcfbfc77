package models

// MediaType selects the delivery primitive used for a broadcast.
type MediaType string

const (
	MediaText      MediaType = "text"
	MediaPhoto     MediaType = "photo"
	MediaVideo     MediaType = "video"
	MediaAnimation MediaType = "animation"
)

// Job describes one fan-out: what to send and to whom.
type Job struct {
	Media MediaType `json:"media_type"`
	Text  string    `json:"text,omitempty"`
	// FilePath points at a local transient file for media kinds; it is
	// removed after the pass.
	FilePath string `json:"file_path,omitempty"`
	// ButtonsRaw holds one "Label | https://url" pair per line.
	ButtonsRaw string  `json:"buttons,omitempty"`
	ChatIDs    []int64 `json:"chat_ids"`
}

// Outcome is the per-job accounting. Once a job has finished,
// OK+Failed == Total: no recipient is silently dropped.
type Outcome struct {
	Total  int `json:"total"`
	OK     int `json:"ok"`
	Failed int `json:"failed"`
}
