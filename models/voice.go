package models

// AudioQueueEntry is a single play request.
type AudioQueueEntry struct {
	GuildID   string
	ChannelID string
	UserID    string
	FilePath  string
	Volume    float64
	// Notify sends a message back to whoever asked for the clip. May be nil.
	Notify func(msg string)
}

// Tell calls Notify when set.
func (e AudioQueueEntry) Tell(msg string) {
	if e.Notify != nil {
		e.Notify(msg)
	}
}

// EntranceConfig is a user's entrance sound.
type EntranceConfig struct {
	File   string  `json:"file"`
	Volume float64 `json:"volume"`
}
