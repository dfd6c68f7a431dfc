package models

// AudioSegment is the synthesized audio for exactly one turn.
type AudioSegment struct {
	Index    int    `json:"index"` // position of the originating turn
	Speaker  string `json:"speaker"`
	Provider string `json:"provider"` // azure|elevenlabs
	Format   string `json:"format"`   // wav|mp3
	Audio    []byte `json:"-"`
}

// AudioTrack is the stitched, final audio of a session.
type AudioTrack struct {
	Format       string `json:"format"`
	SegmentCount int    `json:"segment_count"`
	Audio        []byte `json:"-"`
}
