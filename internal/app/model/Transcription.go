package model

// Transcription is the report written next to the input audio. Field order
// and names are part of the output format.
type Transcription struct {
	TextTranscription string `json:"textTranscription"`
	MetaData          string `json:"metaData"`
}
