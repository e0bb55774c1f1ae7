package entity

import "fmt"

// Source identifies where a sentiment item originated. It is validated as a
// string at the ingress boundary and closed inside the pipeline.
type Source string

const (
	SourceNews         Source = "news"
	SourceTwitter      Source = "twitter"
	SourceReddit       Source = "reddit"
	SourceYoutube      Source = "youtube"
	SourceAnalyst      Source = "analyst"
	SourceEarnings     Source = "earnings"
	SourcePressRelease Source = "press_release"
	SourceGeneral      Source = "general"
)

var validSources = map[Source]struct{}{
	SourceNews:         {},
	SourceTwitter:      {},
	SourceReddit:       {},
	SourceYoutube:      {},
	SourceAnalyst:      {},
	SourceEarnings:     {},
	SourcePressRelease: {},
	SourceGeneral:      {},
}

// Valid reports whether the source is one of the known values.
func (s Source) Valid() bool {
	_, ok := validSources[s]
	return ok
}

// ParseSource converts a raw string into a Source, rejecting unknown values.
func ParseSource(raw string) (Source, error) {
	s := Source(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown sentiment source: %q", raw)
	}
	return s, nil
}
