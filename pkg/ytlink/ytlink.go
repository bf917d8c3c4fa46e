// Package ytlink extracts YouTube video ids from the url shapes clients paste.
package ytlink

import (
	"errors"
	"regexp"
)

var ErrInvalidURL = errors.New("not a youtube video url")

var videoIdRe = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([^&\n?#/]+)`)

// ExtractVideoId returns the 11-character video id embedded in a watch,
// short or embed url.
func ExtractVideoId(url string) (string, error) {
	match := videoIdRe.FindStringSubmatch(url)
	if match == nil {
		return "", ErrInvalidURL
	}

	return match[1], nil
}
