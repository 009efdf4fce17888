package steam

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Movie is one trailer entry of an app. Webm and MP4 map a quality ("480",
// "max") to a URL; HLS is a streaming manifest.
type Movie struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	Thumbnail string            `json:"thumbnail"`
	Webm      map[string]string `json:"webm"`
	MP4       map[string]string `json:"mp4"`
	HLS       string            `json:"hls_h264"`
}

// Screenshot is one screenshot entry of an app.
type Screenshot struct {
	PathThumbnail string `json:"path_thumbnail"`
	PathFull      string `json:"path_full"`
}

// Demo is a playable demo attached to an app.
type Demo struct {
	AppID       int64  `json:"appid"`
	Description string `json:"description"`
}

// Detail is the supplementary record of one app.
type Detail struct {
	Found             bool
	Description       string
	JapaneseSupported bool
	HeaderImage       string
	Movies            []Movie
	Screenshots       []Screenshot
	Demos             []Demo
	ReleaseDate       string
}

// ErrMalformedDetail is returned when an app detail payload cannot be decoded.
var ErrMalformedDetail = errors.New("malformed app detail")

type appData struct {
	ShortDescription   string       `json:"short_description"`
	SupportedLanguages string       `json:"supported_languages"`
	HeaderImage        string       `json:"header_image"`
	Movies             []Movie      `json:"movies"`
	Screenshots        []Screenshot `json:"screenshots"`
	Demos              []Demo       `json:"demos"`
	ReleaseDate        struct {
		Date string `json:"date"`
	} `json:"release_date"`
}

func decodeDetail(body []byte, appID int64) (Detail, error) {
	var envelope map[string]struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Detail{}, fmt.Errorf("%w: %v", ErrMalformedDetail, err)
	}

	entry, ok := envelope[strconv.FormatInt(appID, 10)]
	if !ok || !entry.Success {
		return Detail{Found: false}, nil
	}

	var data appData
	if err := json.Unmarshal(entry.Data, &data); err != nil {
		return Detail{}, fmt.Errorf("%w: %v", ErrMalformedDetail, err)
	}

	langs := strings.ToLower(data.SupportedLanguages)
	return Detail{
		Found:             true,
		Description:       data.ShortDescription,
		JapaneseSupported: strings.Contains(langs, "japanese") || strings.Contains(langs, "日本語"),
		HeaderImage:       data.HeaderImage,
		Movies:            data.Movies,
		Screenshots:       data.Screenshots,
		Demos:             data.Demos,
		ReleaseDate:       data.ReleaseDate.Date,
	}, nil
}
