package resolve

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/streamscope/livewatch/pkg/fetch"
)

const (
	stripchatSite        = "https://stripchat.com"
	stripchatHLSTemplate = "https://edge-hls.doppiocdn.com/hls/%[1]s/master/%[1]s_auto.m3u8?playlistType=lowLatency"
)

// Stripchat resolves rooms through the front API, which yields a stream name
// that maps onto the platform's edge HLS CDN.
type Stripchat struct {
	siteURL     string
	hlsTemplate string
	fetcher     fetch.Fetcher
}

type stripchatCam struct {
	Cam struct {
		IsCamAvailable bool   `json:"isCamAvailable"`
		StreamName     string `json:"streamName"`
	} `json:"cam"`
}

func NewStripchat(f fetch.Fetcher) *Stripchat {
	return &Stripchat{siteURL: stripchatSite, hlsTemplate: stripchatHLSTemplate, fetcher: f}
}

func (s *Stripchat) Name() string { return "stripchat" }

// SetSiteURL points the handler at a different API host. Used in tests.
func (s *Stripchat) SetSiteURL(u string) { s.siteURL = u }

// SetHLSTemplate overrides the edge CDN URL template. The template is
// applied to the stream name reported by the API.
func (s *Stripchat) SetHLSTemplate(t string) { s.hlsTemplate = t }

func (s *Stripchat) FetchMaster(ctx context.Context, room string) (*RawMaster, error) {
	room = ExtractRoomName(room)
	if room == "" {
		return nil, errors.Wrap(ErrRoomNotFound, "empty room name")
	}
	ll := logger.With("platform", s.Name(), "room", room)

	data, err := s.fetcher.Fetch(ctx, fmt.Sprintf("%s/api/front/v2/models/username/%s/cam", s.siteURL, room))
	if err != nil {
		if errors.Is(err, fetch.ErrNotOK) {
			return nil, errors.Wrap(ErrRoomNotFound, room)
		}
		return nil, errors.Wrap(ErrNetwork, err.Error())
	}

	var cam stripchatCam
	if err := json.Unmarshal(data, &cam); err != nil {
		return nil, errors.Wrap(err, "cannot decode cam data")
	}
	if !cam.Cam.IsCamAvailable || cam.Cam.StreamName == "" {
		ll.Debugw("cam not available")
		return nil, errors.Wrap(ErrRoomOffline, room)
	}

	masterURL := fmt.Sprintf(s.hlsTemplate, cam.Cam.StreamName)
	body, err := s.fetcher.Fetch(ctx, masterURL)
	if err != nil {
		return nil, errors.Wrap(ErrNetwork, err.Error())
	}
	ll.Debugw("master manifest fetched", "url", masterURL, "size", len(body))

	return &RawMaster{
		Platform: s.Name(),
		Room:     room,
		Title:    fmt.Sprintf("%s's Stripchat stream", room),
		URL:      masterURL,
		Body:     body,
	}, nil
}
