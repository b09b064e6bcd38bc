package resolve

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/streamscope/livewatch/pkg/fetch"
)

const chaturbateSite = "https://chaturbate.com"

// Chaturbate resolves rooms through the public chatvideocontext API.
type Chaturbate struct {
	siteURL string
	fetcher fetch.Fetcher
}

type chatVideoContext struct {
	HLSSource  string `json:"hls_source"`
	RoomStatus string `json:"room_status"`
}

func NewChaturbate(f fetch.Fetcher) *Chaturbate {
	return &Chaturbate{siteURL: chaturbateSite, fetcher: f}
}

func (c *Chaturbate) Name() string { return "chaturbate" }

// SetSiteURL points the handler at a different host. Used in tests.
func (c *Chaturbate) SetSiteURL(u string) { c.siteURL = u }

func (c *Chaturbate) FetchMaster(ctx context.Context, room string) (*RawMaster, error) {
	room = ExtractRoomName(room)
	if room == "" {
		return nil, errors.Wrap(ErrRoomNotFound, "empty room name")
	}
	ll := logger.With("platform", c.Name(), "room", room)

	data, err := c.fetcher.Fetch(ctx, fmt.Sprintf("%s/api/chatvideocontext/%s/", c.siteURL, room))
	if err != nil {
		if errors.Is(err, fetch.ErrNotOK) {
			return nil, errors.Wrap(ErrRoomNotFound, room)
		}
		return nil, errors.Wrap(ErrNetwork, err.Error())
	}

	var vc chatVideoContext
	if err := json.Unmarshal(data, &vc); err != nil {
		return nil, errors.Wrap(err, "cannot decode video context")
	}
	if vc.HLSSource == "" {
		ll.Debugw("room has no hls source", "status", vc.RoomStatus)
		return nil, errors.Wrap(ErrRoomOffline, room)
	}

	body, err := c.fetcher.Fetch(ctx, vc.HLSSource)
	if err != nil {
		return nil, errors.Wrap(ErrNetwork, err.Error())
	}
	ll.Debugw("master manifest fetched", "url", vc.HLSSource, "size", len(body))

	return &RawMaster{
		Platform: c.Name(),
		Room:     room,
		Title:    fmt.Sprintf("%s's Chaturbate stream", room),
		URL:      vc.HLSSource,
		Body:     body,
	}, nil
}
