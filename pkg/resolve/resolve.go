package resolve

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/karlseguin/ccache/v2"
	"github.com/pkg/errors"

	"github.com/streamscope/livewatch/pkg/fetch"
	"github.com/streamscope/livewatch/playlist"
)

const masterCacheDuration = time.Minute

// RawMaster is the product of a platform handler: master manifest text plus
// the URL it was fetched from, which later anchors relative variant and
// segment URIs.
type RawMaster struct {
	Platform string
	Room     string
	Title    string
	URL      string
	Body     []byte
}

// RoomSource turns a platform-specific room identifier into a raw master
// manifest. One implementation per supported platform; everything above this
// interface (selection, playlist resolution, watching) is platform-agnostic.
type RoomSource interface {
	Name() string
	FetchMaster(ctx context.Context, room string) (*RawMaster, error)
}

// Platform returns the handler registered under the supplied name.
func Platform(name string, f fetch.Fetcher) (RoomSource, error) {
	switch strings.ToLower(name) {
	case "chaturbate":
		return NewChaturbate(f), nil
	case "stripchat":
		return NewStripchat(f), nil
	}
	return nil, errors.Wrap(ErrUnknownPlatform, name)
}

var masterCache = ccache.New(ccache.Configure().MaxSize(1000).ItemsToPrune(10))

// FetchMasterCached serves repeated resolutions of the same room from a
// short-lived cache so concurrent sessions don't hammer platform APIs.
func FetchMasterCached(ctx context.Context, src RoomSource, room string) (*RawMaster, error) {
	key := src.Name() + "::" + room
	item, err := masterCache.Fetch(key, masterCacheDuration, func() (interface{}, error) {
		return src.FetchMaster(ctx, room)
	})
	if err != nil {
		return nil, err
	}
	return item.Value().(*RawMaster), nil
}

// Room resolves a room all the way down to a playable media playlist for the
// requested quality.
func Room(ctx context.Context, src RoomSource, room string, width, frameRate int) (*playlist.SelectedPlaylist, error) {
	rm, err := FetchMasterCached(ctx, src, room)
	if err != nil {
		return nil, err
	}
	pl, err := playlist.Resolve(rm.Body, rm.URL, width, frameRate)
	if err != nil {
		return nil, err
	}
	logger.Infow(
		"room resolved",
		"platform", src.Name(), "room", rm.Room,
		"resolution", pl.Width, "frame_rate", pl.FrameRate, "url", pl.URL)
	return pl, nil
}

// ExtractRoomName accepts either a bare room name or a full room page URL
// and returns the room name.
func ExtractRoomName(s string) string {
	if !strings.Contains(s, "/") {
		return s
	}
	u, err := url.Parse(s)
	if err != nil {
		return strings.Trim(s, "/")
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}
