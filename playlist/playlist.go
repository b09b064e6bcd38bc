package playlist

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/streamscope/livewatch/manifest"
)

// ErrStreamUnavailable signals that the master manifest cannot be watched:
// either it is not a master manifest at all or it carries no variant
// acceptable for the requested quality. Callers treat it as "not live now",
// not as a failure.
var ErrStreamUnavailable = errors.New("no playable stream in master manifest")

// SelectedPlaylist points at the media playlist chosen for a watch session.
// Created once per session, immutable afterwards.
type SelectedPlaylist struct {
	URL       string
	BaseURL   string
	Width     int
	FrameRate int
}

// Resolve parses masterText as a master manifest, selects a variant for the
// requested width and frame rate and materializes the absolute playlist URL
// plus the base URL later used to anchor relative segment URIs. sourceURL
// must be the URL masterText was fetched from.
func Resolve(masterText []byte, sourceURL string, width, frameRate int) (*SelectedPlaylist, error) {
	m := manifest.Parse(masterText)
	if m.Type != manifest.Master {
		return nil, errors.Wrap(ErrStreamUnavailable, "not a master manifest")
	}

	sel, err := manifest.Select(m.Variants, width, frameRate)
	if err != nil {
		return nil, errors.Wrapf(ErrStreamUnavailable, "no variant for %vp%v", width, frameRate)
	}

	base, err := url.Parse(sourceURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid source URL")
	}
	// Chop off the master manifest's own filename.
	if i := strings.LastIndex(base.Path, "/"); i >= 0 {
		base.Path = base.Path[:i+1]
	}

	rel, err := url.Parse(sel.URI)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid variant URI %q", sel.URI)
	}

	pl := &SelectedPlaylist{
		URL:       base.ResolveReference(rel).String(),
		BaseURL:   base.String(),
		Width:     sel.Width,
		FrameRate: sel.FrameRate,
	}
	logger.Debugw("playlist resolved", "url", pl.URL, "base_url", pl.BaseURL, "resolution", pl.Width, "frame_rate", pl.FrameRate)
	return pl, nil
}

// ResolveSegment returns the absolute URL for a segment URI of this playlist.
func (p *SelectedPlaylist) ResolveSegment(uri string) string {
	base, err := url.Parse(p.BaseURL)
	if err != nil {
		return p.BaseURL + uri
	}
	rel, err := url.Parse(uri)
	if err != nil {
		return p.BaseURL + uri
	}
	return base.ResolveReference(rel).String()
}

func (p *SelectedPlaylist) String() string {
	return fmt.Sprintf("%vp%v (%v)", p.Width, p.FrameRate, p.URL)
}
