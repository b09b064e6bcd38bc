package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/streamscope/livewatch/internal/config"
	"github.com/streamscope/livewatch/manifest"
	"github.com/streamscope/livewatch/pkg/dispatcher"
	"github.com/streamscope/livewatch/pkg/fetch"
	"github.com/streamscope/livewatch/pkg/logging"
	"github.com/streamscope/livewatch/pkg/logging/zapadapter"
	"github.com/streamscope/livewatch/pkg/resolve"
	"github.com/streamscope/livewatch/playlist"
	"github.com/streamscope/livewatch/recorder"
	"github.com/streamscope/livewatch/watcher"

	"github.com/alecthomas/kong"
	"github.com/c2h5oh/datasize"
	"github.com/fasthttp/router"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
)

var logger *zap.SugaredLogger

var CLI struct {
	Watch struct {
		Rooms            []string      `arg name:"rooms" help:"Room names or room page URLs to watch."`
		Platform         string        `optional name:"platform" help:"Streaming platform." default:"chaturbate"`
		Width            int           `optional name:"width" help:"Preferred resolution width." default:"1080"`
		FrameRate        int           `optional name:"framerate" help:"Preferred frame rate." default:"30"`
		Interval         time.Duration `optional name:"interval" help:"Playlist poll interval." default:"1s"`
		Output           string        `optional name:"output" help:"Directory to store recordings." default:"."`
		MaxSize          string        `optional name:"max_size" help:"Retire oldest recordings when their total size goes above this (e.g. 100GB)."`
		Proxy            string        `optional name:"proxy" help:"Proxy address for all platform and CDN requests."`
		Bind             string        `optional name:"bind" help:"Address for the metrics server to listen on." default:":2112"`
		MarkAfterDeliver bool          `optional name:"mark_after_deliver" help:"Advance the segment watermark only after successful delivery (may redeliver instead of skipping)."`
	} `cmd help:"Watch live rooms, recording new segments as they appear."`
	Resolve struct {
		Room      string `arg name:"room" help:"Room name or room page URL."`
		Platform  string `optional name:"platform" help:"Streaming platform." default:"chaturbate"`
		Width     int    `optional name:"width" help:"Preferred resolution width." default:"1080"`
		FrameRate int    `optional name:"framerate" help:"Preferred frame rate." default:"30"`
	} `cmd help:"Resolve a room to its media playlist URL and exit."`
	Debug bool `optional help:"Debug mode."`
}

func main() {
	ctx := kong.Parse(&CLI)

	logCfg := logging.Prod
	if CLI.Debug {
		logCfg = logging.Dev
	}
	logger = logging.Create("livewatch", logCfg)
	setLoggers(logCfg)

	switch ctx.Command() {
	case "watch <rooms>":
		startWatch()
	case "resolve <room>":
		resolveRoom()
	default:
		panic(ctx.Command())
	}
}

func setLoggers(cfg zap.Config) {
	manifest.SetLogger(logging.Create("manifest", cfg))
	playlist.SetLogger(logging.Create("playlist", cfg))
	watcher.SetLogger(logging.Create("watcher", cfg))
	recorder.SetLogger(zapadapter.NewKV(logging.Create("recorder", cfg).Desugar()))
	resolve.SetLogger(logging.Create("resolve", cfg))
	dispatcher.SetLogger(logging.Create("dispatcher", cfg))
}

func loadWatcherConfig() *config.WatcherConfig {
	cfg, err := config.ReadWatcherConfig()
	if err != nil {
		logger.Debugw("no config file loaded", "err", err)
		return nil
	}
	return cfg
}

// newFetcher builds the HTTP transport, layering the optional config file
// (proxy, user agent, per-platform cookies and headers) under the CLI flags.
func newFetcher(cfg *config.WatcherConfig, platform, proxy string) (*fetch.HTTPFetcher, error) {
	fcfg := fetch.Configure()
	if proxy != "" {
		fcfg.Proxy(proxy)
	}

	if cfg != nil {
		if proxy == "" && cfg.Proxy != "" {
			fcfg.Proxy(cfg.Proxy)
		}
		if cfg.UserAgent != "" {
			fcfg.UserAgent(cfg.UserAgent)
		}
		if pc, ok := cfg.Platforms[platform]; ok {
			if pc.Cookies != "" {
				fcfg.Cookies(pc.Cookies)
			}
			if pc.Referer != "" {
				fcfg.Referer(pc.Referer)
			}
			for k, v := range pc.Headers {
				fcfg.Header(k, v)
			}
		}
	}

	return fetch.New(fcfg)
}

type watchWorkload struct {
	ctx       context.Context
	src       resolve.RoomSource
	fetcher   fetch.Fetcher
	outDir    string
	width     int
	frameRate int
	opts      watcher.Options
}

// Do runs one full watch session for a single room: resolve, record, watch
// until the shared context is cancelled.
func (w *watchWorkload) Do(t dispatcher.Task) error {
	room, _ := t.Payload.(string)
	if room == "" {
		return dispatcher.ErrInvalidPayload
	}

	pl, err := resolve.Room(w.ctx, w.src, room, w.width, w.frameRate)
	if err != nil {
		return err
	}

	rec, err := recorder.New(w.outDir, w.src.Name(), resolve.ExtractRoomName(room), pl)
	if err != nil {
		return err
	}
	defer rec.Close()

	err = watcher.New(pl, w.fetcher, rec.Write, w.opts).Watch(w.ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func startWatch() {
	cfg := loadWatcherConfig()
	f, err := newFetcher(cfg, CLI.Watch.Platform, CLI.Watch.Proxy)
	if err != nil {
		logger.Fatalw("cannot configure fetcher", "err", err)
	}
	src, err := resolve.Platform(CLI.Watch.Platform, f)
	if err != nil {
		logger.Fatalw("cannot configure platform", "err", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-stopChan
		logger.Infof("caught an %v signal, shutting down...", sig)
		cancel()
	}()

	dispatcher.RegisterMetrics()
	r := router.New()
	r.GET("/metrics", fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler()))
	go func() {
		logger.Infow("metrics server starting", "bind", CLI.Watch.Bind)
		if err := fasthttp.ListenAndServe(CLI.Watch.Bind, r.Handler); err != nil {
			logger.Errorw("metrics server failed", "err", err)
		}
	}()

	outDir := CLI.Watch.Output
	maxSizeText := CLI.Watch.MaxSize
	if cfg != nil {
		if outDir == "." && cfg.Output.Dir != "" {
			outDir = cfg.Output.Dir
		}
		if maxSizeText == "" {
			maxSizeText = cfg.Output.MaxSize
		}
	}

	if maxSizeText != "" {
		var maxSize datasize.ByteSize
		if err := maxSize.UnmarshalText([]byte(maxSizeText)); err != nil {
			logger.Fatalw("invalid max size", "max_size", maxSizeText, "err", err)
		}
		cleanupStop := recorder.SpawnCleaning(outDir, maxSize.Bytes())
		defer close(cleanupStop)
	}

	wl := &watchWorkload{
		ctx:       ctx,
		src:       src,
		fetcher:   f,
		outDir:    outDir,
		width:     CLI.Watch.Width,
		frameRate: CLI.Watch.FrameRate,
		opts: watcher.Options{
			PollInterval:     CLI.Watch.Interval,
			MarkAfterDeliver: CLI.Watch.MarkAfterDeliver,
		},
	}
	d := dispatcher.Start(len(CLI.Watch.Rooms), wl, len(CLI.Watch.Rooms))
	for _, room := range CLI.Watch.Rooms {
		d.Dispatch(room)
	}

	<-ctx.Done()
	d.Stop()
	logger.Info("all watch sessions stopped")
}

func resolveRoom() {
	f, err := newFetcher(loadWatcherConfig(), CLI.Resolve.Platform, "")
	if err != nil {
		logger.Fatalw("cannot configure fetcher", "err", err)
	}
	src, err := resolve.Platform(CLI.Resolve.Platform, f)
	if err != nil {
		logger.Fatalw("cannot configure platform", "err", err)
	}

	pl, err := resolve.Room(context.Background(), src, CLI.Resolve.Room, CLI.Resolve.Width, CLI.Resolve.FrameRate)
	if err != nil {
		if errors.Is(err, resolve.ErrRoomOffline) || errors.Is(err, playlist.ErrStreamUnavailable) {
			fmt.Println("stream is not available")
			os.Exit(1)
		}
		logger.Fatalw("cannot resolve room", "err", err)
	}
	fmt.Printf("%vp%v %v\n", pl.Width, pl.FrameRate, pl.URL)
}
