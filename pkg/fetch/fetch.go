package fetch

import (
	"context"
	"io/ioutil"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

var ErrNotOK = errors.New("http response not OK")

// Fetcher retrieves a resource by URL, returning its raw bytes.
// Transport errors and non-2xx statuses are returned uniformly as errors.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type HTTPRequester interface {
	Do(req *http.Request) (res *http.Response, err error)
}

type HTTPFetcher struct {
	*Configuration
}

type Configuration struct {
	userAgent  string
	referer    string
	cookies    string
	headers    map[string]string
	proxyAddr  string
	httpClient HTTPRequester
}

func Configure() *Configuration {
	return &Configuration{
		userAgent: defaultUserAgent,
		headers:   map[string]string{},
	}
}

// UserAgent overrides the User-Agent header sent with every request.
func (c *Configuration) UserAgent(ua string) *Configuration {
	c.userAgent = ua
	return c
}

// Referer sets the Referer header sent with every request.
func (c *Configuration) Referer(r string) *Configuration {
	c.referer = r
	return c
}

// Cookies sets the raw Cookie header sent with every request.
func (c *Configuration) Cookies(raw string) *Configuration {
	c.cookies = raw
	return c
}

// Header adds an extra header pair sent with every request.
func (c *Configuration) Header(name, value string) *Configuration {
	c.headers[name] = value
	return c
}

// Proxy routes all requests through the supplied proxy address
// (e.g. "http://127.0.0.1:7890"). Empty string means direct connection.
func (c *Configuration) Proxy(addr string) *Configuration {
	c.proxyAddr = addr
	return c
}

func (c *Configuration) HTTPClient(httpClient HTTPRequester) *Configuration {
	c.httpClient = httpClient
	return c
}

func New(cfg *Configuration) (*HTTPFetcher, error) {
	if cfg.httpClient == nil {
		transport := &http.Transport{
			Dial: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 120 * time.Second,
			}).Dial,
			TLSHandshakeTimeout:   30 * time.Second,
			ResponseHeaderTimeout: 15 * time.Second,
		}
		if cfg.proxyAddr != "" {
			pu, err := url.Parse(cfg.proxyAddr)
			if err != nil {
				return nil, errors.Wrap(err, "invalid proxy address")
			}
			transport.Proxy = http.ProxyURL(pu)
		}
		cfg.httpClient = &http.Client{
			Timeout:   120 * time.Second,
			Transport: transport,
		}
	}
	return &HTTPFetcher{Configuration: cfg}, nil
}

// Fetch retrieves the resource at url with the configured headers applied.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	if f.referer != "" {
		req.Header.Set("Referer", f.referer)
	}
	if f.cookies != "" {
		req.Header.Set("Cookie", f.cookies)
	}
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	res, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return nil, errors.Wrapf(ErrNotOK, "status %v fetching %v", res.StatusCode, url)
	}

	return ioutil.ReadAll(res.Body)
}
