// Package browser drives a headless Chrome through one tariff-page
// session at a time. The pipeline only sees the Session interface;
// extraction code receives rendered markup and text and never touches
// the page handle.
package browser

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Session is the per-run browser surface the pipeline drives.
type Session interface {
	// Navigate loads a URL and returns the rendered markup and the
	// page's visible text.
	Navigate(ctx context.Context, url string) (html, text string, err error)

	// Expand clicks the element whose text contains keyword and returns
	// the refreshed markup and text.
	Expand(ctx context.Context, keyword string) (html, text string, err error)

	// Download clicks the link matching linkText and waits for the file
	// to land in the download directory.
	Download(ctx context.Context, linkText string) (path string, err error)

	Close() error
}

// Config configures a Chrome session.
type Config struct {
	// Headless runs Chrome without a display. Default true.
	Headless *bool

	// DownloadDir receives files triggered by Download. Required when
	// Download is used.
	DownloadDir string

	// NavigateTimeout bounds a single page load. Default 60s.
	NavigateTimeout time.Duration

	// SettleTimeout bounds waiting for a download to finish. Default 90s.
	SettleTimeout time.Duration
}

func (c *Config) defaults() {
	if c.Headless == nil {
		v := true
		c.Headless = &v
	}
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 60 * time.Second
	}
	if c.SettleTimeout <= 0 {
		c.SettleTimeout = 90 * time.Second
	}
}

// Chrome is the rod-backed Session.
type Chrome struct {
	cfg     Config
	lnch    *launcher.Launcher
	browser *rod.Browser
	page    *rod.Page
}

// Launch starts a local Chrome and opens a blank working page.
func Launch(cfg Config) (*Chrome, error) {
	cfg.defaults()

	l := launcher.New().
		Headless(*cfg.Headless).
		Set("disable-blink-features", "AutomationControlled")

	u, err := l.Launch()
	if err != nil {
		return nil, eris.Wrap(err, "browser: launch chrome")
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, eris.Wrap(err, "browser: connect")
	}

	if cfg.DownloadDir != "" {
		err := proto.BrowserSetDownloadBehavior{
			Behavior:     proto.BrowserSetDownloadBehaviorBehaviorAllow,
			DownloadPath: cfg.DownloadDir,
		}.Call(b)
		if err != nil {
			b.Close()
			l.Cleanup()
			return nil, eris.Wrap(err, "browser: set download dir")
		}
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		b.Close()
		l.Cleanup()
		return nil, eris.Wrap(err, "browser: open page")
	}

	zap.L().Info("browser started",
		zap.Bool("headless", *cfg.Headless),
		zap.String("download_dir", cfg.DownloadDir))

	return &Chrome{cfg: cfg, lnch: l, browser: b, page: page}, nil
}

// Navigate implements Session.
func (c *Chrome) Navigate(ctx context.Context, url string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.NavigateTimeout)
	defer cancel()

	page := c.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return "", "", eris.Wrapf(err, "browser: navigate %s", url)
	}
	if err := page.WaitLoad(); err != nil {
		return "", "", eris.Wrapf(err, "browser: wait load %s", url)
	}
	return c.snapshot(page)
}

// Expand implements Session. A missing element is an error: callers
// decide whether the section is optional.
func (c *Chrome) Expand(ctx context.Context, keyword string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.NavigateTimeout)
	defer cancel()

	page := c.page.Context(ctx)
	el, err := page.ElementR("*", regexp.QuoteMeta(keyword))
	if err != nil {
		return "", "", eris.Wrapf(err, "browser: find section %q", keyword)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return "", "", eris.Wrapf(err, "browser: expand section %q", keyword)
	}
	if err := page.WaitDOMStable(time.Second, 0); err != nil {
		return "", "", eris.Wrap(err, "browser: wait dom")
	}
	return c.snapshot(page)
}

// Download implements Session.
func (c *Chrome) Download(ctx context.Context, linkText string) (string, error) {
	if c.cfg.DownloadDir == "" {
		return "", eris.New("browser: download dir not configured")
	}

	before, err := listFiles(c.cfg.DownloadDir)
	if err != nil {
		return "", err
	}

	page := c.page.Context(ctx)
	el, err := page.ElementR("a", regexp.QuoteMeta(linkText))
	if err != nil {
		return "", eris.Wrapf(err, "browser: find link %q", linkText)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return "", eris.Wrapf(err, "browser: click link %q", linkText)
	}

	path, err := waitSettled(ctx, c.cfg.DownloadDir, before, c.cfg.SettleTimeout)
	if err != nil {
		return "", err
	}
	zap.L().Info("download finished", zap.String("path", path))
	return path, nil
}

func (c *Chrome) snapshot(page *rod.Page) (string, string, error) {
	html, err := page.HTML()
	if err != nil {
		return "", "", eris.Wrap(err, "browser: read markup")
	}
	body, err := page.Element("body")
	if err != nil {
		return html, "", eris.Wrap(err, "browser: find body")
	}
	text, err := body.Text()
	if err != nil {
		return html, "", eris.Wrap(err, "browser: read text")
	}
	return html, text, nil
}

// Close shuts Chrome down and removes its temp profile.
func (c *Chrome) Close() error {
	var err error
	if c.browser != nil {
		err = c.browser.Close()
	}
	if c.lnch != nil {
		c.lnch.Cleanup()
	}
	return err
}

// minDownloadSize filters out error stubs some servers hand back with a
// 200 status.
const minDownloadSize = 100

// waitSettled polls the download directory until a new, fully written
// file appears. In-progress Chrome downloads keep a .crdownload suffix
// and are skipped.
func waitSettled(ctx context.Context, dir string, before map[string]bool, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tick := time.NewTicker(500 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", eris.Wrap(ctx.Err(), "browser: waiting for download")
		case <-tick.C:
			entries, err := os.ReadDir(dir)
			if err != nil {
				return "", eris.Wrapf(err, "browser: read download dir %s", dir)
			}
			for _, e := range entries {
				name := e.Name()
				if before[name] || e.IsDir() || strings.HasSuffix(name, ".crdownload") {
					continue
				}
				info, err := e.Info()
				if err != nil || info.Size() <= minDownloadSize {
					continue
				}
				return filepath.Join(dir, name), nil
			}
		}
	}
}

func listFiles(dir string) (map[string]bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "browser: read download dir %s", dir)
	}
	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		names[e.Name()] = true
	}
	return names, nil
}

// PrepareDownloadDir creates the download directory and clears out
// document files left over from an interrupted run, so stale tariffs
// are never mistaken for fresh ones.
func PrepareDownloadDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "browser: create download dir %s", dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return eris.Wrapf(err, "browser: read download dir %s", dir)
	}
	for _, e := range entries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".doc", ".docx", ".crdownload":
			stale := filepath.Join(dir, e.Name())
			if err := os.Remove(stale); err != nil {
				return eris.Wrapf(err, "browser: remove stale %s", stale)
			}
			zap.L().Debug("removed stale download", zap.String("path", stale))
		}
	}
	return nil
}
