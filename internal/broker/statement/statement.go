// Package statement downloads a published statement export (a shared CSV,
// XLSX or HTML-table link) and parses it like an uploaded file.
package statement

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"trade-report/internal/logger"
	"trade-report/internal/sheet"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "trade-report/1.0"
	maxBodySize      = 32 << 20
)

type Params struct {
	URL       string
	Timeout   time.Duration
	UserAgent string
}

// Link fetches one statement URL on every Fetch.
type Link struct {
	p   Params
	url *url.URL
}

func New(p Params) (*Link, error) {
	u, err := url.Parse(p.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid statement url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("statement url must be http or https, got %q", p.URL)
	}
	if p.Timeout <= 0 {
		p.Timeout = defaultTimeout
	}
	if p.UserAgent == "" {
		p.UserAgent = defaultUserAgent
	}
	return &Link{p: p, url: u}, nil
}

func (l *Link) Name() string { return "statement:" + l.url.Host }

// Fetch downloads the statement and hands the body to sheet.Read. The file
// type comes from the URL path, or from Content-Type when the path has no
// known extension.
func (l *Link) Fetch(ctx context.Context) (*sheet.Table, error) {
	c := colly.NewCollector(
		colly.MaxDepth(1),
		colly.Async(false),
		colly.IgnoreRobotsTxt(),
		colly.MaxBodySize(maxBodySize),
		colly.UserAgent(l.p.UserAgent),
	)
	c.SetRequestTimeout(l.p.Timeout)

	var (
		body     []byte
		ctype    string
		fetchErr error
	)
	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
		ctype = r.Headers.Get("Content-Type")
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
		logger.ErrorWithErr(ctx, "Statement download failed", err, "url", l.url.Redacted(), "status", r.StatusCode)
	})

	if err := c.Visit(l.url.String()); err != nil && fetchErr == nil {
		fetchErr = err
	}
	c.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fetchErr != nil {
		return nil, fmt.Errorf("statement: %w", fetchErr)
	}
	if len(body) == 0 {
		return nil, errors.New("statement: empty response")
	}
	return sheet.Read(fileName(l.url, ctype), body)
}

// fileName picks a name whose extension sheet.Read understands.
func fileName(u *url.URL, contentType string) string {
	name := path.Base(u.Path)
	switch strings.ToLower(path.Ext(name)) {
	case ".csv", ".txt", ".tsv", ".xlsx", ".xlsm", ".xls", ".html", ".htm":
		return name
	}

	mt, _, _ := mime.ParseMediaType(contentType)
	switch {
	case strings.Contains(mt, "spreadsheetml"):
		return "statement.xlsx"
	case mt == "application/vnd.ms-excel":
		return "statement.xls"
	case strings.Contains(mt, "html"):
		return "statement.html"
	default:
		return "statement.csv"
	}
}
