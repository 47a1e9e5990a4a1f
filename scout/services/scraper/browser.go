package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"scout/scout/utils/types"
)

// BrowserFetcher renders pages in headless Chromium before extraction,
// for sites that are empty without JavaScript. PDFs bypass the browser
// and go through the plain HTTP fetcher.
type BrowserFetcher struct {
	pw       *playwright.Playwright
	browser  playwright.Browser
	fallback *HTTPFetcher
}

func NewBrowserFetcher() (*BrowserFetcher, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, err
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args: []string{
			"--disable-gpu",
			"--no-sandbox",
			"--disable-dev-shm-usage",
		},
	})
	if err != nil {
		pw.Stop()
		return nil, err
	}
	return &BrowserFetcher{pw: pw, browser: browser, fallback: NewHTTPFetcher()}, nil
}

func (f *BrowserFetcher) Close() {
	if f.browser != nil {
		f.browser.Close()
	}
	if f.pw != nil {
		f.pw.Stop()
	}
}

func (f *BrowserFetcher) Fetch(ctx context.Context, target string) types.CrawlOutcome {
	if strings.HasSuffix(strings.ToLower(target), ".pdf") {
		return f.fallback.Fetch(ctx, target)
	}
	if err := ctx.Err(); err != nil {
		return failedOutcome(err)
	}

	browserCtx, err := f.browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:         playwright.String(defaultUserAgent),
		Viewport:          &playwright.Size{Width: 1920, Height: 1080},
		IgnoreHttpsErrors: playwright.Bool(true),
	})
	if err != nil {
		return failedOutcome(err)
	}
	defer browserCtx.Close()

	page, err := browserCtx.NewPage()
	if err != nil {
		return failedOutcome(err)
	}
	defer page.Close()

	// Playwright does not take a context; honour the deadline via the
	// navigation timeout instead.
	timeout := 15 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return failedOutcome(fmt.Errorf("deadline exceeded before navigation"))
	}

	if _, err := page.Goto(target, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return failedOutcome(err)
	}

	content, err := page.Content()
	if err != nil {
		return failedOutcome(err)
	}
	if err := ctx.Err(); err != nil {
		return failedOutcome(err)
	}

	title, _ := PageMeta(content)
	return types.CrawlOutcome{
		Success:    true,
		SourceType: types.SourceTypeHTML,
		Title:      title,
		Data:       ExtractReadableText(content),
	}
}
