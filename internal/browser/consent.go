package browser

import (
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

const (
	countryCellSelector    = `[class*='web_ui__Cell__cell web_ui__Cell__default web_ui__Cell__clickable']`
	rejectCookiesSelector  = `[id^='onetrust-reject-all-handler']`
	consentClickTimeoutSec = 10
)

// DismissConsent visits the home page and clears the one-shot country picker
// and cookie banner so the next-page control stays clickable. Every lookup
// tolerates absence: a missing dialog is not an error.
func (b *Browser) DismissConsent(page playwright.Page, homeURL, country string) error {
	if _, err := page.Goto(homeURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return fmt.Errorf("failed to open home page %s: %w", homeURL, err)
	}
	time.Sleep(3 * time.Second)

	if b.clickCountry(page, country) {
		b.logger.Info("passed country selection", "country", country)
		time.Sleep(3 * time.Second)
	}

	if b.clickRejectCookies(page) {
		b.logger.Info("passed cookies selection")
	}
	return nil
}

// clickCountry clicks the cell whose visible text matches country. Reports
// whether a click happened.
func (b *Browser) clickCountry(page playwright.Page, country string) bool {
	cells := page.Locator(countryCellSelector)
	count, err := cells.Count()
	if err != nil || count == 0 {
		return false
	}

	for i := 0; i < count; i++ {
		cell := cells.Nth(i)
		text, err := cell.TextContent()
		if err != nil || text != country {
			continue
		}
		if err := cell.Click(); err != nil {
			b.logger.Warn("button to choose country was not clickable", "error", err)
			return false
		}
		return true
	}

	b.logger.Warn("country was not among the found choices", "country", country, "choices", count)
	return false
}

func (b *Browser) clickRejectCookies(page playwright.Page) bool {
	button := page.Locator(rejectCookiesSelector).First()
	count, err := button.Count()
	if err != nil || count == 0 {
		return false
	}

	if err := button.Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(consentClickTimeoutSec * 1000),
	}); err != nil {
		b.logger.Warn("button to reject all cookies was not clickable", "error", err)
		return false
	}
	return true
}
