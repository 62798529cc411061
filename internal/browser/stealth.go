package browser

import (
	"fmt"
	"math/rand"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

type viewport struct{ Width, Height int }

var viewports = []viewport{
	{1920, 1080},
	{1366, 768},
	{1536, 864},
	{1440, 900},
	{1280, 720},
}

// maskAutomationJS runs before any page script on every document.
const maskAutomationJS = `
Object.defineProperty(navigator, 'webdriver', { get: () => false });
if (!window.chrome) {
	window.chrome = { runtime: {} };
}
`

// RandomizeUserAgent returns a randomized but realistic user agent
func RandomizeUserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}

func randomViewport() viewport {
	return viewports[rand.Intn(len(viewports))]
}

// disguise applies the fingerprint settings that go-rod/stealth does not
// cover: a realistic viewport and the automation flag mask.
func disguise(page *rod.Page) error {
	vp := randomViewport()
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             vp.Width,
		Height:            vp.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return fmt.Errorf("failed to set viewport: %w", err)
	}

	if _, err := page.EvalOnNewDocument(maskAutomationJS); err != nil {
		return fmt.Errorf("failed to mask automation flags: %w", err)
	}

	return nil
}
