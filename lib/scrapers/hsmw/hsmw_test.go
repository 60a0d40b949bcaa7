package hsmw

import (
	"context"
	"testing"

	"trainslot-backend/lib/browser/browsertest"

	"github.com/stretchr/testify/require"
)

const sitePage = `<html><body>
<div class="hsmw-main">
<a class="ext_link" href="https://terminplaner4.dfn.de/week41" title="Zur Trainingsanmeldung KW 41">Training Woche 41</a>
<a class="ext_link" href="https://terminplaner4.dfn.de/week42" title="Zur Trainingsanmeldung KW 42">Training Woche 42</a>
<a class="ext_link" href="https://terminplaner4.dfn.de/other" title="Zur Anmeldung Sommerfest">Sommerfest</a>
<a class="ext_link" href="https://example.org/campus" title="Zur Trainingsanmeldung KW 43">Training Woche 43</a>
<a class="ext_link" href="https://terminplaner4.dfn.de/weekx" title="Zur Trainingsanmeldung">Training Woche neu</a>
</div>
</body></html>`

const sitePageWithConsent = `<html><body>
<div id="privacySettingsModal">
<button id="hsmwPrivacyAcceptAllButton">Alle akzeptieren</button>
</div>
<div class="hsmw-main"></div>
</body></html>`

const emptySitePage = `<html><body>
<div class="hsmw-main">
<p>Derzeit sind keine Anmeldungen offen.</p>
</div>
</body></html>`

func TestDiscoverWeeks(t *testing.T) {
	page := &browsertest.FakePage{
		Routes: map[string][]string{
			"https://hsmw.example/training": {sitePage},
		},
	}

	weeks, err := DiscoverWeeks(context.Background(), page, "https://hsmw.example/training")
	require.NoError(t, err)
	require.Equal(t, map[int]string{
		41: "https://terminplaner4.dfn.de/week41",
		42: "https://terminplaner4.dfn.de/week42",
	}, weeks)
}

func TestDiscoverWeeksDismissesConsentOverlay(t *testing.T) {
	page := &browsertest.FakePage{
		Routes: map[string][]string{
			"https://hsmw.example/training": {sitePageWithConsent},
		},
		Clicks: map[string][]string{
			"#hsmwPrivacyAcceptAllButton": {sitePage},
		},
	}

	weeks, err := DiscoverWeeks(context.Background(), page, "https://hsmw.example/training")
	require.NoError(t, err)
	require.Len(t, weeks, 2)
	require.Contains(t, page.Ops, "click #hsmwPrivacyAcceptAllButton")
}

func TestDiscoverWeeksNoneOpen(t *testing.T) {
	page := &browsertest.FakePage{
		Routes: map[string][]string{
			"https://hsmw.example/training": {emptySitePage},
		},
	}

	weeks, err := DiscoverWeeks(context.Background(), page, "https://hsmw.example/training")
	require.NoError(t, err)
	require.Empty(t, weeks)
}

func TestDiscoverWeeksSiteDown(t *testing.T) {
	page := &browsertest.FakePage{Routes: map[string][]string{}}

	_, err := DiscoverWeeks(context.Background(), page, "https://hsmw.example/training")
	require.Error(t, err)
}

func TestTrailingNumber(t *testing.T) {
	n, ok := trailingNumber("Training Woche 41")
	require.True(t, ok)
	require.Equal(t, 41, n)

	_, ok = trailingNumber("Training Woche neu")
	require.False(t, ok)

	_, ok = trailingNumber("")
	require.False(t, ok)
}
