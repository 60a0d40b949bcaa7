// Package hsmw discovers the currently open training weeks on the
// university page. Each open week is published as one external
// Terminplaner link labeled with its week number.
package hsmw

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"trainslot-backend/lib/browser"
	"trainslot-backend/lib/htmlutil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("trainslot.scrapers.hsmw")

const (
	consentModal  = "#privacySettingsModal"
	consentAccept = "#hsmwPrivacyAcceptAllButton"
	mainRegion    = ".hsmw-main"
	externalLinks = "a.ext_link"

	weekLinkMarker  = "terminplaner"
	weekTitleMarker = "Zur Trainingsanmeldung"
)

// DiscoverWeeks scans the site's main page and returns week number →
// sign-up link for every open week. An empty map means no weeks are
// open, which is a valid outcome distinct from a transport failure.
func DiscoverWeeks(ctx context.Context, page browser.Page, siteUrl string) (map[int]string, error) {
	ctx, span := tracer.Start(ctx, "DiscoverWeeks")
	defer span.End()
	span.SetAttributes(attribute.String("site_url", siteUrl))

	err := page.Navigate(ctx, siteUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to navigate to site")
		return nil, err
	}

	dismissConsent(ctx, page)

	err = page.WaitVisible(ctx, mainRegion)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "main content region never appeared")
		return nil, err
	}
	doc, err := page.Document(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to snapshot site page")
		return nil, err
	}

	weeks := map[int]string{}
	for _, a := range htmlutil.GetAnchors(ctx, doc.Find(externalLinks)) {
		if !strings.Contains(a.Href, weekLinkMarker) {
			continue
		}
		if !strings.Contains(a.Title, weekTitleMarker) {
			continue
		}
		n, ok := trailingNumber(a.Name)
		if !ok {
			slog.WarnContext(ctx, "week link label has no numeric token", "label", a.Name)
			continue
		}
		weeks[n] = a.Href
	}

	span.SetAttributes(attribute.Int("week_count", len(weeks)))
	return weeks, nil
}

// best effort: the overlay is only present on fresh sessions and its
// absence is not an error
func dismissConsent(ctx context.Context, page browser.Page) {
	ctx, span := tracer.Start(ctx, "dismissConsent")
	defer span.End()

	doc, err := page.Document(ctx)
	if err != nil {
		span.RecordError(err)
		return
	}
	if doc.Find(consentModal).Length() == 0 {
		return
	}
	err = page.Click(ctx, consentAccept)
	if err != nil {
		span.RecordError(err)
		slog.DebugContext(ctx, "failed to dismiss consent overlay", "err", err)
	}
}

func trailingNumber(label string) (int, bool) {
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		return 0, false
	}
	return n, true
}
