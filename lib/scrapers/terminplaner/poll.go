// Package terminplaner drives a single DFN Terminplaner poll page: it
// reads timeslot availability and the caller's current selection, and
// submits selections through the poll's server-rendered forms. The
// form cannot toggle a single slot, it only persists whatever is
// checked at submit time, which is why resubmission is a two round
// trip reset-and-reselect protocol (see submit.go).
package terminplaner

import (
	"context"

	"trainslot-backend/lib/browser"
	"trainslot-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("trainslot.scrapers.terminplaner")

type Timeslot struct {
	Id        string `json:"id"`
	Datetime  string `json:"datetime"`
	Available bool   `json:"available"`
	Selected  bool   `json:"selected"`
}

// Open navigates to a poll page and passes the poll's password gate
// when one is presented. The returned document is the rendered results
// view. A page without the password field is already a results view.
func Open(ctx context.Context, page browser.Page, url, password string) (*goquery.Document, error) {
	ctx, span := tracer.Start(ctx, "Open")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	err := page.Navigate(ctx, url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to navigate to poll")
		return nil, err
	}
	doc, err := page.Document(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to snapshot poll page")
		return nil, err
	}

	if doc.Find(passwordInput).Length() > 0 {
		err = page.Fill(ctx, passwordInput, password)
		if err != nil {
			return nil, err
		}
		err = page.Click(ctx, passwordSubmit)
		if err != nil {
			return nil, err
		}
		err = page.WaitVisible(ctx, resultsTable)
		if err != nil {
			span.SetStatus(codes.Error, "results table never appeared after login")
			return nil, err
		}
		doc, err = page.Document(ctx)
		if err != nil {
			return nil, err
		}
	}

	return doc, nil
}

// Timeslots extracts the ordered slot list of a results view: one slot
// per header that carries both an id and a descriptive title, marked
// available when any body cell referencing it contains a "yes" marker.
func Timeslots(doc *goquery.Document) []Timeslot {
	var slots []Timeslot
	index := map[string]int{}

	doc.Find(headerCells).Each(func(_ int, th *goquery.Selection) {
		id, hasId := th.Attr("id")
		title, hasTitle := th.Attr("title")
		if !hasId || !hasTitle {
			return
		}
		index[id] = len(slots)
		slots = append(slots, Timeslot{
			Id:       id,
			Datetime: htmlutil.CleanText(title),
		})
	})

	doc.Find(bodyCells).Each(func(_ int, td *goquery.Selection) {
		headers, _ := td.Attr("headers")
		i, ok := index[headers]
		if !ok {
			return
		}
		if td.Find(availableMark).Length() > 0 {
			slots[i].Available = true
		}
	})

	return slots
}

// CheckedIds reads an edit-link page and returns the slot ids whose
// "yes" control is currently checked for this user.
func CheckedIds(doc *goquery.Document) []string {
	var ids []string
	doc.Find(bodyCells).Each(func(_ int, td *goquery.Selection) {
		headers, _ := td.Attr("headers")
		if headers == "" {
			return
		}
		td.Find(`input[type="radio"][value="yes"]`).Each(func(_ int, input *goquery.Selection) {
			_, checked := input.Attr("checked")
			if checked {
				ids = append(ids, headers)
			}
		})
	})
	return ids
}

type ScrapeWeekRequest struct {
	WeekLink string
	Password string
	// edit link on record for this caller, empty when none exists
	EditLink string
}

// ScrapeWeek produces the full slot model for one week: availability
// from the public page, merged with the caller's current selection
// from their edit page when an edit link is on record.
func ScrapeWeek(ctx context.Context, b browser.Browser, req ScrapeWeekRequest) ([]Timeslot, error) {
	ctx, span := tracer.Start(ctx, "ScrapeWeek")
	defer span.End()
	span.SetAttributes(attribute.String("week_link", req.WeekLink))

	page, err := b.AcquirePage(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to acquire page")
		return nil, err
	}
	defer page.Close()

	doc, err := Open(ctx, page, req.WeekLink, req.Password)
	if err != nil {
		return nil, err
	}
	slots := Timeslots(doc)

	if req.EditLink == "" {
		return slots, nil
	}

	editDoc, err := Open(ctx, page, req.EditLink, req.Password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open edit page")
		return nil, err
	}
	checked := map[string]bool{}
	for _, id := range CheckedIds(editDoc) {
		checked[id] = true
	}
	for i := range slots {
		if checked[slots[i].Id] {
			slots[i].Selected = true
		}
	}

	return slots, nil
}
