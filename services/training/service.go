// Package training reconciles a caller's desired training selection
// with the sign-up site: it discovers open weeks, scrapes each week's
// slot model, and routes submissions through a first-time claim or an
// edit-link resubmission.
package training

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"sync"

	"trainslot-backend/lib/browser"
	"trainslot-backend/lib/gate"
	"trainslot-backend/lib/linkstore"
	"trainslot-backend/lib/scrapers/hsmw"
	"trainslot-backend/lib/scrapers/terminplaner"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("trainslot.services.training")

var (
	// NoEditLinkOnRecord means a selection change was requested for a
	// week this caller never claimed and never registered a link for.
	NoEditLinkOnRecord = fmt.Errorf("no edit link on record for this week")
	// InvalidEditLink means a caller-supplied edit link does not point
	// at a poll vote page.
	InvalidEditLink = fmt.Errorf("invalid edit link")
)

var editLinkPattern = regexp.MustCompile(`^https://terminplaner4\.dfn\.de/[A-Za-z0-9]+/vote/[A-Za-z0-9#]+$`)

// Identity carries the caller's credentials for one request. Secret is
// checked against the service gate; Username and Email identify the
// caller on the sign-up site itself.
type Identity struct {
	Username string
	Email    string
	Secret   string
}

type Week struct {
	WeekNumber int                     `json:"weekNumber"`
	Link       string                  `json:"link"`
	EditLink   string                  `json:"editLink,omitempty"`
	Timeslots  []terminplaner.Timeslot `json:"timeslots"`
}

type Service struct {
	gate         gate.Gate
	store        linkstore.Store
	browser      browser.Browser
	siteUrl      string
	sitePassword string

	mu      sync.Mutex
	weekMus map[string]*weekMutex
}

type weekMutex struct {
	sync.Mutex
	refs int
}

func NewService(
	g gate.Gate,
	store linkstore.Store,
	b browser.Browser,
	siteUrl, sitePassword string,
) *Service {
	return &Service{
		gate:         g,
		store:        store,
		browser:      b,
		siteUrl:      siteUrl,
		sitePassword: sitePassword,
		weekMus:      map[string]*weekMutex{},
	}
}

// lockWeek serializes submissions per week and caller. Two interleaved
// submit protocols against the same poll form would corrupt each
// other's checked state mid-flight. Entries are refcounted and dropped
// once no submission holds or waits on them, so the map stays bounded
// over a long-lived process.
func (s *Service) lockWeek(weekLink, email string) func() {
	key := linkstore.WeekKey(weekLink) + "\x00" + email

	s.mu.Lock()
	mu, ok := s.weekMus[key]
	if !ok {
		mu = &weekMutex{}
		s.weekMus[key] = mu
	}
	mu.refs++
	s.mu.Unlock()

	mu.Lock()
	return func() {
		mu.Unlock()

		s.mu.Lock()
		mu.refs--
		if mu.refs == 0 {
			delete(s.weekMus, key)
		}
		s.mu.Unlock()
	}
}

// Scrape discovers all open weeks and returns their slot models for
// this caller, sorted by week number. A week whose poll cannot be
// scraped is reported with an empty slot list rather than failing the
// whole response; no open weeks at all yields an empty list.
func (s *Service) Scrape(ctx context.Context, id Identity) ([]Week, error) {
	ctx, span := tracer.Start(ctx, "Scrape")
	defer span.End()

	err := s.gate.Verify(id.Secret)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "credential gate rejected request")
		return nil, err
	}

	page, err := s.browser.AcquirePage(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to acquire page")
		return nil, err
	}
	links, err := hsmw.DiscoverWeeks(ctx, page, s.siteUrl)
	page.Close()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "week discovery failed")
		return nil, err
	}

	weeks := make([]Week, 0, len(links))
	for n, link := range links {
		weeks = append(weeks, Week{WeekNumber: n, Link: link})
	}
	sort.Slice(weeks, func(i, j int) bool {
		return weeks[i].WeekNumber < weeks[j].WeekNumber
	})

	var wg sync.WaitGroup
	for i := range weeks {
		wg.Add(1)
		go func(w *Week) {
			defer wg.Done()
			s.scrapeWeek(ctx, id, w)
		}(&weeks[i])
	}
	wg.Wait()

	span.SetAttributes(attribute.Int("week_count", len(weeks)))
	return weeks, nil
}

func (s *Service) scrapeWeek(ctx context.Context, id Identity, w *Week) {
	ctx, span := tracer.Start(ctx, "scrapeWeek")
	defer span.End()
	span.SetAttributes(attribute.Int("week_number", w.WeekNumber))

	editLink, ok, err := s.store.Get(ctx, linkstore.WeekKey(w.Link), id.Email)
	if err != nil {
		span.RecordError(err)
	}
	if ok {
		w.EditLink = editLink
	}

	slots, err := terminplaner.ScrapeWeek(ctx, s.browser, terminplaner.ScrapeWeekRequest{
		WeekLink: w.Link,
		Password: s.sitePassword,
		EditLink: w.EditLink,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to scrape week")
		slog.WarnContext(ctx, "failed to scrape week, reporting it empty",
			"week_number", w.WeekNumber, "err", err)
		w.Timeslots = []terminplaner.Timeslot{}
		return
	}
	if slots == nil {
		slots = []terminplaner.Timeslot{}
	}
	w.Timeslots = slots
}

type SubmitRequest struct {
	WeekLink string
	Ids      []string
}

// Submit replaces this caller's selection for one week. The first
// submission for a week claims it and registers the issued edit link;
// every later submission goes through the stored link.
func (s *Service) Submit(ctx context.Context, id Identity, req SubmitRequest) (Week, error) {
	ctx, span := tracer.Start(ctx, "Submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("week_link", req.WeekLink),
		attribute.StringSlice("ids", req.Ids),
	)

	err := s.gate.Verify(id.Secret)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "credential gate rejected request")
		return Week{}, err
	}

	unlock := s.lockWeek(req.WeekLink, id.Email)
	defer unlock()

	weekKey := linkstore.WeekKey(req.WeekLink)
	editLink, onRecord, err := s.store.Get(ctx, weekKey, id.Email)
	if err != nil {
		span.RecordError(err)
	}

	if !onRecord {
		editLink, err = terminplaner.Claim(ctx, s.browser, terminplaner.ClaimRequest{
			WeekLink: req.WeekLink,
			Password: s.sitePassword,
			Username: id.Username,
			Email:    id.Email,
			Ids:      req.Ids,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "first-time claim failed")
			return Week{}, err
		}
		err = s.store.Put(ctx, weekKey, id.Email, editLink)
		if err != nil {
			// the selection is live upstream; losing the link only
			// costs a manual re-registration later
			span.RecordError(err)
			slog.WarnContext(ctx, "failed to persist issued edit link",
				"week_key", weekKey, "err", err)
		}
	} else {
		err = terminplaner.Resubmit(ctx, s.browser, terminplaner.ResubmitRequest{
			EditLink: editLink,
			Password: s.sitePassword,
			Ids:      req.Ids,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "resubmission failed")
			return Week{}, err
		}
	}

	week := Week{Link: req.WeekLink, EditLink: editLink}
	slots, err := terminplaner.ScrapeWeek(ctx, s.browser, terminplaner.ScrapeWeekRequest{
		WeekLink: req.WeekLink,
		Password: s.sitePassword,
		EditLink: editLink,
	})
	if err != nil {
		span.RecordError(err)
		slog.WarnContext(ctx, "failed to scrape week after submit", "err", err)
		week.Timeslots = []terminplaner.Timeslot{}
		return week, nil
	}
	if slots == nil {
		slots = []terminplaner.Timeslot{}
	}
	week.Timeslots = slots
	return week, nil
}

// SetEditLink registers a caller-supplied edit link for a week,
// covering claims that were made outside this service.
func (s *Service) SetEditLink(ctx context.Context, id Identity, weekLink, editLink string) error {
	ctx, span := tracer.Start(ctx, "SetEditLink")
	defer span.End()
	span.SetAttributes(attribute.String("week_link", weekLink))

	err := s.gate.Verify(id.Secret)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "credential gate rejected request")
		return err
	}
	if !editLinkPattern.MatchString(editLink) {
		span.SetStatus(codes.Error, InvalidEditLink.Error())
		return fmt.Errorf("%w: %q", InvalidEditLink, editLink)
	}
	return s.store.Put(ctx, linkstore.WeekKey(weekLink), id.Email, editLink)
}

// EditLink returns the edit link on record for a week.
func (s *Service) EditLink(ctx context.Context, id Identity, weekLink string) (string, error) {
	ctx, span := tracer.Start(ctx, "EditLink")
	defer span.End()
	span.SetAttributes(attribute.String("week_link", weekLink))

	err := s.gate.Verify(id.Secret)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	editLink, ok, err := s.store.Get(ctx, linkstore.WeekKey(weekLink), id.Email)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	if !ok {
		return "", NoEditLinkOnRecord
	}
	return editLink, nil
}
