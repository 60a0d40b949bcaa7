package terminplaner

import (
	"context"
	"fmt"

	"trainslot-backend/lib/browser"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	// SubmitControlMissing means the expected submit control was not
	// on the page at its phase of the protocol.
	SubmitControlMissing = fmt.Errorf("submit control not found on page")
	// EditLinkNotIssued means the claim went through but the site did
	// not present the edit-link confirmation elements.
	EditLinkNotIssued = fmt.Errorf("edit link was not issued after claim")
	// PartialSubmission means the old selection was cleared remotely
	// but the new one was never committed. The remote state is the
	// empty selection; callers must see this, not a silent retry.
	PartialSubmission = fmt.Errorf("selection cleared but not resubmitted")
)

type ClaimRequest struct {
	WeekLink string
	Password string
	Username string
	Email    string
	Ids      []string
}

// Claim performs the first-time claim of a week: check the desired
// slots on the public form, identify via name and email, submit, then
// request a personal edit link on the confirmation view. Returns the
// issued edit link. The first claim is additive against an
// all-unclaimed form, so no slot needs to be cleared first.
func Claim(ctx context.Context, b browser.Browser, req ClaimRequest) (string, error) {
	ctx, span := tracer.Start(ctx, "Claim")
	defer span.End()
	span.SetAttributes(
		attribute.String("week_link", req.WeekLink),
		attribute.StringSlice("ids", req.Ids),
	)

	page, err := b.AcquirePage(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to acquire page")
		return "", err
	}
	defer page.Close()

	doc, err := Open(ctx, page, req.WeekLink, req.Password)
	if err != nil {
		return "", err
	}
	if doc.Find(claimSave).Length() == 0 {
		span.SetStatus(codes.Error, SubmitControlMissing.Error())
		return "", fmt.Errorf("claim: %w", SubmitControlMissing)
	}

	for _, id := range req.Ids {
		err = page.Click(ctx, yesRadio(id))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to select slot")
			return "", fmt.Errorf("claim: select %q: %w", id, err)
		}
	}

	err = page.Fill(ctx, claimNameInput, req.Username)
	if err != nil {
		return "", err
	}
	err = page.Fill(ctx, claimMailInput, req.Email)
	if err != nil {
		return "", err
	}
	err = page.Click(ctx, claimSave)
	if err != nil {
		return "", err
	}
	err = page.WaitVisible(ctx, claimConfirmation)
	if err != nil {
		span.SetStatus(codes.Error, "claim confirmation never appeared")
		return "", err
	}

	// the site mails edit links on request; the confirmation banner
	// echoes the issued url
	doc, err = page.Document(ctx)
	if err != nil {
		return "", err
	}
	if doc.Find(editLinkMailInput).Length() == 0 {
		span.SetStatus(codes.Error, EditLinkNotIssued.Error())
		return "", EditLinkNotIssued
	}
	err = page.Fill(ctx, editLinkMailInput, req.Email)
	if err != nil {
		return "", err
	}
	err = page.Click(ctx, editLinkRequest)
	if err != nil {
		return "", err
	}
	err = page.WaitVisible(ctx, editLinkBanner)
	if err != nil {
		span.SetStatus(codes.Error, "edit link banner never appeared")
		return "", err
	}
	doc, err = page.Document(ctx)
	if err != nil {
		return "", err
	}

	editLink, ok := doc.Find(editLinkBanner + " a").Attr("href")
	if !ok || editLink == "" {
		span.SetStatus(codes.Error, EditLinkNotIssued.Error())
		return "", EditLinkNotIssued
	}

	span.SetAttributes(attribute.String("edit_link", editLink))
	return editLink, nil
}

type ResubmitRequest struct {
	EditLink string
	Password string
	Ids      []string
}

// Resubmit replaces the caller's selection through their edit link.
// The form persists exactly the checked state at submit time, so the
// old selection is cleared and committed first, then the page is
// reloaded and the desired selection committed in a second round trip.
func Resubmit(ctx context.Context, b browser.Browser, req ResubmitRequest) error {
	ctx, span := tracer.Start(ctx, "Resubmit")
	defer span.End()
	span.SetAttributes(
		attribute.String("edit_link", req.EditLink),
		attribute.StringSlice("ids", req.Ids),
	)

	page, err := b.AcquirePage(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to acquire page")
		return err
	}
	defer page.Close()

	// round trip 1: commit the empty selection
	doc, err := Open(ctx, page, req.EditLink, req.Password)
	if err != nil {
		return err
	}
	if doc.Find(editSave).Length() == 0 {
		span.SetStatus(codes.Error, SubmitControlMissing.Error())
		return fmt.Errorf("resubmit clear: %w", SubmitControlMissing)
	}
	for _, id := range CheckedIds(doc) {
		err = page.Click(ctx, noRadio(id))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to deselect slot")
			return fmt.Errorf("resubmit clear: deselect %q: %w", id, err)
		}
	}
	err = page.Click(ctx, editSave)
	if err != nil {
		return err
	}
	// the clear click is dispatched; the remote state is the empty
	// selection from here until the new set is committed
	err = page.WaitVisible(ctx, resultsTable)
	if err != nil {
		span.SetStatus(codes.Error, PartialSubmission.Error())
		return fmt.Errorf("%w: %w", PartialSubmission, err)
	}

	// round trip 2: the session does not survive the full navigation,
	// reload and authenticate again before committing the new state
	doc, err = Open(ctx, page, req.EditLink, req.Password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, PartialSubmission.Error())
		return fmt.Errorf("%w: %w", PartialSubmission, err)
	}
	if doc.Find(editSave).Length() == 0 {
		span.SetStatus(codes.Error, PartialSubmission.Error())
		return fmt.Errorf("%w: %w", PartialSubmission, SubmitControlMissing)
	}
	for _, id := range req.Ids {
		err = page.Click(ctx, yesRadio(id))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, PartialSubmission.Error())
			return fmt.Errorf("%w: select %q: %w", PartialSubmission, id, err)
		}
	}
	err = page.Click(ctx, editSave)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, PartialSubmission.Error())
		return fmt.Errorf("%w: %w", PartialSubmission, err)
	}
	err = page.WaitVisible(ctx, resultsTable)
	if err != nil {
		span.SetStatus(codes.Error, PartialSubmission.Error())
		return fmt.Errorf("%w: %w", PartialSubmission, err)
	}

	return nil
}
